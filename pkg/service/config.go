package service

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/theapemachine/mcp-wrappers/pkg/azure"
	"github.com/theapemachine/mcp-wrappers/pkg/diagram"
	"github.com/theapemachine/mcp-wrappers/pkg/graph"
	"github.com/theapemachine/mcp-wrappers/pkg/stores/s3"
)

// Transports accepted by serve --transport.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

type MiroConfig struct {
	Token     string `mapstructure:"token"`
	BaseURL   string `mapstructure:"baseURL"`
	Board     string `mapstructure:"board"`
	RateLimit int64  `mapstructure:"rateLimit"`
}

type GraphConfig struct {
	graph.Config `mapstructure:",squash"`
	BaseURL      string `mapstructure:"baseURL"`
}

type SerpAPIConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	BaseURL string `mapstructure:"baseURL"`
}

/*
Config is everything a server instance is built from. It is read once from
viper, so nothing below the command layer touches global configuration.
*/
type Config struct {
	Name       string                  `mapstructure:"name"`
	Version    string                  `mapstructure:"version"`
	Transport  string                  `mapstructure:"transport"`
	Address    string                  `mapstructure:"address"`
	BaseURL    string                  `mapstructure:"baseURL"`
	Tools      []string                `mapstructure:"tools"`
	Miro       MiroConfig              `mapstructure:"miro"`
	Graph      GraphConfig             `mapstructure:"graph"`
	SerpAPI    SerpAPIConfig           `mapstructure:"serpapi"`
	Azure      azure.AzureDevOpsConfig `mapstructure:"azure"`
	Store      s3.Config               `mapstructure:"store"`
	Heuristics diagram.Heuristics      `mapstructure:"heuristics"`
}

/*
LoadConfig reads the server configuration from v. Missing credentials are not
an error here; the affected tools report them when called.
*/
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Name:      v.GetString("server.name"),
		Version:   v.GetString("server.version"),
		Transport: strings.ToLower(v.GetString("server.transport")),
		Address:   v.GetString("server.address"),
		BaseURL:   v.GetString("server.baseURL"),
		Tools:     v.GetStringSlice("tools.enabled"),
	}

	sections := []struct {
		key    string
		target any
	}{
		{"miro", &cfg.Miro},
		{"graph", &cfg.Graph},
		{"serpapi", &cfg.SerpAPI},
		{"azure", &cfg.Azure},
		{"diagrams.store", &cfg.Store},
		{"diagrams.heuristics", &cfg.Heuristics},
	}

	for _, section := range sections {
		if err := v.UnmarshalKey(section.key, section.target); err != nil {
			return cfg, fmt.Errorf("failed to read %s config: %w", section.key, err)
		}
	}

	// UnmarshalKey reads the section map as-is; leaf lookups see env bindings.
	for key, target := range map[string]*string{
		"miro.token":         &cfg.Miro.Token,
		"miro.board":         &cfg.Miro.Board,
		"graph.clientID":     &cfg.Graph.ClientID,
		"graph.tenant":       &cfg.Graph.TenantID,
		"serpapi.apiKey":     &cfg.SerpAPI.APIKey,
		"azure.organization": &cfg.Azure.Organization,
		"azure.pat":          &cfg.Azure.PersonalAccessToken,
		"azure.project":      &cfg.Azure.Project,
		"azure.team":         &cfg.Azure.Team,
	} {
		if value := v.GetString(key); value != "" {
			*target = value
		}
	}

	return cfg.withDefaults()
}

func (cfg Config) withDefaults() (Config, error) {
	if cfg.Name == "" {
		cfg.Name = "mcp-wrappers"
	}

	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	if cfg.Address == "" {
		cfg.Address = ":3210"
	}

	switch cfg.Transport {
	case TransportStdio, TransportSSE, TransportHTTP:
	default:
		return cfg, fmt.Errorf("unknown transport %q (want stdio, sse or http)", cfg.Transport)
	}

	return cfg, nil
}
