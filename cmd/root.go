/*
Package cmd implements the command-line interface of mcp-wrappers: serving the
MCP tools, signing in to Microsoft Graph, and running the Miro diagram
extraction from a terminal.
*/
package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/theapemachine/mcp-wrappers/pkg/logging"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
This will be written to the home directory of the user running the service,
which allows a developer to easily override the config file.
*/
//go:embed cfg/*
var embedded embed.FS

var (
	projectName  = "mcp-wrappers"
	cfgFile      string
	logLevelFlag string
	logFileFlag  string
	logCloser    io.Closer

	rootCmd = &cobra.Command{
		Use:   "mcp-wrappers",
		Short: "MCP tools for Miro, Microsoft Graph, SerpAPI and Azure DevOps",
		Long:  longRoot,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			logCloser, err = logging.Init(logFileFlag, logLevelFlag)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				_ = logCloser.Close()
			}
		},
	}
)

/*
envBindings maps configuration keys to the environment variables that
override them.
*/
var envBindings = map[string]string{
	"miro.token":         "MIRO_TOKEN",
	"miro.board":         "MIRO_BOARD_ID",
	"graph.clientID":     "GRAPH_CLIENT_ID",
	"graph.tenant":       "GRAPH_TENANT_ID",
	"serpapi.apiKey":     "SERPAPI_API_KEY",
	"azure.organization": "AZURE_DEVOPS_ORG",
	"azure.pat":          "AZDO_PAT",
	"azure.project":      "AZURE_DEVOPS_PROJECT",
	"azure.team":         "AZURE_DEVOPS_TEAM",
}

/*
Execute is the main entry point for the CLI.
*/
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yml",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevelFlag,
		"log-level",
		"info",
		"log level: debug, info, warn or error",
	)

	rootCmd.PersistentFlags().StringVar(
		&logFileFlag,
		"log-file",
		"",
		"append logs to this file instead of stderr",
	)
}

/*
initConfig writes the default config file to the user's home directory if it
doesn't exist, loads a .env file from the working directory when present,
and then reads the config file.
*/
func initConfig() {
	var err error

	if err = writeConfig(); err != nil {
		log.Fatal("failed to write config", "error", err)
	}

	if err = godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn("failed to load .env", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(configDir())

	for key, env := range envBindings {
		if err = viper.BindEnv(key, env); err != nil {
			log.Fatal("failed to bind env", "key", key, "error", err)
		}
	}

	if err = viper.ReadInConfig(); err != nil {
		log.Fatal("failed to read config", "error", err)
	}
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+projectName)
}

/*
writeConfig writes the default config file to the user's home directory.
*/
func writeConfig() (err error) {
	var (
		fh  fs.File
		buf bytes.Buffer
		dir = configDir()
	)

	if !CheckFileExists(dir) {
		if err = os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	fullPath := filepath.Join(dir, cfgFile)

	if CheckFileExists(fullPath) {
		return nil
	}

	if fh, err = embedded.Open("cfg/config.yml"); err != nil {
		return fmt.Errorf("failed to open embedded config file: %w", err)
	}

	defer fh.Close()

	if _, err = io.Copy(&buf, fh); err != nil {
		return fmt.Errorf("failed to read embedded config file: %w", err)
	}

	// The file holds credentials once filled in.
	if err = os.WriteFile(fullPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info("wrote config file", "path", fullPath)

	return nil
}

func CheckFileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return !errors.Is(err, os.ErrNotExist)
}

/*
longRoot contains the detailed help text for the root command.
*/
var longRoot = `
mcp-wrappers exposes Miro, Microsoft Graph, SerpAPI and Azure DevOps as Model
Context Protocol tools. Miro frames can be converted into Mermaid flowcharts
and entity-relationship diagrams.

Configuration lives in ~/.mcp-wrappers/config.yml; credentials may also come
from the environment or a .env file.
`
