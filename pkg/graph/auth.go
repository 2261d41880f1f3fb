package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/mcp-wrappers/pkg/auth"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthority = "https://login.microsoftonline.com"
	DefaultTenant    = "common"
)

// DefaultScopes covers the delegated permissions the Graph tools need.
var DefaultScopes = []string{
	"offline_access", "User.Read", "Mail.Read", "Calendars.Read", "Files.Read.All",
}

/*
Config holds the Entra ID application used for the device-code login and the
file the resulting token is cached in.
*/
type Config struct {
	Authority string   `mapstructure:"authority"`
	TenantID  string   `mapstructure:"tenant"`
	ClientID  string   `mapstructure:"clientID"`
	Scopes    []string `mapstructure:"scopes"`
	TokenFile string   `mapstructure:"tokenFile"`
}

func (cfg Config) withDefaults() Config {
	if cfg.Authority == "" {
		cfg.Authority = DefaultAuthority
	}

	if cfg.TenantID == "" {
		cfg.TenantID = DefaultTenant
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}

	if cfg.TokenFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.TokenFile = filepath.Join(home, ".mcp-wrappers", "graph_token.json")
		}
	}

	return cfg
}

// OAuth2 builds the oauth2 configuration for the tenant's v2.0 endpoints.
func (cfg Config) OAuth2() *oauth2.Config {
	cfg = cfg.withDefaults()
	base := strings.TrimRight(cfg.Authority, "/") + "/" + cfg.TenantID + "/oauth2/v2.0"

	return &oauth2.Config{
		ClientID: cfg.ClientID,
		Scopes:   cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:       base + "/authorize",
			TokenURL:      base + "/token",
			DeviceAuthURL: base + "/devicecode",
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

/*
TokenStore persists a single OAuth2 token as JSON, readable only by the owner.
*/
type TokenStore struct {
	mu   sync.Mutex
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

func (store *TokenStore) Path() string {
	return store.path
}

// Load reads the cached token. A missing file yields os.ErrNotExist.
func (store *TokenStore) Load() (*oauth2.Token, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	buf, err := os.ReadFile(store.path)

	if err != nil {
		return nil, err
	}

	var tok oauth2.Token

	if err := json.Unmarshal(buf, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token file %s: %w", store.path, err)
	}

	return &tok, nil
}

// Save writes the token, creating the parent directory when needed.
func (store *TokenStore) Save(tok *oauth2.Token) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(store.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	buf, err := json.MarshalIndent(tok, "", "  ")

	if err != nil {
		return err
	}

	return os.WriteFile(store.path, buf, 0o600)
}

/*
persistingSource writes every newly issued token back to the store, so a
refresh done by a running server survives a restart.
*/
type persistingSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	store *TokenStore
	last  string
}

func (src *persistingSource) Token() (*oauth2.Token, error) {
	src.mu.Lock()
	defer src.mu.Unlock()

	tok, err := src.base.Token()

	if err != nil {
		return nil, err
	}

	if tok.AccessToken != src.last {
		src.last = tok.AccessToken

		if err := src.store.Save(tok); err != nil {
			log.Warn("failed to persist refreshed graph token", "error", err)
		}
	}

	return tok, nil
}

/*
Authenticator runs the device-code login and hands out refreshing token
sources backed by the token cache.
*/
type Authenticator struct {
	config Config
	oauth  *oauth2.Config
	store  *TokenStore
}

func NewAuthenticator(cfg Config) *Authenticator {
	cfg = cfg.withDefaults()

	return &Authenticator{
		config: cfg,
		oauth:  cfg.OAuth2(),
		store:  NewTokenStore(cfg.TokenFile),
	}
}

func (authenticator *Authenticator) Store() *TokenStore {
	return authenticator.store
}

func (authenticator *Authenticator) missing() error {
	return &errors.MissingCredentialError{
		Service: "Microsoft Graph",
		Keys:    []string{"GRAPH_CLIENT_ID", "graph.clientID"},
	}
}

/*
Login starts the device-code flow, hands the user code to prompt, and blocks
until the user completes sign-in, the code expires, or ctx ends. The token is
saved on success.
*/
func (authenticator *Authenticator) Login(
	ctx context.Context, prompt func(*oauth2.DeviceAuthResponse),
) (*oauth2.Token, error) {
	if authenticator.config.ClientID == "" {
		return nil, authenticator.missing()
	}

	device, err := authenticator.oauth.DeviceAuth(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to start device login: %w", err)
	}

	if prompt != nil {
		prompt(device)
	}

	if !device.Expiry.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, device.Expiry)
		defer cancel()
	}

	tok, err := authenticator.oauth.DeviceAccessToken(ctx, device)

	if err != nil {
		return nil, fmt.Errorf("device login did not complete: %w", err)
	}

	if err := authenticator.store.Save(tok); err != nil {
		return nil, err
	}

	log.Info("graph token saved", "path", authenticator.store.Path())

	return tok, nil
}

/*
TokenSource returns a source that refreshes the cached token when it expires
and persists every refresh. ctx carries the HTTP client used for refreshes and
must outlive the source.
*/
func (authenticator *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if authenticator.config.ClientID == "" {
		return nil, authenticator.missing()
	}

	tok, err := authenticator.store.Load()

	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("not signed in to Microsoft Graph, run `mcp-wrappers auth graph`")
		}

		return nil, err
	}

	persisting := &persistingSource{
		base:  authenticator.oauth.TokenSource(ctx, tok),
		store: authenticator.store,
		last:  tok.AccessToken,
	}

	return oauth2.ReuseTokenSource(tok, persisting), nil
}

// Status describes the cached token without contacting the identity platform.
type Status struct {
	SignedIn    bool              `json:"signedIn"`
	TokenFile   string            `json:"tokenFile"`
	Expiry      time.Time         `json:"expiry,omitempty"`
	Expired     bool              `json:"expired"`
	Refreshable bool              `json:"refreshable"`
	Claims      *auth.TokenClaims `json:"claims,omitempty"`
}

func (authenticator *Authenticator) Status() (Status, error) {
	status := Status{TokenFile: authenticator.store.Path()}

	tok, err := authenticator.store.Load()

	if os.IsNotExist(err) {
		return status, nil
	}

	if err != nil {
		return status, err
	}

	status.SignedIn = tok.AccessToken != ""
	status.Expiry = tok.Expiry
	status.Expired = !tok.Expiry.IsZero() && time.Now().After(tok.Expiry)
	status.Refreshable = tok.RefreshToken != ""

	// Consumer-account tokens are opaque.
	if claims, err := auth.InspectToken(tok.AccessToken); err == nil {
		status.Claims = &claims
	}

	return status, nil
}

/*
LazySource defers loading the cached token to the first call that needs it,
so a server started before `auth graph` picks up the login without a restart.
*/
func (authenticator *Authenticator) LazySource(ctx context.Context) oauth2.TokenSource {
	return &lazySource{ctx: ctx, authenticator: authenticator}
}

type lazySource struct {
	mu            sync.Mutex
	ctx           context.Context
	authenticator *Authenticator
	src           oauth2.TokenSource
}

func (lazy *lazySource) Token() (*oauth2.Token, error) {
	lazy.mu.Lock()
	defer lazy.mu.Unlock()

	if lazy.src == nil {
		src, err := lazy.authenticator.TokenSource(lazy.ctx)

		if err != nil {
			return nil, err
		}

		lazy.src = src
	}

	return lazy.src.Token()
}
