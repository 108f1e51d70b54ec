package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/lunamare/tidesync/internal/repositories"
	"github.com/lunamare/tidesync/internal/services"
	"github.com/lunamare/tidesync/internal/shared"
	"github.com/lunamare/tidesync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.SourceService
	catalog    services.CatalogService
	db         *sql.DB
	cache      *repositories.SyncCache
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.SourceService
	Catalog    services.CatalogService
	Cache      *repositories.SyncCache
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		catalog:    opts.Catalog,
		cache:      opts.Cache,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, playlistsCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig refreshes the runner's config from the --config flag when one
// was passed, falling back to the config loaded at startup.
func (r *Runner) reloadConfig(cmd *cli.Command) *shared.Config {
	configPath := cmd.String("config")
	if configPath == "" || configPath == r.configPath {
		return r.config
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		return r.config
	}

	r.config = config
	r.configPath = configPath
	return config
}

// openCache opens the configured database, applies pending migrations, and
// wires the sync cache. Idempotent across commands within a run.
func (r *Runner) openCache() (*repositories.SyncCache, error) {
	if r.cache != nil {
		return r.cache, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.cache = repositories.NewSyncCache(db)
	return r.cache, nil
}

// ensureSource builds and authenticates the Spotify service from saved tokens.
func (r *Runner) ensureSource(ctx context.Context) (services.SourceService, error) {
	if r.source != nil {
		return r.source, nil
	}

	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token := creds.Token()
	if token == nil {
		return nil, fmt.Errorf("%w: run 'tidesync auth spotify' first", shared.ErrNotAuthenticated)
	}
	svc.SetToken(ctx, token)

	r.source = svc
	return r.source, nil
}

// ensureCatalog builds the Tidal service and resolves its session from saved tokens.
func (r *Runner) ensureCatalog(ctx context.Context) (services.CatalogService, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	creds := r.config.Credentials.Tidal
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: Tidal client_id must be set in %s", shared.ErrMissingCredentials, r.configPath)
	}

	svc, err := services.NewTidalService(creds.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to create Tidal service: %w", err)
	}

	if creds.AccessToken == "" {
		return nil, fmt.Errorf("%w: run 'tidesync auth tidal' first", shared.ErrNotAuthenticated)
	}
	if err := svc.Authenticate(ctx, map[string]string{"access_token": creds.AccessToken}); err != nil {
		return nil, fmt.Errorf("failed to establish Tidal session: %w", err)
	}

	r.catalog = svc
	return r.catalog, nil
}

// buildEngine assembles the sync engine from the runner's services and cache.
func (r *Runner) buildEngine(ctx context.Context) (*tasks.Engine, error) {
	source, err := r.ensureSource(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := r.ensureCatalog(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := r.openCache()
	if err != nil {
		return nil, err
	}

	return tasks.NewEngine(source, catalog, cache, r.config.Sync, r.logger), nil
}

// saveTokens records an OAuth2 token for the given provider in the config and
// persists it when a config path is known.
func (r *Runner) saveTokens(provider string, token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("config is nil")
	}

	var err error
	switch provider {
	case providerSpotify:
		err = r.config.Credentials.Spotify.Update(token)
	case providerTidal:
		err = r.config.Credentials.Tidal.Update(token)
	default:
		return fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidArgument, provider)
	}
	if err != nil {
		return fmt.Errorf("failed to update %s configuration: %w", provider, err)
	}

	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
