package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/viper"

	"github.com/donaldgifford/marketplace-sync/internal/auth"
	"github.com/donaldgifford/marketplace-sync/internal/config"
	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/engine"
	"github.com/donaldgifford/marketplace-sync/internal/fetch"
	"github.com/donaldgifford/marketplace-sync/internal/notify"
	"github.com/donaldgifford/marketplace-sync/internal/platform"
	"github.com/donaldgifford/marketplace-sync/internal/platform/lazada"
	"github.com/donaldgifford/marketplace-sync/internal/platform/shopee"
	"github.com/donaldgifford/marketplace-sync/internal/platform/tiktok"
	"github.com/donaldgifford/marketplace-sync/internal/sink"
	"github.com/donaldgifford/marketplace-sync/internal/store"
	"github.com/donaldgifford/marketplace-sync/pkg/logger"
)

// app holds the components built from one config file.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	db       *store.PostgresStore
	creds    credential.Store
	recorder *platform.Recorder
	writer   *sink.Writer
	engine   *engine.Engine
}

// loadApp reads the config named by --config and builds every component.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{
		cfg: cfg,
		log: logger.New(cfg.Logging.Level, cfg.Logging.Format),
	}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) build(ctx context.Context) error {
	cfg := a.cfg

	if cfg.Database.Configured() {
		db, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	}

	switch cfg.Credentials.Backend {
	case config.BackendPostgres:
		a.creds = a.db
	default:
		a.creds = credential.NewFileStore(cfg.Credentials.Dir)
	}

	if cfg.APILog.Enabled {
		a.recorder = platform.NewRecorder(cfg.APILog.Dir, cfg.APILog.Buffer, a.log)
	}

	loc, err := cfg.Fetch.Location()
	if err != nil {
		return fmt.Errorf("loading timezone %q: %w", cfg.Fetch.Timezone, err)
	}

	var integrations []engine.Integration
	for _, p := range cfg.EnabledPlatforms() {
		in, err := a.integration(ctx, p)
		if err != nil {
			return err
		}
		integrations = append(integrations, in)
	}

	opts := []engine.EngineOption{
		engine.WithLogger(a.log),
		engine.WithExportDir(cfg.Export.Dir),
		engine.WithLocation(loc),
		engine.WithWindowDays(cfg.Fetch.MaxWindowDays),
		engine.WithPageSize(cfg.Fetch.PageSize),
		engine.WithNotifier(a.notifier()),
	}
	if cfg.Sink.Configured() {
		w, err := a.sinkWriter(ctx)
		if err != nil {
			return err
		}
		a.writer = w
		opts = append(opts, engine.WithSink(w, cfg.Sink.SpreadsheetID))
	}

	a.engine = engine.NewEngine(integrations, opts...)
	return nil
}

func (a *app) notifier() notify.Notifier {
	nc := a.cfg.Notify
	if nc.DiscordWebhookURL == "" {
		return notify.NewNoOpNotifier(a.log)
	}
	opts := []notify.DiscordOption{notify.WithHTTPClient(&http.Client{Timeout: nc.Timeout})}
	if nc.Username != "" {
		opts = append(opts, notify.WithUsername(nc.Username))
	}
	a.log.Info("discord notifications enabled")
	return notify.NewDiscordNotifier(nc.DiscordWebhookURL, opts...)
}

// integration wires the transport, token manager and fetcher of p.
func (a *app) integration(ctx context.Context, p credential.Platform) (engine.Integration, error) {
	pc := a.cfg.Platform(p)

	cred, err := a.creds.Load(ctx, p)
	if err != nil {
		return engine.Integration{}, fmt.Errorf("loading %s credential: %w", p, err)
	}
	cred.Identity.Merge(pc.Identity)
	handle := credential.NewHandle(cred)

	var execOpts []platform.ExecutorOption
	if a.recorder != nil {
		execOpts = append(execOpts, platform.WithRecorder(a.recorder))
	}

	var (
		transport platform.Transport
		refresher auth.Refresher
	)
	switch p {
	case credential.Shopee:
		t := shopee.New(shopee.WithBaseURL(pc.BaseURL), shopee.WithExecutorOptions(execOpts...))
		transport, refresher = t, shopee.NewRefresher(t, pc.RequestTimeout)
	case credential.Lazada:
		t := lazada.New(
			lazada.WithBaseURL(pc.BaseURL),
			lazada.WithAuthURL(pc.AuthURL),
			lazada.WithExecutorOptions(execOpts...),
		)
		transport, refresher = t, lazada.NewRefresher(t, pc.RequestTimeout)
	case credential.TikTok:
		t := tiktok.New(
			tiktok.WithBaseURL(pc.BaseURL),
			tiktok.WithAuthURL(pc.AuthURL),
			tiktok.WithExecutorOptions(execOpts...),
		)
		transport, refresher = t, tiktok.NewRefresher(t, pc.RequestTimeout)
	default:
		return engine.Integration{}, fmt.Errorf("%s: %w", p, engine.ErrNotConfigured)
	}

	log := a.log.With("platform", string(p))
	tokens := auth.NewManager(handle, a.creds, withLifetimes(refresher, pc),
		auth.WithRefreshMargin(pc.RefreshMargin),
		auth.WithLogger(log),
	)
	client := platform.NewClient(transport, handle,
		platform.WithTimeout(pc.RequestTimeout),
		platform.WithTokenValidator(tokens),
		platform.WithLogger(log),
	)
	fetcher := fetch.New(client,
		fetch.WithMinDelay(a.cfg.Fetch.MinPageDelay),
		fetch.WithPageRetries(uint64(a.cfg.Fetch.PageRetries)),
		fetch.WithLogger(log),
	)
	return engine.Integration{Tokens: tokens, Fetcher: fetcher}, nil
}

func (a *app) sinkWriter(ctx context.Context) (*sink.Writer, error) {
	sc := a.cfg.Sink
	backends, err := sink.NewSheetsBackends(ctx, sc.CredentialFiles)
	if err != nil {
		return nil, fmt.Errorf("creating sheets backends: %w", err)
	}
	w, err := sink.NewWriter(backends,
		sink.WithPolicy(sink.Policy{
			BaseDelay:       sc.BaseDelay,
			MaxDelay:        sc.MaxDelay,
			MaxAttempts:     sc.MaxAttempts,
			RotateAfter:     sc.RotateAfter,
			QuotaIndicators: sc.QuotaIndicators,
			ChunkRows:       sc.ChunkRows,
		}),
		sink.WithLogger(a.log.With("component", "sink")),
	)
	if err != nil {
		return nil, fmt.Errorf("creating sink writer: %w", err)
	}
	return w, nil
}

// Close stops the recorder and closes the database pool.
func (a *app) Close() {
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// jobStore returns the database as a job store, or nil without one.
func (a *app) jobStore() store.JobStore {
	if a.db == nil {
		return nil
	}
	return a.db
}

// lifetimeRefresher substitutes configured token lifetimes for the
// platform defaults.
type lifetimeRefresher struct {
	auth.Refresher
	lifetimes credential.Lifetimes
}

func (r lifetimeRefresher) Lifetimes() credential.Lifetimes { return r.lifetimes }

func withLifetimes(r auth.Refresher, pc *config.PlatformConfig) auth.Refresher {
	if pc.AccessLifetime <= 0 && pc.RefreshLifetime <= 0 {
		return r
	}
	lt := r.Lifetimes()
	if pc.AccessLifetime > 0 {
		lt.Access = pc.AccessLifetime
	}
	if pc.RefreshLifetime > 0 {
		lt.Refresh = pc.RefreshLifetime
	}
	return lifetimeRefresher{Refresher: r, lifetimes: lt}
}
