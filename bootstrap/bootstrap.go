// Package bootstrap wires all dependencies and starts the application.
// Databases named in the configuration are opened, their tables discovered
// and served by the admin panel.
package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/artpar/autoadmin/adapters/auth"
	"github.com/artpar/autoadmin/adapters/hasher"
	"github.com/artpar/autoadmin/adapters/memory"
	"github.com/artpar/autoadmin/adapters/metrics"
	"github.com/artpar/autoadmin/adapters/mongo"
	"github.com/artpar/autoadmin/adapters/random"
	"github.com/artpar/autoadmin/adapters/sqlite"
	"github.com/artpar/autoadmin/admin"
	"github.com/artpar/autoadmin/config"
	"github.com/artpar/autoadmin/core/discovery"
	"github.com/artpar/autoadmin/core/resource"
	"github.com/artpar/autoadmin/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Settings   *config.Config
	Admin      *admin.Admin
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Registry   *prometheus.Registry

	holder  *config.Holder
	closers []closer
}

type closer struct {
	name  string
	close func(context.Context) error
}

// Config provides optional configuration for application initialization.
type Config struct {
	// Settings is the loaded configuration. Required.
	Settings *config.Config

	// ConfigPath enables hot reload of logging.level from the file and on
	// SIGHUP.
	ConfigPath string

	// Logger overrides the logger built from Settings.Logging.
	Logger *zerolog.Logger
}

// databaseHandle is one opened database.
type databaseHandle struct {
	cfg    config.DatabaseConfig
	sqlite *sqlite.DB
	mongo  *mongo.Database
}

// raw returns the connection handed to the admin for discovery.
func (d databaseHandle) raw() any {
	if d.sqlite != nil {
		return d.sqlite
	}
	return d.mongo
}

// model returns the raw model of one table or collection.
func (d databaseHandle) model(table string) any {
	if d.sqlite != nil {
		return sqlite.Table{DB: d.sqlite, Name: table}
	}
	return d.mongo.Collection(table)
}

// New loads configuration from path (or the environment) and creates the
// application.
func New(path string) (*App, error) {
	settings, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); path == "" || statErr != nil {
		path = ""
	}
	return NewWithConfig(Config{Settings: settings, ConfigPath: path})
}

// NewWithConfig creates and initializes the application.
func NewWithConfig(cfg Config) (*App, error) {
	if cfg.Settings == nil {
		return nil, fmt.Errorf("bootstrap: settings are required")
	}
	s := cfg.Settings

	logger := setupLogger(s.Logging)
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger.Info().Msg("initializing autoadmin")

	a := &App{Logger: logger, Settings: s}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	handles, err := a.openDatabases(ctx)
	if err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("open databases: %w", err)
	}

	if err := a.initAdmin(handles); err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("init admin: %w", err)
	}

	if s.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Metrics = metrics.NewWithRegistry(a.Registry)
		a.recordResources()
		logger.Info().Str("path", s.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if err := a.initHTTPServer(); err != nil {
		a.closeAll(context.Background())
		return nil, fmt.Errorf("init http server: %w", err)
	}

	if cfg.ConfigPath != "" {
		holder, err := config.NewHolder(cfg.ConfigPath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("config hot reload disabled")
		} else {
			holder.OnChange(applyLogLevel)
			a.holder = holder
		}
	}

	return a, nil
}

func (a *App) openDatabases(ctx context.Context) ([]databaseHandle, error) {
	handles := make([]databaseHandle, 0, len(a.Settings.Databases))
	for _, dbCfg := range a.Settings.Databases {
		h := databaseHandle{cfg: dbCfg}

		switch dbCfg.Driver {
		case config.DriverSQLite:
			db, err := sqlite.Open(dbCfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", dbCfg.Name, err)
			}
			db.Name = dbCfg.Name
			h.sqlite = db
			a.closers = append(a.closers, closer{dbCfg.Name, func(context.Context) error { return db.Close() }})

		case config.DriverMongo:
			db, client, err := mongo.Connect(ctx, dbCfg.URI, dbCfg.Database)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", dbCfg.Name, err)
			}
			if dbCfg.SampleSize > 0 {
				db.SampleSize = dbCfg.SampleSize
			}
			h.mongo = db
			a.closers = append(a.closers, closer{dbCfg.Name, disconnect(client)})

		default:
			return nil, fmt.Errorf("%s: unsupported driver %q", dbCfg.Name, dbCfg.Driver)
		}

		a.Logger.Info().
			Str("name", dbCfg.Name).
			Str("driver", dbCfg.Driver).
			Bool("discover", dbCfg.Discovers()).
			Msg("database opened")
		handles = append(handles, h)
	}
	return handles, nil
}

func disconnect(client *mongodriver.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Disconnect(ctx)
	}
}

// adminOptions translates the configuration into admin options.
func (a *App) adminOptions(handles []databaseHandle) admin.Options {
	s := a.Settings
	byName := make(map[string]databaseHandle, len(handles))

	opts := admin.Options{
		RootPath:   s.Admin.RootPath,
		LoginPath:  s.Admin.LoginPath,
		LogoutPath: s.Admin.LogoutPath,
		Branding: admin.Branding{
			LogoURL:          s.Admin.Branding.LogoURL,
			CompanyName:      s.Admin.Branding.CompanyName,
			SoftwareBrothers: s.Admin.Branding.ShowFooter,
		},
		Adapters: []resource.Adapter{
			sqlite.Adapter{},
			mongo.Adapter{},
			memory.Adapter{},
		},
	}

	// Sign-in pages follow a custom root unless placed explicitly.
	if root := strings.TrimRight(s.Admin.RootPath, "/"); root != "" {
		if opts.LoginPath == "" {
			opts.LoginPath = root + "/login"
		}
		if opts.LogoutPath == "" {
			opts.LogoutPath = root + "/logout"
		}
	}

	for _, h := range handles {
		byName[h.cfg.Name] = h
		if h.cfg.Discovers() {
			opts.Databases = append(opts.Databases, h.raw())
		}
	}
	for _, r := range s.Resources {
		opts.Resources = append(opts.Resources, discovery.ResourceWithDecorator{
			Resource:  byName[r.Database].model(r.Table),
			Decorator: resource.Decorate(r.DecoratorOptions),
		})
	}
	return opts
}

func (a *App) initAdmin(handles []databaseHandle) error {
	adm, err := admin.New(a.adminOptions(handles), admin.WithLogger(a.Logger))
	if err != nil {
		return err
	}
	a.Admin = adm
	return nil
}

// recordResources publishes the number of resources per database type.
func (a *App) recordResources() {
	counts := make(map[string]int)
	for _, r := range a.Admin.Resources() {
		counts[r.DatabaseType()]++
	}
	for dbType, n := range counts {
		a.Metrics.ResourcesDiscovered.WithLabelValues(dbType).Set(float64(n))
	}
}

func (a *App) initHTTPServer() error {
	s := a.Settings

	secret := s.Auth.JWTSecret
	if secret == "" {
		generated, err := auth.GenerateSecret(random.Real{})
		if err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		secret = generated
		a.Logger.Warn().Msg("auth.jwt_secret not set, sessions end on restart")
	}
	sessions, err := auth.NewSessions(secret, s.Auth.SessionTTL)
	if err != nil {
		return err
	}

	users := make([]auth.AdminUser, 0, len(s.Auth.Admins))
	for _, u := range s.Auth.Admins {
		users = append(users, auth.AdminUser{Email: u.Email, PasswordHash: u.PasswordHash, Role: u.Role})
	}
	authenticator := auth.NewStaticAuthenticator(users, hasher.NewBcrypt(0))

	handler, err := web.NewHandler(web.Deps{
		Admin:         a.Admin,
		Authenticator: authenticator,
		Sessions:      sessions,
		Metrics:       a.Metrics,
		Logger:        a.Logger,
		SecureCookies: s.Server.SecureCookies,
	})
	if err != nil {
		return err
	}

	routerCfg := web.RouterConfig{
		Metrics:     a.Metrics,
		MetricsPath: s.Metrics.Path,
		Timeout:     s.Server.RequestTimeout,
	}
	if a.Registry != nil {
		routerCfg.Gatherer = a.Registry
	}
	router := web.NewRouter(handler, a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         net.JoinHostPort(s.Server.Host, strconv.Itoa(s.Server.Port)),
		Handler:      router,
		ReadTimeout:  s.Server.ReadTimeout,
		WriteTimeout: s.Server.WriteTimeout,
	}
	return nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	if a.holder != nil {
		if err := a.holder.Watch(); err != nil {
			a.Logger.Warn().Err(err).Msg("config hot reload disabled")
		}
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Str("admin", a.Admin.Helpers().RootURL()).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
		a.holder = nil
	}

	// Shutdown HTTP server
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.closeAll(ctx)

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// closeAll closes databases in reverse order of opening.
func (a *App) closeAll(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(ctx); err != nil {
			a.Logger.Error().Err(err).Str("database", c.name).Msg("database close error")
		}
	}
	a.closers = nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	applyLogLevel(&config.Config{Logging: cfg})

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// applyLogLevel sets the global level; it is the reload hook for
// logging.level.
func applyLogLevel(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
