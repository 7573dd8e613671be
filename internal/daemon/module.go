package daemon

import (
	"context"

	"github.com/matheus3301/dchat/internal/backend/local"
	"github.com/matheus3301/dchat/internal/bus"
	"github.com/matheus3301/dchat/internal/config"
	"github.com/matheus3301/dchat/internal/lock"
	"github.com/matheus3301/dchat/internal/logging"
	"github.com/matheus3301/dchat/internal/profile"
	"github.com/matheus3301/dchat/internal/rpc"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx modules.
type Params struct {
	Profile    string
	ConfigPath string // empty = profile.ConfigPath()
	SocketPath string // optional override for testing; empty = use default
	Component  string // log file name; empty = "dchatd"
	Console    bool   // also log to stderr
}

// Core provides the profile's message store and local backend: config,
// logger, bus, profile lock, store, secrets and backend. The backend is
// closed and the lock released on stop.
func Core(p Params) fx.Option {
	return fx.Module("core",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideSecrets,
			provideBackend,
		),
		fx.Invoke(registerCore),
	)
}

// Module returns the fx module for the daemon: Core plus the gRPC server.
func Module(p Params) fx.Option {
	return fx.Options(
		Core(p),
		fx.Module("daemon",
			fx.Provide(provideServer),
			fx.Invoke(registerServer),
		),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = profile.ConfigPath()
	}
	return config.Load(path)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	component := p.Component
	if component == "" {
		component = "dchatd"
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Path:      profile.LogPath(p.Profile, component),
		Profile:   p.Profile,
		Component: component,
		Level:     level,
		Console:   p.Console,
	})
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	owner := p.Component
	if owner == "" {
		owner = "dchatd"
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile), owner)
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore takes the lock so the store is only opened by its holder.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*local.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := local.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideSecrets(p Params, cfg *config.Config, logger *zap.Logger) local.SecretStore {
	if !cfg.Backend.UseKeyring {
		logger.Warn("keyring disabled, passwords are kept in memory only")
		return local.NewMemorySecrets()
	}
	return local.NewKeyringSecrets(p.Profile)
}

func provideBackend(p Params, cfg *config.Config, db *local.DB, b *bus.Bus, secrets local.SecretStore, logger *zap.Logger) (*local.Backend, error) {
	interval, err := cfg.OutboxInterval()
	if err != nil {
		return nil, err
	}
	return local.New(db, b, secrets, logger.Named("backend"), local.Options{
		BlobDir:        profile.BlobDir(p.Profile),
		OutboxInterval: interval,
		ChatWindow:     cfg.Engine.ChatWindow,
		MessageWindow:  cfg.Engine.MessageWindow,
		EventBuffer:    cfg.Engine.QueueCapacity,
	}), nil
}

func registerCore(lc fx.Lifecycle, be *local.Backend, db *local.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			_ = be.Close()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("profile closed")
			_ = logger.Sync()
			return nil
		},
	})
}

func provideServer(p Params, be *local.Backend, logger *zap.Logger) (*rpc.Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = profile.SocketPath(p.Profile)
	}
	return rpc.NewServer(socketPath, be, logger.Named("rpc"), rpc.ServerOptions{Profile: p.Profile})
}

func registerServer(lc fx.Lifecycle, srv *rpc.Server, be *local.Backend, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := be.StartIO(context.Background()); err != nil {
				return err
			}

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Closing the backend ends the event streams so the graceful
			// stop does not wait on them.
			_ = be.Close()
			srv.Stop(ctx)
			logger.Info("daemon stopped")
			return nil
		},
	})
}
