package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/backend/local"
	"github.com/matheus3301/dchat/internal/bus"
	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/config"
	"github.com/matheus3301/dchat/internal/daemon"
	"github.com/matheus3301/dchat/internal/engine"
	"github.com/matheus3301/dchat/internal/logging"
	"github.com/matheus3301/dchat/internal/login"
	"github.com/matheus3301/dchat/internal/profile"
	"github.com/matheus3301/dchat/internal/projection"
	"github.com/matheus3301/dchat/internal/rpc"
	"github.com/matheus3301/dchat/internal/texcache"
	"github.com/matheus3301/dchat/internal/tui"
	"github.com/matheus3301/dchat/internal/tui/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	configFlag := flag.String("config", "", "config file path (default $DCHAT_HOME/config.toml)")
	embeddedFlag := flag.Bool("embedded", false, "open the profile in-process instead of through dchatd")
	flag.Parse()

	if err := run(*profileFlag, *configFlag, *embeddedFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(profileFlag, configPath string, embedded bool) error {
	if configPath == "" {
		configPath = profile.ConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	name, err := profile.Resolve(profileFlag, cfg)
	if err != nil {
		return err
	}

	var (
		be     backend.Backend
		b      *bus.Bus
		logger *zap.Logger
	)
	if embedded {
		var lb *local.Backend
		app := fx.New(
			fx.NopLogger,
			daemon.Core(daemon.Params{Profile: name, ConfigPath: configPath, Component: "dchat"}),
			fx.Populate(&lb, &b, &logger),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := app.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = app.Stop(context.Background()) }()
		be = lb
	} else {
		if logger, err = clientLogger(name, cfg); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		c, err := connect(name, configPath)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()
		be, b = c, bus.New()
	}

	proj := projection.New()
	mailbox := command.NewMailbox(cfg.Engine.QueueCapacity)
	vm := model.NewViewModel(proj, mailbox)
	eng := engine.New(engine.Deps{
		Backend:    be,
		Projection: proj,
		Tracker:    login.NewTracker(b),
		Mailbox:    mailbox,
		Repainter:  vm,
		Logger:     logger.Named("engine"),
	}, engine.Options{QueueCapacity: cfg.Engine.QueueCapacity})

	cache := texcache.New(texcache.Options{
		Workers: cfg.TexCache.Workers,
		Repaint: vm.RequestRepaint,
		Logger:  logger.Named("texcache"),
	})
	defer cache.Close()

	app := tui.NewApp(vm, eng, be, tui.Options{
		Profile: name,
		Cache:   cache,
		Bus:     b,
		Logger:  logger.Named("tui"),
	})
	return app.Run()
}

func clientLogger(name string, cfg *config.Config) (*zap.Logger, error) {
	if err := profile.EnsureDir(name); err != nil {
		return nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		Path:      profile.LogPath(name, "dchat"),
		Profile:   name,
		Component: "dchat",
		Level:     level,
	})
}

// connect dials the profile's daemon, starting it when it does not answer.
func connect(name, configPath string) (*rpc.Client, error) {
	socketPath := profile.SocketPath(name)
	if !probeDaemon(socketPath) {
		fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", name)
		if err := startDaemon(name, configPath); err != nil {
			return nil, fmt.Errorf("start daemon: %w", err)
		}
		if !waitForDaemon(socketPath, 10*time.Second) {
			return nil, fmt.Errorf("daemon did not become ready")
		}
	}
	return rpc.Dial(socketPath)
}

// probeDaemon checks that a daemon is running and responsive on the socket.
func probeDaemon(socketPath string) bool {
	c, err := rpc.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Status(ctx)
	return err == nil
}

func startDaemon(name, configPath string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	dchatd := filepath.Join(filepath.Dir(executable), "dchatd")
	if _, err := os.Stat(dchatd); err != nil {
		dchatd = "dchatd"
	}

	cmd := exec.Command(dchatd, "--profile", name, "--config", configPath)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls the daemon with a real RPC, not just a socket connect.
func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
