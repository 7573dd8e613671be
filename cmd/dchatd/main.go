package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/dchat/internal/config"
	"github.com/matheus3301/dchat/internal/daemon"
	"github.com/matheus3301/dchat/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	configFlag := flag.String("config", "", "config file path (default $DCHAT_HOME/config.toml)")
	consoleFlag := flag.Bool("console", false, "also log to stderr")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		configPath = profile.ConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	name, err := profile.Resolve(*profileFlag, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			Profile:    name,
			ConfigPath: configPath,
			Console:    *consoleFlag,
		}),
	)

	app.Run()
}
