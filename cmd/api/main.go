package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"commute.trackapp.dev/internal/appconf"
	"commute.trackapp.dev/internal/logging"
)

func main() {
	var (
		configPath = flag.String("f", "", "path to a JSON config file")
		port       = flag.Int("port", 0, "API server port (overrides config)")
		env        = flag.String("env", "", "environment: development, test or production (overrides config)")
		apiKeys    = flag.String("api-keys", "", "comma separated API keys (overrides config)")
		dsn        = flag.String("db", "", "database DSN (overrides config)")
		gtfsPath   = flag.String("gtfs", "", "path to a static GTFS zip (overrides config)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *port != 0 {
		cfg.Port = *port
	}
	if *env != "" {
		e, err := appconf.ParseEnvironment(*env)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg.Env = e
	}
	if *apiKeys != "" {
		cfg.ApiKeys = appconf.ParseAPIKeys(*apiKeys)
	}
	if *dsn != "" {
		cfg.DatabaseDSN = *dsn
	}
	if *gtfsPath != "" {
		cfg.GTFSStaticPath = *gtfsPath
	}
	if *verbose {
		cfg.Verbose = true
	}

	coreApp, err := BuildApplication(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)
	if err := Run(context.Background(), srv, coreApp, api); err != nil {
		logging.LogError(coreApp.Logger, "server exited with error", err)
		os.Exit(1)
	}
}

// loadConfig layers an optional config file and COMMUTE_* variables over the defaults.
func loadConfig(path string) (appconf.Config, error) {
	cfg := appconf.Defaults()
	if path != "" {
		var err error
		if cfg, err = appconf.LoadFromFile(path); err != nil {
			return appconf.Config{}, err
		}
	}
	return appconf.ApplyEnv(cfg)
}
