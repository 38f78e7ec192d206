package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	abook "github.com/homebox/milter-abook"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	builtBy = ""
	conf    = flag.String("config", abook.DefaultConfigPath, "path to the milters config file")
	verFlag = flag.Bool("version", false, "show build version")
)

func init() {
	flag.Parse()
}

func main() {
	if *verFlag {
		fmt.Fprintf(os.Stderr, buildVersion(version, commit, date, builtBy)+"\n")
		return
	}

	cfg, err := abook.LoadConfig(*conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	logger := abook.NewLogger(os.Stdout, cfg.Log.QueueSize, cfg.Log.Policy, cfg.Debug)
	defer logger.Close()

	// A broken datastore must not keep the filter down: the matcher treats a
	// nil gateway as "no matches".
	var gateway abook.Gateway
	driver, dsn := cfg.DriverAndDSN()
	db, err := sql.Open(driver, dsn)
	if err != nil {
		logger.Log("cannot open roundcube database: %s", err)
	} else {
		defer db.Close()
		gateway = abook.NewDBGateway(db)
	}

	srv := &abook.Server{
		SocketPath: cfg.SocketPath,
		Timeout:    cfg.TimeoutDuration(),
		PIDFile:    cfg.PIDFile,
		Debug:      cfg.Debug,
		Hooks:      builtinHooks(cfg.Hooks),
		Gateway:    gateway,
		Logger:     logger,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		srv.Shutdown()
	}()

	if err := srv.Start(); err != nil {
		logger.Log("milter error: %s", err)
		logger.Close()
		os.Exit(1)
	}
}

func builtinHooks(names []string) []abook.Hook {
	var hooks []abook.Hook
	for _, name := range names {
		switch name {
		case "file":
			hooks = append(hooks, &abook.HookFile{})
		case "sqlite":
			hooks = append(hooks, &abook.HookSqlite{})
		default:
			fmt.Fprintf(os.Stderr, "unknown hook: %s\n", name)
		}
	}
	return hooks
}

func buildVersion(version, commit, date, builtBy string) string {
	var result = version
	if commit != "" {
		result = fmt.Sprintf("%s\ncommit: %s", result, commit)
	}
	if date != "" {
		result = fmt.Sprintf("%s\nbuilt at: %s", result, date)
	}
	if builtBy != "" {
		result = fmt.Sprintf("%s\nbuilt by: %s", result, builtBy)
	}
	return result
}
