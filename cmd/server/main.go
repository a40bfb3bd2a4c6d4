package main

import (
	"flag"
	"log"
	"log/slog"

	"github.com/tidesql/tidesql"
	"github.com/tidesql/tidesql/internal"
	"github.com/tidesql/tidesql/server/tidewire"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "path to yaml config file")
		addr    = flag.String("addr", ":5432", "listen address")
		mode    = flag.String("mode", tidesql.ModeMemory, "storage mode: memory or disk")
		workdir = flag.String("workdir", "./data", "data directory for disk mode")
	)
	flag.Parse()

	if *cfgPath != "" {
		cfg, err := internal.LoadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		*addr = cfg.Server.Addr
		*mode = cfg.Storage.Mode
		*workdir = cfg.Storage.Workdir
		if cfg.Server.Debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	db, err := tidesql.Open(*mode, *workdir)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := tidewire.Run(tidewire.Config{Addr: *addr}, db); err != nil {
		log.Fatalf("server: %v", err)
	}
}
