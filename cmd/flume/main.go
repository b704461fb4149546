package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/soochol/flume/internal/api"
	"github.com/soochol/flume/internal/config"
	"github.com/soochol/flume/internal/flow"
	"github.com/soochol/flume/internal/pipeline"
	"github.com/soochol/flume/internal/procs"
	"github.com/soochol/flume/internal/runhistory"
	"github.com/soochol/flume/internal/sched"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			serve()
			return
		case "run":
			if len(os.Args) > 2 {
				runOnce(os.Args[2])
				return
			}
		}
	}
	fmt.Println("flume v0.1.0")
	fmt.Println("Usage:")
	fmt.Println("  flume serve               start the API server and scheduler")
	fmt.Println("  flume run <pipeline.yaml> execute one pipeline and print its outputs")
}

func newRunner(store *pipeline.Store, history runhistory.Repository) (*pipeline.Runner, error) {
	reg := flow.NewRegistry()
	if err := procs.RegisterDefaults(reg); err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, reg, history), nil
}

// runOnce executes a single pipeline definition file and prints the run
// record.
func runOnce(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("read pipeline", "path", path, "err", err)
		os.Exit(1)
	}
	def, err := pipeline.Parse(data)
	if err != nil {
		slog.Error("parse pipeline", "path", path, "err", err)
		os.Exit(1)
	}

	store := pipeline.NewStore()
	if err := store.Put(def); err != nil {
		slog.Error("store pipeline", "err", err)
		os.Exit(1)
	}
	runner, err := newRunner(store, runhistory.NewMemoryRepository())
	if err != nil {
		slog.Error("setup", "err", err)
		os.Exit(1)
	}

	rec, err := runner.Run(context.Background(), def.Name, "manual", "")
	if err != nil {
		slog.Error("run failed", "pipeline", def.Name, "err", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(rec, "", "  ")
	fmt.Println(string(out))
}

func serve() {
	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	var history runhistory.Repository = runhistory.NewMemoryRepository()
	if cfg.Database.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := runhistory.OpenPostgres(ctx, cfg.Database.URL)
		cancel()
		if err != nil {
			slog.Warn("database unavailable, using in-memory run history", "err", err)
		} else {
			defer pg.Close()
			history = runhistory.NewFallbackRepository(runhistory.NewMemoryRepository(), pg)
			slog.Info("database connected", "url", cfg.Database.URL)
		}
	}

	store := pipeline.NewStore()
	loadPipelineDir(store, cfg.Pipelines.Dir)

	runner, err := newRunner(store, history)
	if err != nil {
		slog.Error("setup", "err", err)
		os.Exit(1)
	}

	scheduler := sched.New(runner)
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(runner, scheduler)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	slog.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

// loadPipelineDir loads every *.yaml definition in dir. A missing
// directory is fine; individual bad files are skipped with a warning.
func loadPipelineDir(store *pipeline.Store, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("pipeline directory unreadable", "dir", dir, "err", err)
		}
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("pipeline unreadable", "path", path, "err", err)
			continue
		}
		def, err := pipeline.Parse(data)
		if err != nil {
			slog.Warn("pipeline invalid", "path", path, "err", err)
			continue
		}
		if err := store.Put(def); err != nil {
			slog.Warn("pipeline rejected", "path", path, "err", err)
			continue
		}
		slog.Info("pipeline loaded", "name", def.Name, "path", path)
	}
}
