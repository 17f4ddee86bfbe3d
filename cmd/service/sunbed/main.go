package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
	"github.com/rschio/sunbed/internal/backup"
	"github.com/rschio/sunbed/internal/core/customer"
	"github.com/rschio/sunbed/internal/core/customer/store/customerdb"
	"github.com/rschio/sunbed/internal/core/minutes"
	"github.com/rschio/sunbed/internal/core/plan"
	"github.com/rschio/sunbed/internal/core/plan/store/plandb"
	"github.com/rschio/sunbed/internal/data/dbschema"
	db "github.com/rschio/sunbed/internal/data/dbsql/sqlite"
	"github.com/rschio/sunbed/internal/export"
	"github.com/rschio/sunbed/internal/handlers"
	"github.com/rschio/sunbed/internal/logger"
	"github.com/rschio/sunbed/internal/trace"
	"github.com/rschio/sunbed/internal/update"
	"github.com/spf13/afero"
)

var build = "develop"

type config struct {
	conf.Version
	Env string `conf:"default:DEV"`
	Web struct {
		Port            int           `conf:"default:8080"`
		ShutdownTimeout time.Duration `conf:"default:20s"`
		SessionIdle     time.Duration `conf:"default:30m"`
	}
	DB struct {
		DataDir     string        `conf:"default:./data"`
		Name        string        `conf:"default:sunbed.db"`
		BusyTimeout time.Duration `conf:"default:5s"`
	}
	Backup struct {
		Keep     int  `conf:"default:7"`
		Disabled bool `conf:"default:false"`
	}
	Update struct {
		ManifestURL string
	}
	Trace struct {
		Endpoint       string
		SampleFraction float64 `conf:"default:0.05"`
	}
	Args conf.Args
}

func main() {
	log := logger.New("SUNBED")

	if err := run(log); err != nil {
		log.Error("startup", "ERROR", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx := context.Background()

	// =========================================================================
	// Configuration

	cfg := config{
		Version: conf.Version{
			Build: build,
			Desc:  "tanning salon minutes ledger",
		},
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	const prefix = "SUNBED"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Info("starting service", "version", build)
	defer log.Info("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Info("startup", "config", out)

	// =========================================================================
	// Tracing Support

	tracer, flush, err := trace.Start(ctx, trace.Config{
		Env:            cfg.Env,
		Endpoint:       cfg.Trace.Endpoint,
		Service:        "sunbed",
		SampleFraction: cfg.Trace.SampleFraction,
	})
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer flush(context.Background())

	// =========================================================================
	// Database Support

	if err := os.MkdirAll(cfg.DB.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	dbPath := filepath.Join(cfg.DB.DataDir, cfg.DB.Name)

	log.Info("startup", "status", "initializing database support", "path", dbPath)

	database, err := db.Open(db.Config{
		Path:        dbPath,
		BusyTimeout: cfg.DB.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Info("shutdown", "status", "stopping database support", "path", dbPath)
		database.Close()
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.StatusCheck(ctxWithTimeout, database); err != nil {
		return fmt.Errorf("database not health: %w", err)
	}

	if err := dbschema.Migrate(database.DB); err != nil {
		return fmt.Errorf("migrating error: %w", err)
	}

	// =========================================================================
	// Jobs

	fs := afero.NewBasePathFs(afero.NewOsFs(), cfg.DB.DataDir)

	customers := customer.NewCore(customerdb.NewStore(log, database))
	plans := plan.NewCore(plandb.NewStore(log, database))

	exportJob := export.NewJob(log, fs, customers, plans)
	backupJob := backup.NewJob(log, fs, cfg.DB.Name, cfg.Backup.Keep)

	switch cmd := cfg.Args.Num(0); cmd {
	case "", "serve":
	case "migrate":
		log.Info("migrate", "status", "database is up to date")
		return nil
	case "export":
		name, err := exportJob.Run(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Println(filepath.Join(cfg.DB.DataDir, name))
		return nil
	case "backup":
		rep, err := backupJob.Exec(time.Now())
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		log.Info("backup", "file", rep.File, "written", rep.Written, "removed", len(rep.Removed))
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	// =========================================================================
	// Start Background Work

	var sched *backup.Scheduler
	if !cfg.Backup.Disabled {
		sched = backup.NewScheduler(log, backupJob)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("starting backup scheduler: %w", err)
		}
	}

	if cfg.Update.ManifestURL != "" {
		update.Run(ctx, log, update.HTTPChecker{URL: cfg.Update.ManifestURL}, build)
	}

	// =========================================================================
	// Start API Service

	log.Info("startup", "status", "initializing SUNBED API support")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	srv := handlers.NewServer(handlers.Config{
		Log:       log,
		Customers: customers,
		Plans:     plans,
		Sessions:  minutes.NewRegistry(customers, plans, cfg.Web.SessionIdle),
		Export:    exportJob,
		Backup:    backupJob,
	})
	mux := handlers.APIMux(srv, tracer)

	api := http.Server{
		Addr:     fmt.Sprintf("localhost:%d", cfg.Web.Port),
		Handler:  mux,
		ErrorLog: logger.StdLogger(log, slog.LevelInfo),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Info("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Info("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if sched != nil {
			if err := sched.Stop(ctx); err != nil {
				log.Error("shutdown", "status", "backup scheduler did not stop", "ERROR", err)
			}
		}

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}
