// Package cli wires the Scheduler and its collaborators into the `woven`
// binary's `run`/`validate` subcommands, the way the teacher's
// internal/cli/root.go wires an orchestrator.Config from Cobra/Viper flags.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/danrygg/wovenflow/internal/dispatcher"
	"github.com/danrygg/wovenflow/internal/listener"
	"github.com/danrygg/wovenflow/internal/metrics"
	"github.com/danrygg/wovenflow/internal/registry"
	"github.com/danrygg/wovenflow/internal/scheduler"
	"github.com/danrygg/wovenflow/internal/store/cache"
	"github.com/danrygg/wovenflow/internal/store/checkpoint"
	"github.com/danrygg/wovenflow/internal/store/events"
	"github.com/danrygg/wovenflow/internal/store/migrations"
	"github.com/danrygg/wovenflow/internal/variables"
	"github.com/danrygg/wovenflow/pkg/logging"
)

// PostgresConfig carries the --postgres-* flag family.
type PostgresConfig struct {
	DBName   string
	User     string
	Password string
	Hostname string
}

func (p PostgresConfig) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", p.User, p.Password, p.Hostname, p.DBName)
}

// EngineConfig bundles every `run`/`validate` flag that shapes which Event,
// Checkpoint, and Cache Store backends the Scheduler is built against.
type EngineConfig struct {
	CacheProvider       string // memory | sqlite | postgres | embedded-kv
	PersistenceProvider string // memory | sqlite | postgres | embedded-kv
	SQLiteDBURL         string
	Postgres            PostgresConfig
	NoCache             bool
	SecretsFile         string
	Logger              logging.Logger
}

// Engine bundles the constructed Scheduler plus everything that must be
// closed when the CLI command returns.
type Engine struct {
	Scheduler *scheduler.Scheduler
	Registry  *registry.Registry

	closers []func() error
}

func (e *Engine) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BuildEngine constructs a Scheduler wired to the Event/Checkpoint/Cache
// Store backends named by cfg, registers the default Call/Run executors
// (spec.md §4.3.1), and loads $secrets if a --secrets-file was given.
func BuildEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	eng := &Engine{}

	eventStore, closeEvents, err := openEventStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	eng.closers = append(eng.closers, closeEvents)

	checkpointStore, closeCheckpoint, err := openCheckpointStore(ctx, cfg)
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	eng.closers = append(eng.closers, closeCheckpoint)

	cacheStore, closeCache, err := openCacheStore(ctx, cfg)
	if err != nil {
		_ = eng.Close()
		return nil, err
	}
	eng.closers = append(eng.closers, closeCache)

	secrets, err := loadSecrets(cfg.SecretsFile)
	if err != nil {
		_ = eng.Close()
		return nil, err
	}

	reg := registry.New(registry.NewFSFactory(registry.FSConfig{}), registry.NewYAMLParser())

	d := dispatcher.New()
	httpExec := dispatcher.NewHTTPExecutor(nil)
	d.RegisterCall("http", httpExec)
	d.RegisterCall("openapi", dispatcher.NewOpenAPIExecutor(httpExec))
	d.RegisterCall("grpc", dispatcher.NewGRPCExecutor())
	d.RegisterRun("shell", dispatcher.NewShellExecutor())
	if containerExec, err := dispatcher.NewContainerExecutor(); err == nil {
		d.RegisterRun("container", containerExec)
	} else if cfg.Logger != nil {
		cfg.Logger.Warn("container executor unavailable, Run: container tasks will fail").Err(err).Send()
	}

	sched := scheduler.New(scheduler.Config{
		Events:     eventStore,
		Checkpoint: checkpointStore,
		Cache:      cache.NewCoordinator(cacheStore),
		Dispatcher: d,
		Listener:   listener.New(cfg.Logger),
		Registry:   reg,
		Metrics:    metrics.Noop(),
		Logger:     cfg.Logger,
		Secrets:    secrets,
	})
	d.RegisterRun("workflow", dispatcher.NewWorkflowExecutor(sched))
	d.SetFunctionResolver(sched)

	eng.Scheduler = sched
	eng.Registry = reg
	return eng, nil
}

func loadSecrets(path string) (map[string]interface{}, error) {
	if path == "" {
		return nil, nil
	}
	loader := variables.New("")
	return loader.LoadVariableFile(path)
}

func openEventStore(ctx context.Context, cfg EngineConfig) (events.Store, func() error, error) {
	switch cfg.PersistenceProvider {
	case "", "memory":
		s := events.NewMemoryStore()
		return s, s.Close, nil
	case "sqlite", "embedded-kv":
		s, err := events.OpenSQLiteStore(cfg.SQLiteDBURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		pool, err := postgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return events.NewPostgresStore(pool), func() error { pool.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("cli: unknown --persistence-provider %q", cfg.PersistenceProvider)
	}
}

func openCheckpointStore(ctx context.Context, cfg EngineConfig) (checkpoint.Store, func() error, error) {
	switch cfg.PersistenceProvider {
	case "", "memory":
		s := checkpoint.NewMemoryStore()
		return s, s.Close, nil
	case "sqlite", "embedded-kv":
		s, err := checkpoint.OpenSQLiteStore(cfg.SQLiteDBURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		pool, err := postgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return checkpoint.NewPostgresStore(pool), func() error { pool.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("cli: unknown --persistence-provider %q", cfg.PersistenceProvider)
	}
}

func openCacheStore(ctx context.Context, cfg EngineConfig) (cache.Store, func() error, error) {
	if cfg.NoCache {
		return cache.NewNullStore(), func() error { return nil }, nil
	}
	switch cfg.CacheProvider {
	case "", "memory":
		s := cache.NewMemoryStore()
		return s, s.Close, nil
	case "sqlite", "embedded-kv":
		s, err := cache.OpenSQLiteStore(cfg.SQLiteDBURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		pool, err := postgresPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewPostgresStore(pool), func() error { pool.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("cli: unknown --cache-provider %q", cfg.CacheProvider)
	}
}

// postgresPool applies the event/checkpoint/cache schema via goose (through
// a stdlib *sql.DB wrapping the same DSN) before opening the pgx pool the
// Stores actually query through.
func postgresPool(ctx context.Context, pgCfg PostgresConfig) (*pgxpool.Pool, error) {
	dsn := pgCfg.dsn()

	migrateDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("cli: open postgres for migrations: %w", err)
	}
	defer migrateDB.Close()
	if err := migrations.Up(migrateDB); err != nil {
		return nil, fmt.Errorf("cli: apply postgres migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cli: open postgres pool: %w", err)
	}
	return pool, nil
}
