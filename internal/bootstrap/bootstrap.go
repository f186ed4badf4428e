// Package bootstrap wires infrastructure shared by the server, the worker
// and the CLI: logging, storage, caches and the AI advisor.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/mektep-hub/mektep-monitor/config"
	"github.com/mektep-hub/mektep-monitor/internal/application/advisor"
	"github.com/mektep-hub/mektep-monitor/internal/domain/psychology"
	"github.com/mektep-hub/mektep-monitor/internal/domain/student"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/external/groq"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/importer"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/persistence/memory"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/persistence/postgres"
	"github.com/mektep-hub/mektep-monitor/internal/infrastructure/persistence/redis"
	"github.com/mektep-hub/mektep-monitor/pkg/logger"
)

// Logger builds the process logger from the observability settings.
func Logger(cfg *config.Config) *logger.Logger {
	return logger.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

// Store is the selected persistence backend.
type Store struct {
	Students   student.Repository
	Psychology psychology.Store

	// DB is nil when the in-memory backend is used.
	DB *postgres.Connection
}

// Close releases the database pool, if any.
func (s *Store) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

// OpenDatabase connects to PostgreSQL with the configured pool settings.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*postgres.Connection, error) {
	pgCfg := postgres.DefaultConfig(cfg.URL)
	if cfg.MaxConns > 0 {
		pgCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pgCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	pgCfg.QueryTimeout = cfg.QueryTimeout

	return postgres.NewConnection(ctx, pgCfg)
}

// OpenStore selects PostgreSQL when a database URL is configured and the
// in-memory store seeded from Data.StudentsFile (or the demo roster) otherwise.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Store, error) {
	if cfg.Database.URL == "" {
		seed, source, err := loadSeed(cfg.Data.StudentsFile)
		if err != nil {
			return nil, err
		}
		log.Info("using in-memory store",
			logger.String("seed", source),
			logger.Int("students", len(seed)),
		)
		return &Store{
			Students:   memory.NewStudentRepository(seed...),
			Psychology: memory.NewPsychologyStore(),
		}, nil
	}

	conn, err := OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		log.Info("database schema is up to date", logger.Int("applied", applied))
	}

	log.Info("using postgres store")
	return &Store{
		Students:   postgres.NewStudentRepository(conn),
		Psychology: postgres.NewPsychologyStore(conn),
		DB:         conn,
	}, nil
}

func loadSeed(path string) ([]student.Student, string, error) {
	if path == "" {
		seed, err := importer.Demo()
		if err != nil {
			return nil, "", fmt.Errorf("load demo roster: %w", err)
		}
		return seed, "demo", nil
	}
	seed, err := importer.LoadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("load %s: %w", path, err)
	}
	return seed, path, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE
// ══════════════════════════════════════════════════════════════════════════════

// OpenCache connects to Redis unless it is disabled. A nil cache with a nil
// error means the process runs without Redis.
func OpenCache(ctx context.Context, cfg config.RedisConfig) (*redis.Cache, error) {
	if cfg.Disabled {
		return nil, nil
	}
	return redis.NewCache(ctx, redis.Config{
		URL:          cfg.URL,
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADVISOR
// ══════════════════════════════════════════════════════════════════════════════

// NewGroqClient returns nil when no API key is configured.
func NewGroqClient(cfg config.AdvisorConfig, log *logger.Logger) *groq.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	gc := groq.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		gc.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		gc.Model = cfg.Model
	}
	gc.Temperature = cfg.Temperature
	if cfg.MaxTokens > 0 {
		gc.MaxTokens = cfg.MaxTokens
	}
	gc.MaxRetries = cfg.MaxRetries
	if cfg.RetryBaseDelay > 0 {
		gc.RetryBaseDelay = cfg.RetryBaseDelay
	}
	if cfg.CircuitBreakerThreshold > 0 {
		gc.CircuitBreakerThreshold = cfg.CircuitBreakerThreshold
	}
	if cfg.CircuitBreakerTimeout > 0 {
		gc.CircuitBreakerTimeout = cfg.CircuitBreakerTimeout
	}
	if cfg.CircuitBreakerSuccesses > 0 {
		gc.CircuitBreakerSuccesses = cfg.CircuitBreakerSuccesses
	}
	return groq.NewClient(gc, log)
}

// NewAdvisorService builds the analysis service. cache may be nil; without
// an API key every answer comes from the rules.
func NewAdvisorService(cfg *config.Config, cache *redis.Cache, log *logger.Logger) *advisor.Service {
	var (
		adv      advisor.Advisor
		narrator advisor.Narrator
		ac       advisor.Cache
		model    = cfg.Advisor.Model
	)

	if client := NewGroqClient(cfg.Advisor, log); client != nil {
		adv, narrator = client, client
		model = client.Model()
		log.Info("AI advisor enabled", logger.String("model", model))
	} else {
		log.Info("AI advisor disabled, using rule-based texts")
	}

	if cache != nil {
		ac = redis.NewAnalysisCache(cache, model, cfg.Redis.AnalysisTTL)
	}

	return advisor.NewService(adv, narrator, ac, cfg.Features, advisor.Config{Timeout: cfg.Advisor.Timeout}, log)
}
