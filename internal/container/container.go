// Package container builds the infrastructure the HTTP modules are wired from.
// Everything is constructed once at startup and passed explicitly; there are no package globals.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pks-portal/config"
	"github.com/oksasatya/pks-portal/internal/application"
	repo "github.com/oksasatya/pks-portal/internal/domain/repository"
	"github.com/oksasatya/pks-portal/internal/infrastructure/cache"
	pginfra "github.com/oksasatya/pks-portal/internal/infrastructure/postgres"
	"github.com/oksasatya/pks-portal/internal/infrastructure/search"
	"github.com/oksasatya/pks-portal/internal/infrastructure/storage"
	"github.com/oksasatya/pks-portal/internal/realtime"
	"github.com/oksasatya/pks-portal/pkg/helpers"
)

// Container holds the shared components. Optional collaborators (Redis, Mail, Index, Cache)
// are nil when disabled or unreachable; the services tolerate that.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	JWT    *helpers.JWTManager

	Users  repo.UserRepository
	PKS    repo.PKSRepository
	Audits repo.AuditRepository

	Hub    *realtime.Hub
	Broker *realtime.RedisBroker
	Events application.EventPublisher
	Files  storage.FileStore
	Index  application.SubmissionIndex
	Mail   application.MailQueue
	Cache  application.StatsCache

	closers []func()
}

// New connects to Postgres, runs migrations and builds the optional integrations.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	c := &Container{
		Config: cfg,
		Logger: logger,
		JWT:    helpers.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL),
		Hub:    realtime.NewHub(logger),
	}

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	c.Pool = pool
	c.onClose(pool.Close)
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		c.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	c.Users = pginfra.NewUserRepository(pool)
	c.PKS = pginfra.NewPKSRepository(pool)
	c.Audits = pginfra.NewAuditRepository(pool)

	c.initRedis(ctx)
	if err := c.initStorage(ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.initSearch()
	c.initMail()
	return c, nil
}

func (c *Container) onClose(fn func()) { c.closers = append(c.closers, fn) }

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Container) initRedis(ctx context.Context) {
	c.Events = c.Hub
	if !c.Config.RedisEnabled {
		return
	}
	rdb := helpers.NewRedisClient(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		helpers.LogWarn(c.Logger, "redis unavailable; rate limiting, cache and cross-instance events disabled", err, logrus.Fields{"addr": c.Config.RedisAddr})
		_ = rdb.Close()
		return
	}
	c.Redis = rdb
	c.onClose(func() { _ = rdb.Close() })
	c.Broker = realtime.NewRedisBroker(rdb, c.Config.RealtimeTopic, c.Hub, c.Logger)
	c.Events = c.Broker
	c.Cache = cache.NewRedisCache(rdb, c.Config.AppName+":")
}

func (c *Container) initStorage(ctx context.Context) error {
	cfg := c.Config
	switch cfg.StorageDriver {
	case "", "local":
		local, err := storage.NewLocal(cfg.UploadDir, cfg.BaseURL)
		if err != nil {
			return err
		}
		c.Files = local
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return fmt.Errorf("failed to init GCS client: %w", err)
		}
		c.onClose(func() { _ = client.Close() })
		c.Files = storage.NewGCS(client, cfg.GCSBucket)
	case "minio":
		client, err := storage.NewMinioClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return fmt.Errorf("failed to init minio client: %w", err)
		}
		m, err := storage.NewMinio(ctx, client, cfg.MinioBucket, cfg.MinioPublicURL)
		if err != nil {
			return fmt.Errorf("failed to prepare minio bucket: %w", err)
		}
		c.Files = m
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	helpers.LogInfo(c.Logger, "file storage ready", logrus.Fields{"driver": cfg.StorageDriver})
	return nil
}

func (c *Container) initSearch() {
	if !c.Config.ElasticsearchEnabled {
		return
	}
	es, err := helpers.NewESClient(c.Config.ESAddrs(), c.Config.ElasticsearchUser, c.Config.ElasticsearchPass)
	if err != nil {
		helpers.LogWarn(c.Logger, "elasticsearch disabled", err, nil)
		return
	}
	c.Index = search.NewPKSIndex(es, c.Config.ESPKSIndex, c.Logger)
}

func (c *Container) initMail() {
	if !c.Config.MailSendEnabled {
		return
	}
	pub, err := helpers.NewRabbitPublisher(c.Config.RabbitMQURL, c.Config.RabbitMQEmailQueue, c.Config.AppName)
	if err != nil {
		helpers.LogWarn(c.Logger, "rabbitmq unavailable; emails will not be queued", err, nil)
		return
	}
	c.onClose(pub.Close)
	c.Mail = pub
}
