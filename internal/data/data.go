package data

import (
	"context"
	"fmt"
	"time"

	auditdata "github.com/lk2023060901/stage-portal-backend/internal/auditlog/data"
	"github.com/lk2023060901/stage-portal-backend/internal/conf"
	emaildata "github.com/lk2023060901/stage-portal-backend/internal/email/data"
	pkgminio "github.com/lk2023060901/stage-portal-backend/internal/pkg/minio"
	settingsdata "github.com/lk2023060901/stage-portal-backend/internal/settings/data"
	uploaddata "github.com/lk2023060901/stage-portal-backend/internal/upload/data"
	userdata "github.com/lk2023060901/stage-portal-backend/internal/user/data"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Data struct {
	DB          *gorm.DB
	RedisClient *redis.Client
	MinIOClient *pkgminio.Client
	Logger      *zap.Logger
}

func NewData(config *conf.Config, log *zap.Logger) (*Data, func(), error) {
	db, err := initDB(config, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	redisClient := initRedis(config)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	minioClient, err := pkgminio.NewClient(context.Background(), pkgminio.Config{
		Endpoint:  config.MinIO.Endpoint,
		AccessKey: config.MinIO.AccessKey,
		SecretKey: config.MinIO.SecretKey,
		UseSSL:    config.MinIO.UseSSL,
		Bucket:    config.MinIO.Bucket,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}

	d := &Data{
		DB:          db,
		RedisClient: redisClient,
		MinIOClient: minioClient,
		Logger:      log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}

		if redisClient != nil {
			redisClient.Close()
		}
	}

	return d, cleanup, nil
}

func initDB(config *conf.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(config.Database.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&userdata.UserPO{},
		&emaildata.CredentialPO{},
		&settingsdata.SettingPO{},
		&auditdata.EntryPO{},
		&uploaddata.UploadPO{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	log.Info("database initialized successfully")
	return db, nil
}

func initRedis(config *conf.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Redis.Host, config.Redis.Port),
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
}
