package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditbiz "github.com/lk2023060901/stage-portal-backend/internal/auditlog/biz"
	auditdata "github.com/lk2023060901/stage-portal-backend/internal/auditlog/data"
	auditservice "github.com/lk2023060901/stage-portal-backend/internal/auditlog/service"
	"github.com/lk2023060901/stage-portal-backend/internal/auth"
	blogbiz "github.com/lk2023060901/stage-portal-backend/internal/blog/biz"
	blogservice "github.com/lk2023060901/stage-portal-backend/internal/blog/service"
	"github.com/lk2023060901/stage-portal-backend/internal/conf"
	"github.com/lk2023060901/stage-portal-backend/internal/data"
	emailbiz "github.com/lk2023060901/stage-portal-backend/internal/email/biz"
	emaildata "github.com/lk2023060901/stage-portal-backend/internal/email/data"
	emailservice "github.com/lk2023060901/stage-portal-backend/internal/email/service"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/feishu"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/halo"
	"github.com/lk2023060901/stage-portal-backend/internal/pkg/logger"
	regbiz "github.com/lk2023060901/stage-portal-backend/internal/registration/biz"
	regservice "github.com/lk2023060901/stage-portal-backend/internal/registration/service"
	"github.com/lk2023060901/stage-portal-backend/internal/server"
	settingsbiz "github.com/lk2023060901/stage-portal-backend/internal/settings/biz"
	settingsdata "github.com/lk2023060901/stage-portal-backend/internal/settings/data"
	settingsservice "github.com/lk2023060901/stage-portal-backend/internal/settings/service"
	uploadbiz "github.com/lk2023060901/stage-portal-backend/internal/upload/biz"
	uploaddata "github.com/lk2023060901/stage-portal-backend/internal/upload/data"
	uploadservice "github.com/lk2023060901/stage-portal-backend/internal/upload/service"
	userbiz "github.com/lk2023060901/stage-portal-backend/internal/user/biz"
	userdata "github.com/lk2023060901/stage-portal-backend/internal/user/data"
	userservice "github.com/lk2023060901/stage-portal-backend/internal/user/service"
	"go.uber.org/zap"
)

var configFile = flag.String("config", "config.yaml", "config file path")

func main() {
	flag.Parse()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	d, cleanup, err := data.NewData(config, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	jwtManager := auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTIssuer, 0)

	// 邮件发送链路：凭证池 -> 轮换选择 -> 重试分发 -> 模板通知
	credentialRepo := emaildata.NewCredentialRepo(d.DB)
	credentialUseCase := emailbiz.NewCredentialUseCase(credentialRepo, log.Logger)
	selector := emailbiz.NewSelector(credentialRepo)
	transport := emailbiz.NewGoMailTransport(emailbiz.TransportConfig{
		ConnectTimeout:     config.Email.ConnectTimeout,
		CompatTimeout:      config.Email.CompatTimeout,
		InsecureSkipVerify: config.Email.InsecureSkipVerify,
	})
	dispatcher := emailbiz.NewDispatcher(selector, credentialRepo, transport, config.Email.QuotaBackoff, log.Logger)
	notifier := emailbiz.NewNotifier(dispatcher, credentialUseCase,
		config.Email.MaxAttempts, config.Email.BatchSize, config.Email.BatchDelay,
		config.Email.BCC, log.Logger)

	// 报名数据存储在飞书多维表格
	feishuClient := feishu.NewClient(feishu.Config{
		BaseURL:   config.Feishu.BaseURL,
		AppID:     config.Feishu.AppID,
		AppSecret: config.Feishu.AppSecret,
		AppToken:  config.Feishu.AppToken,
		TableID:   config.Feishu.TableID,
	}, d.RedisClient, log.Logger)
	registrationUseCase := regbiz.NewRegistrationUseCase(feishuClient, notifier, log.Logger)

	userRepo := userdata.NewUserRepo(d.DB)
	userUseCase := userbiz.NewUserUseCase(userRepo, jwtManager, log.Logger)

	settingRepo := settingsdata.NewSettingRepo(d.DB)
	settingUseCase := settingsbiz.NewSettingUseCase(settingRepo, log.Logger)

	auditRepo := auditdata.NewEntryRepo(d.DB)
	auditUseCase := auditbiz.NewAuditUseCase(auditRepo, log.Logger)

	// RSS 镜像到 Halo 博客
	haloClient := halo.NewClient(halo.Config{
		BaseURL: config.Halo.BaseURL,
		Token:   config.Halo.Token,
	}, log.Logger)
	rssFetcher := blogbiz.NewRSSFetcher(config.Blog.FeedURL)
	syncUseCase := blogbiz.NewSyncUseCase(rssFetcher, haloClient, d.RedisClient, config.Blog.CacheTTL, log.Logger)

	uploadRepo := uploaddata.NewUploadRepo(d.DB)
	uploadUseCase := uploadbiz.NewUploadUseCase(uploadRepo, d.MinIOClient, log.Logger)

	svcs := server.Services{
		Registration: regservice.NewRegistrationService(registrationUseCase, log.Logger),
		Email:        emailservice.NewEmailService(credentialUseCase, dispatcher, selector, log.Logger),
		User:         userservice.NewUserService(userUseCase, log.Logger),
		Settings:     settingsservice.NewSettingService(settingUseCase, log.Logger),
		Audit:        auditservice.NewAuditService(auditUseCase, log.Logger),
		Blog:         blogservice.NewBlogService(syncUseCase, log.Logger),
		Upload:       uploadservice.NewUploadService(uploadUseCase, log.Logger),
	}

	httpServer := server.NewHTTPServer(config, log.Logger, jwtManager, d.RedisClient, svcs)

	// 周期同步 RSS
	syncCtx, stopSync := context.WithCancel(context.Background())
	if config.Blog.AutoSync && config.Blog.FeedURL != "" {
		go syncUseCase.Run(syncCtx, config.Blog.SyncInterval)
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopSync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
