package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/digkill/genstudio/internal/api"
	"github.com/digkill/genstudio/internal/clock"
	"github.com/digkill/genstudio/internal/config"
	"github.com/digkill/genstudio/internal/database"
	"github.com/digkill/genstudio/internal/genai"
	"github.com/digkill/genstudio/internal/poller"
	"github.com/digkill/genstudio/internal/repository"
	"github.com/digkill/genstudio/internal/service"
	"github.com/digkill/genstudio/internal/session"
	"github.com/digkill/genstudio/internal/snapshot"
	"github.com/digkill/genstudio/internal/storage"
	"github.com/digkill/genstudio/internal/telegram"
	"github.com/digkill/genstudio/pkg/logger"
)

func main() {
	importPath := flag.String("import", "", "legacy JSON export to load into an empty database before serving; "+
		"the import is not atomic, so recreate the database before retrying a failed run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	clk := clock.System()
	hasher := service.BcryptHasher{}

	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	promoRepo := repository.NewPromoRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	imageRepo := repository.NewGenerationRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	chatRepo := repository.NewChatRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	uploader, err := storage.NewUploader(storage.ConfigFrom(cfg))
	if err != nil {
		log.Fatalf("storage uploader: %v", err)
	}

	activityService := service.NewActivityService(activityRepo, clk, logr, cfg.ActivityLogLimit)
	settingsService := service.NewSettingsService(settingsRepo, activityService)
	authService := service.NewAuthService(userRepo, hasher, activityService, clk, logr, cfg.StartingCredits)
	ledgerService := service.NewLedgerService(userRepo, activityService, logr)
	rewardService := service.NewRewardService(userRepo, settingsService, activityService, clk, logr)
	planService := service.NewPlanService(planRepo, activityService, cfg.DefaultCurrency)
	promoService := service.NewPromoService(promoRepo, activityService, clk)

	// a nil *Notifier must not reach the interface
	var notifier service.PaymentNotifier
	tg, err := telegram.Connect(cfg.TelegramBotToken, cfg.TelegramChatID, logr)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	if tg != nil {
		notifier = tg
	}

	paymentService := service.NewPaymentService(paymentRepo, userRepo, planService, promoService, settingsService,
		activityService, notifier, clk, logr)
	studio := service.NewGenerationService(service.GenerationDeps{
		Ledger:   ledgerService,
		Users:    userRepo,
		Images:   imageRepo,
		Videos:   videoRepo,
		Chats:    chatRepo,
		Settings: settingsService,
		Activity: activityService,
		Gen:      genai.NewClient(cfg, logr),
		Blobs:    uploader,
		Costs: service.Costs{
			Image:   cfg.CostPerImage,
			Enhance: cfg.CostPerEnhance,
			Edit:    cfg.CostPerEdit,
			Video:   cfg.CostPerVideo,
			Chat:    cfg.CostPerChatMessage,
		},
		Clock: clk,
		Log:   logr,
	})

	if *importPath != "" {
		raw, err := os.ReadFile(*importPath)
		if err != nil {
			log.Fatalf("read snapshot: %v", err)
		}
		doc, err := snapshot.Decode(raw)
		if err != nil {
			log.Fatalf("decode snapshot: %v", err)
		}
		importer := &snapshot.Importer{
			Users:        userRepo,
			Plans:        planRepo,
			Promos:       promoRepo,
			Payments:     paymentRepo,
			Images:       imageRepo,
			Videos:       videoRepo,
			Chats:        chatRepo,
			Activity:     activityRepo,
			Settings:     settingsService,
			Hasher:       hasher,
			Blobs:        uploader,
			ActivityKeep: cfg.ActivityLogLimit,
			Clock:        clk,
			Log:          logr,
		}
		if _, err := importer.Import(ctx, doc); err != nil {
			log.Fatalf("import snapshot: %v", err)
		}
	}

	bootstrap := &service.Bootstrap{
		Users:    userRepo,
		Hasher:   hasher,
		Plans:    planService,
		Promos:   promoService,
		Settings: settingsService,
		Clock:    clk,
		Log:      logr,
	}
	if err := bootstrap.EnsureDefaults(ctx, service.AdminSeed{
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		FullName: cfg.AdminFullName,
		Credits:  cfg.AdminCredits,
	}); err != nil {
		log.Fatalf("ensure defaults: %v", err)
	}

	var lease poller.Lease
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		lease = poller.NewRedisLease(rdb)
	}

	videoPoller := poller.New(studio, lease, poller.Config{
		Schedule:    cfg.VideoPollSchedule,
		Workers:     cfg.VideoPollWorkers,
		Batch:       cfg.VideoPollBatch,
		TaskTimeout: cfg.RequestTimeout,
		LeaseTTL:    cfg.VideoPollLeaseTTL,
	}, logr)
	go func() {
		if err := videoPoller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("video poller stopped", "err", err)
			stop()
		}
	}()

	server := api.NewServer(api.Deps{
		Addr:               cfg.ListenAddr,
		Log:                logr,
		Sessions:           session.NewManager(cfg.JWTSecret, cfg.SessionTTL),
		Auth:               authService,
		Ledger:             ledgerService,
		Rewards:            rewardService,
		Plans:              planService,
		Promos:             promoService,
		Payments:           paymentService,
		Settings:           settingsService,
		Activity:           activityService,
		Studio:             studio,
		Dashboard:          service.NewDashboardService(userRepo, paymentRepo, activityService),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateBurst:          cfg.RateLimitBurst,
	})
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("api server stopped", "err", err)
	}
}
