package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"crosspost/domain/repository"
	"crosspost/infrastructure/cache"
	"crosspost/infrastructure/clients/facebook"
	"crosspost/infrastructure/clients/instagram"
	"crosspost/infrastructure/clients/storage"
	"crosspost/infrastructure/clients/tiktok"
	"crosspost/infrastructure/clients/twitter"
	"crosspost/infrastructure/clients/youtube"
	"crosspost/infrastructure/configuration"
	"crosspost/infrastructure/logger"
	"crosspost/infrastructure/persistence"
	"crosspost/infrastructure/queue"
	"crosspost/infrastructure/servicebus"
	httpHandler "crosspost/interfaces/http"
	"crosspost/server"
	"crosspost/usecase"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	configuration.LoadEnvFromFile("config.env", ".env")
	conf := configuration.C

	db, isMSSQL, err := initiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Database initialization failed")
	}

	mongoDb, err := persistence.NewMongoDb(
		conf.Database.Mongo.Host,
		conf.Database.Mongo.Port,
		conf.Database.Mongo.User,
		conf.Database.Mongo.Password,
		conf.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - publish records will not be archived")
		mongoDb = nil
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", conf.RedisClient.Host, conf.RedisClient.Port),
		conf.RedisClient.Username,
		conf.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Redis initialization failed")
	}

	pubSubClient, err := queue.NewPubSub(ctx, conf.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Error while instantiate PubSub")
	}

	var notifier repository.INotifier
	azServiceBusClient, err := servicebus.NewServiceBus(ctx, conf.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - outcome notifications disabled")
	} else {
		notifier = servicebus.NewOutcomeNotifier(azServiceBusClient, conf.ServiceBus.OutcomeQueue)
	}

	// Repository wiring: MSSQL in production, otherwise PostgreSQL.
	var (
		taskRepo      repository.IPublishTask
		credRepo      repository.ICredential
		containerRepo repository.IMediaContainer
		accountRepo   repository.IAccountService
	)
	if isMSSQL {
		if err := persistence.EnsurePublishSchemaMSSQL(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed ensuring publish schema")
		}
		if err := persistence.EnsureAccountSchemaMSSQL(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed ensuring account schema")
		}
		taskRepo = persistence.NewPublishTaskRepositoryMSSQL(db)
		credRepo = persistence.NewCredentialRepositoryMSSQL(db)
		containerRepo = persistence.NewMediaContainerRepositoryMSSQL(db)
		accountRepo = persistence.NewAccountRepositoryMSSQL(db)
	} else {
		if err := persistence.EnsurePublishSchema(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed ensuring publish schema")
		}
		if err := persistence.EnsureAccountSchema(db); err != nil {
			logger.GetLogger().WithField("error", err).Error("Failed ensuring account schema")
		}
		taskRepo = persistence.NewPublishTaskRepository(db)
		credRepo = persistence.NewCredentialRepository(db)
		containerRepo = persistence.NewMediaContainerRepository(db)
		accountRepo = persistence.NewAccountRepository(db)
	}
	recordRepo := persistence.NewPublishRecordRepository(mongoDb, conf.Database.Mongo.Name)

	locks := cache.NewLockStore(redisClient, "")
	taskStore := cache.NewOAuthTaskStore(redisClient)
	jobQueue := queue.NewPubSubQueue(pubSubClient, locks, conf.Pubsub.PublishTopic, conf.Pubsub.MediaTopic)

	registry := usecase.NewRegistry(
		youtube.New(conf.OAuth.YouTube),
		facebook.New(conf.OAuth.Facebook),
		instagram.New(conf.OAuth.Instagram),
		tiktok.New(conf.OAuth.Tiktok),
		twitter.New(conf.OAuth.Twitter),
	)

	tokenUsecase := usecase.NewTokenUsecase(credRepo, registry, locks, conf.Worker.RefreshThresholdDuration())
	publishUsecase := usecase.NewPublishUsecase(taskRepo, jobQueue, recordRepo, conf.Scheduler.ImmediateThresholdDuration(), conf.Worker.PublishTimeoutDuration())
	oauthUsecase := usecase.NewOAuthUsecase(registry, taskStore, credRepo, accountRepo)
	mediaStorage := storage.NewClient(conf.Upload.Endpoint, conf.Upload.Bucket, conf.Upload.BasePath)
	mediaUsecase := usecase.NewMediaUsecase(mediaStorage, containerRepo, taskRepo, tokenUsecase, registry, jobQueue, recordRepo, notifier, conf.Worker.BaseBackoffDuration())
	metricsUsecase := usecase.NewMetricsUsecase(tokenUsecase, registry)
	worker := usecase.NewPublishWorker(taskRepo, tokenUsecase, registry, jobQueue, locks, containerRepo, recordRepo, notifier, conf.Worker.MaxAttemptsOrDefault(), conf.Worker.BaseBackoffDuration())
	scheduler := usecase.NewScheduler(taskRepo, publishUsecase, locks, conf.Scheduler.ScanIntervalDuration(), conf.Scheduler.ScanWindowDuration())

	router := server.InitiateRouter(
		httpHandler.NewPublishHandler(publishUsecase),
		httpHandler.NewOAuthHandler(oauthUsecase),
		httpHandler.NewUploadHandler(mediaUsecase),
		httpHandler.NewMetricsHandler(metricsUsecase),
		conf.App.SecretKey,
	)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.App.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.GetLogger().WithField("port", conf.App.Port).Info("HTTP server starting")
		var err error
		if conf.App.TLSEnabled {
			err = httpServer.ListenAndServeTLS(conf.App.TLSCertFile, conf.App.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	g.Go(func() error {
		return jobQueue.Receive(ctx, conf.Pubsub.PublishSub, 10, worker.HandleRaw)
	})

	g.Go(func() error {
		return jobQueue.Receive(ctx, conf.Pubsub.MediaSub, 10, mediaUsecase.HandleRaw)
	})

	g.Go(func() error {
		select {
		case sig := <-interrupt:
			logger.GetLogger().WithField("signal", sig.String()).Info("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Service exited with error")
	}
	logger.GetLogger().Info("Service stopped")
}

// initiateDatabase opens MSSQL when ENV=production, Postgres otherwise.
func initiateDatabase() (*sql.DB, bool, error) {
	if os.Getenv("ENV") == "production" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			return nil, false, err
		}
		return db, true, nil
	}
	db, err := persistence.NewPostgreSQLDB()
	if err != nil {
		return nil, false, err
	}
	return db, false, nil
}
