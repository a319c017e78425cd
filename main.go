package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-tableorder/config"
	"github.com/yeremiapane/restaurant-tableorder/database"
	"github.com/yeremiapane/restaurant-tableorder/eventlog"
	"github.com/yeremiapane/restaurant-tableorder/realtime"
	"github.com/yeremiapane/restaurant-tableorder/router"
	"github.com/yeremiapane/restaurant-tableorder/services"
	"github.com/yeremiapane/restaurant-tableorder/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}
	utils.InitLogger(cfg.LogLevel)
	utils.InitJWT(cfg.JWTSecret)

	switch cfg.GinMode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.GinMode)
	}

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	hub := realtime.NewHub(realtime.WithPingInterval(cfg.Realtime.PingInterval))

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		relay := realtime.NewRedisRelay(rdb, cfg.Redis.Channel, cfg.InstanceID, hub)
		hub.AddSink(relay)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := relay.Run(ctx); err != nil {
				utils.ErrorLogger.WithError(err).Error("redis relay stopped")
			}
		}()
		utils.InfoLogger.WithField("addr", cfg.Redis.Addr).Info("redis relay enabled")
	}

	var sink *eventlog.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		sink = eventlog.NewSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.InstanceID, 1024)
		sink.Start(ctx)
		hub.AddSink(sink)
		utils.InfoLogger.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		}).Info("kafka event log enabled")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	sessions := services.NewSessionService(db, hub)
	monitor := services.NewChangeMonitor(db, hub)
	monitor.Interval = cfg.Realtime.ChangeFeedInterval
	monitor.Start()

	r := router.SetupRouter(router.Deps{
		Sessions:   sessions,
		Orders:     services.NewOrderService(db, sessions, hub),
		Payments:   services.NewPaymentService(db, sessions, hub),
		Tables:     services.NewTableService(db),
		Menu:       services.NewMenuService(db, hub),
		Auth:       services.NewAuthService(db, cfg.JWTTTL),
		Users:      services.NewUserService(db),
		Hub:        hub,
		CORSOrigin: cfg.CORSOrigin,
		PublicURL:  cfg.PublicURL,
		RateRPS:    cfg.RateLimit.RPS,
		RateBurst:  cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		utils.InfoLogger.WithField("instance", cfg.InstanceID).Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatalf("HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.WithError(err).Warn("HTTP shutdown")
	}
	monitor.Stop()
	wg.Wait()
	if sink != nil {
		sink.WaitClosed()
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
