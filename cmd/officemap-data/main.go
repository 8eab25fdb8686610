package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"officemap-data/internal/config"
	"officemap-data/internal/database"
	httpapi "officemap-data/internal/http"
	"officemap-data/internal/logger"
	"officemap-data/internal/mqttnotify"
	"officemap-data/internal/repository"
	"officemap-data/internal/service"
	"officemap-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "officemap-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 已发布楼层读缓存：Redis 不可用时退化为进程内缓存
	var kv store.KV
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err == nil {
		kv = store.NewRedisKV(redisClient)
	} else {
		log.Warn("Redis unavailable, using in-process floor cache", zap.Error(err))
		kv = store.NewMemoryKV()
	}
	pingCancel()

	// DB 未就绪时使用内存 repo，编辑器页面仍可联测
	var db *sql.DB
	var floorsRepo repository.FloorsRepository
	var protoRepo repository.PrototypesRepository
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for officemap-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if db != nil {
		floorsRepo = repository.NewPostgresFloorsRepository(db)
		protoRepo = repository.NewPostgresPrototypesRepository(db)
	} else {
		floorsRepo = repository.NewMemoryFloorsRepository()
		protoRepo = repository.NewMemoryPrototypesRepository()
	}

	// 发布事件通知（默认禁用）
	var notifier service.PublishNotifier
	var mqttNotifier *mqttnotify.Notifier
	if cfg.MQTT.Enabled {
		if n, err := mqttnotify.NewNotifier(&cfg.MQTT, log); err == nil {
			mqttNotifier = n
			notifier = n
			log.Info("MQTT publish notifier enabled", zap.String("topic", cfg.MQTT.Topic))
		} else {
			log.Warn("MQTT enabled but connection failed, publish events disabled", zap.Error(err))
		}
	}

	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	floorService := service.NewFloorService(floorsRepo, kv, cacheTTL, notifier, log)
	protoService := service.NewPrototypeService(protoRepo, log)
	peopleClient := service.NewPeopleClient(cfg.People.BaseURL, cfg.People.Token, log)

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoute()
	router.RegisterFloorRoutes(httpapi.NewFloorHandler(floorService, peopleClient, log))
	router.RegisterPrototypeRoutes(httpapi.NewPrototypeHandler(protoService, log))
	router.RegisterPeopleRoutes(httpapi.NewPeopleHandler(peopleClient, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if mqttNotifier != nil {
		mqttNotifier.Close()
	}
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
