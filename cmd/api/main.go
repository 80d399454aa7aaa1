package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/checkout"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/messaging"
	"storefront/internal/infra/orderclient"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/session"
	"storefront/internal/middleware"
	"storefront/internal/platform/logger"
	"storefront/internal/platform/metrics"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	janitorInterval = 5 * time.Minute
	orderHTTPSlack  = 5 * time.Second
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	//.envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewZapLogger(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err := run(cfg, log); err != nil {
		log.Errorf("%v", err)
		_ = log.Sync()
		os.Exit(1)
	}
	log.Infof("shutdown complete")
	_ = log.Sync()
}

// 終了コードはmainで決める
func run(cfg config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続（カタログは読み取りのみ）
	gormDB, err := db.Connect(cfg.DatabaseURL, db.Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Debug:           !cfg.IsProd(),
	})
	if err != nil {
		return fmt.Errorf("db connect failed: %w", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	productRepo := infraRepo.NewProductGormRepository(gormDB)
	collectionRepo := infraRepo.NewCollectionGormRepository(gormDB)

	//サイドチャネル（Redisが無ければメモリ）
	var sessions repo.SessionStore
	if cfg.RedisAddr != "" {
		client, err := session.NewRedisClient(ctx, session.RedisClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis connect failed: %w", err)
		}
		defer func() { _ = client.Close() }()
		sessions = session.NewRedisStore(client, cfg.SessionTTL)
	} else {
		log.Warnf("REDIS_ADDR not set, using in-memory session store")
		sessions = session.NewMemoryStore()
	}

	//イベント（NATSが無ければ送らない）
	var publisher repo.CheckoutEventPublisher = messaging.NopPublisher{}
	if cfg.NATSURL != "" {
		conn, err := messaging.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect failed: %w", err)
		}
		defer conn.Close()
		publisher, err = messaging.NewNATSPublisher(conn)
		if err != nil {
			return fmt.Errorf("nats publisher: %w", err)
		}
	}

	//注文サービス。タイムアウトはオーケストレーター側で持つので、HTTPは少し長め
	httpTimeout := time.Duration(0)
	if cfg.OrderServiceTimeout > 0 {
		httpTimeout = cfg.OrderServiceTimeout + orderHTTPSlack
	}
	orders, err := orderclient.NewClient(cfg.OrderServiceURL, &http.Client{Timeout: httpTimeout})
	if err != nil {
		return fmt.Errorf("order client: %w", err)
	}

	//metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	registry := usecase.NewSessionRegistry(sessions, orders, log, idGen, clock, checkout.Config{
		CurrencyCode: cfg.CurrencyCode,
		Timeout:      cfg.OrderServiceTimeout,
	})
	go registry.RunJanitor(ctx, janitorInterval, cfg.SessionTTL)

	//Usecase生成
	catalogUC := usecase.NewCatalogUsecase(productRepo, collectionRepo, cfg.StoreID)
	cartUC := usecase.NewCartUsecase(registry, productRepo, m, cfg.StoreID)
	checkoutUC := usecase.NewCheckoutUsecase(registry, sessions, publisher, m, clock, log, cfg.CurrencyCode)

	//Server起動
	e := server.New(cfg)
	sessionMW := middleware.Session(middleware.SessionConfig{
		Secret: []byte(cfg.SessionSecret),
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProd(),
	}, idGen.NewID, clock.Now)

	server.RegisterRoutes(e, server.Handlers{
		Catalog:  handler.NewCatalogHandler(catalogUC),
		Cart:     handler.NewCartHandler(cartUC),
		Checkout: handler.NewCheckoutHandler(checkoutUC),
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, sessionMW)

	if err := server.Start(ctx, e, cfg.Addr(), log); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
