package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/cache"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/config"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/hub"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/league"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/poller"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/providers/espn"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/publisher"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/retry"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/scheduler"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/settler"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/store"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	fmt.Println("=== Spread Settler v0 ===")

	// .env is optional
	if err := godotenv.Load(); err == nil {
		fmt.Println("✓ Loaded .env")
	}

	cfg, err := config.Load(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the prediction store, retrying while the database starts
	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Printf("✓ Connected to %s store\n", cfg.Database.Driver)

	var (
		pub         publisher.Publisher = publisher.NoopPublisher{}
		summaries   cache.SummaryCache  = cache.Noop{}
		redisClient *redis.Client
	)
	if cfg.Redis.URL != "" {
		redisClient, err = connectRedis(ctx, cfg.Redis)
		if err != nil {
			fmt.Printf("❌ Failed to connect to Redis: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		streamPub := publisher.NewStreamPublisher(redisClient, cfg.Settlement.Stream)
		pub = streamPub
		summaries = cache.NewRedisWriter(redisClient)
		fmt.Printf("✓ Connected to Redis (stream %s)\n", streamPub.Stream())
	} else {
		fmt.Println("⚠️  REDIS_URL not set, stream publishing and caching disabled")
	}

	nfl, err := league.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load league tables: %v\n", err)
		os.Exit(1)
	}

	h := hub.NewHub()
	go h.Run(ctx)

	settlerCfg := settler.Config{
		Store:       db,
		Publisher:   pub,
		Broadcaster: h,
		Cache:       summaries,
		Teams:       nfl,
		LockWindow:  cfg.ESPN.LockWindow,
	}
	if cfg.ESPN.Enabled {
		settlerCfg.Scores = espn.New(cfg.ESPN.BaseURL)
		fmt.Printf("✓ ESPN scoreboard ingestion enabled (lock window %v)\n", cfg.ESPN.LockWindow)
	}
	s := settler.New(settlerCfg)

	loop := poller.NewInterval("settlement", cfg.Settlement.PollInterval, s.Poll)
	loop.Start(ctx)
	fmt.Printf("✓ %s loop running every %v\n", loop.Name(), cfg.Settlement.PollInterval)

	// unpinned seasons roll over with the calendar while the process runs
	season := func() int { return cfg.Settlement.SeasonAt(time.Now()) }
	sched := scheduler.New(ctx, s, season)
	if err := sched.RegisterRecap(cfg.Settlement.RecapCron); err != nil {
		fmt.Printf("❌ Failed to schedule recap: %v\n", err)
		os.Exit(1)
	}
	sched.Start()

	handler := handlers.NewHandler(handlers.Config{
		Store:   db,
		League:  nfl,
		Runner:  s,
		Cache:   summaries,
		Hub:     h,
		Trigger: loop.Trigger,
		Season:  season,
		Ctx:     ctx,
	})

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	// update-results runs a full cycle inside the request
	r.Use(chimiddleware.Timeout(2 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handler.Mount(r)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		fmt.Printf("✓ Spread Settler listening on %s\n", cfg.Server.Addr)
		fmt.Println("  Endpoints:")
		fmt.Println("    GET  /health")
		fmt.Println("    GET  /metrics")
		fmt.Println("    GET  /ws")
		fmt.Println("    POST /api/v1/settle/spread")
		fmt.Println("    POST /api/v1/settle/total")
		fmt.Println("    POST /api/v1/settle/game")
		fmt.Println("    GET  /api/v1/favorite")
		fmt.Println("    GET  /api/v1/games/{gameID}/settlement")
		fmt.Println("    GET  /api/v1/teams")
		fmt.Println("    GET  /api/v1/ml/season-ai-vs-vegas/{season}")
		fmt.Println("    GET  /api/v1/ml/performance-stats")
		fmt.Println("    POST /api/v1/ml/update-results")
		fmt.Println("    POST /api/v1/ml/save-predictions")

		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			fmt.Printf("❌ Server error: %v\n", err)
		}

	case sig := <-shutdown:
		fmt.Printf("\n🛑 Received signal: %v\n", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("⚠️  Graceful shutdown failed: %v\n", err)
		srv.Close()
	}

	loop.Stop()
	sched.Stop()
	cancel()

	fmt.Println("✓ Shutdown complete")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	var db store.Store
	policy := retry.NewPolicy(5, 2*time.Second)

	err := policy.Execute(ctx, func(ctx context.Context) error {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		var err error
		switch cfg.Driver {
		case "sqlite":
			db, err = store.NewSQLite(connectCtx, cfg.SQLitePath)
		default:
			db, err = store.NewPostgres(connectCtx, cfg.DSN)
		}
		if err != nil {
			fmt.Printf("⚠️  Database not ready: %v\n", err)
		}
		return err
	})
	return db, err
}

// connectRedis accepts a redis:// URL or a bare host:port
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL}
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
