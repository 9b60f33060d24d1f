package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"messenger/internal/cache"
	"messenger/internal/config"
	"messenger/internal/console"
	"messenger/internal/handlers"
	"messenger/internal/hub"
	"messenger/internal/messenger"
	"messenger/internal/remote"
	"messenger/internal/snowflake"
	"messenger/internal/sqlstore"
	"messenger/internal/store"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.OutputPaths = []string{"stdout"}
	if cfg.LogToFile {
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, "app.log")
	}
	// the console owns stdout
	if cfg.Mode == config.ModeConsole {
		zapConfig.OutputPaths = []string{"app.log"}
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func setupRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

// setupBackend returns the service the config selects and a function that
// releases it.
func setupBackend(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger, c *cache.Cache) (messenger.Service, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite, config.BackendMySQL:
		s, err := sqlstore.Setup(ctx, cfg, sugar)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.BackendRemote:
		client := remote.New(cfg, c, sugar)
		if err := client.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("server at %s is unreachable: %w", cfg.RemoteURL, err)
		}
		return client, func() {}, nil
	default:
		s, err := store.Open(cfg.JsonPath, sugar)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func main() {
	configPath := flag.String("config", "config.json", "path of the config file")
	serverPath := flag.String("server", "", "path of the JSON file, overrides the config")
	flag.Parse()

	fmt.Println("Reading config file...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if *serverPath != "" {
		cfg.JsonPath = *serverPath
	}

	sugar, err := setupLogger(cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer sugar.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if !cfg.SelfContained() {
		fmt.Println("Connecting to redis...")
		redisClient, err = setupRedis(ctx, cfg)
		if err != nil {
			sugar.Fatal(err)
		}
		defer redisClient.Close()
	}

	c := cache.New(sugar, redisClient, "messenger:cache:")
	go c.Run(ctx, time.Minute)

	generator, err := snowflake.NewGenerator(cfg.SnowflakeWorkerID)
	if err != nil {
		sugar.Fatal(err)
	}
	h := hub.New(sugar, redisClient, generator)

	backend, closeBackend, err := setupBackend(ctx, cfg, sugar, c)
	if errors.Is(err, messenger.ErrMissingPath) {
		fmt.Println(err)
		flag.Usage()
		os.Exit(2)
	} else if err != nil {
		sugar.Fatal(err)
	}
	defer closeBackend()

	svc := hub.Notify(backend, h, sugar)

	switch cfg.Mode {
	case config.ModeServer:
		go func() {
			if err := h.Run(ctx); err != nil {
				sugar.Error(err)
			}
		}()

		fmt.Printf("Server is running on %s\n", cfg.FullAddress())
		err = handlers.Serve(ctx, cfg, sugar, handlers.NewRouter(cfg, sugar, svc, h))
	default:
		err = console.New(svc, os.Stdin, os.Stdout).Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}

	if err != nil {
		sugar.Error(err)
		closeBackend()
		os.Exit(1)
	}
}
