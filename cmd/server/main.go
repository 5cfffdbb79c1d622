package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/cdubvdub/fpl-power-meter-api/internal/config"
	"github.com/cdubvdub/fpl-power-meter-api/internal/httpapi"
	"github.com/cdubvdub/fpl-power-meter-api/internal/jobs"
	"github.com/cdubvdub/fpl-power-meter-api/internal/portal"
	"github.com/cdubvdub/fpl-power-meter-api/internal/progress"
	"github.com/cdubvdub/fpl-power-meter-api/internal/store"
)

// serviceLogger adapts the stdlib logger to the portal Logger surface.
type serviceLogger struct{}

func (serviceLogger) Printf(format string, v ...interface{}) {
	log.Printf("[INFO] "+format, v...)
}

func (serviceLogger) Errorf(format string, v ...interface{}) {
	log.Printf("[ERROR] "+format, v...)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[INFO] no .env file found, using environment")
	}
	cfg := config.FromEnv()
	logger := serviceLogger{}

	if err := portal.Install(); err != nil {
		log.Printf("[WARN] playwright install: %v (an external browser may still work)", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(redisOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis at %s: %v", redisOpts.Addr, err)
	}
	log.Printf("[INFO] ✅ connected to Redis at %s", redisOpts.Addr)

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Printf("[WARN] NATS unavailable at %s: %v (event mirror disabled)", cfg.NATSURL, err)
			nc = nil
		} else {
			log.Printf("[INFO] ✅ connected to NATS at %s", cfg.NATSURL)
			defer nc.Close()
		}
	}

	hub := progress.NewHub(nc, logger)
	jobStore := store.NewRedisStore(client, 0)
	factory := jobs.PortalRunnerFactory(portal.SessionOptions{
		Headless:    cfg.Headless,
		StepTimeout: cfg.StepTimeout,
	}, cfg.PortalURL, cfg.ScreenshotDir, logger)
	sched := jobs.New(jobStore, hub, factory, jobs.Config{
		MaxBatchRows: cfg.MaxBatchRows,
		RowDelay:     cfg.RowDelay,
	}, logger)

	api := httpapi.NewServer(sched, jobStore, hub, logger)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("[INFO] 🚀 meter status API listening on :%s", cfg.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
