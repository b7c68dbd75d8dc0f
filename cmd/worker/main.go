package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"asistencia/internal/attendance"
	"asistencia/internal/config"
	"asistencia/internal/logging"
	"asistencia/internal/metrics"
	"asistencia/internal/queue"
	"asistencia/internal/schoolday"
	"asistencia/internal/store"
)

// Worker consumes mark batches from the save queue and upserts them with a
// bounded retry, so a flaky database does not drop attendance entries.
func main() {
	cfg := config.Load()

	log, closeLog, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(attendance.Options{Store: repo, Log: log})

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	log.Info("worker started")
	for msg := range messages {
		if msg.Type != attendance.SaveMarksMessage {
			continue
		}

		var marks []schoolday.Mark
		if err := json.Unmarshal(msg.Body, &marks); err != nil {
			log.Warn("malformed mark batch dropped", zap.Error(err))
			continue
		}

		if err := saveWithRetry(ctx, svc, marks, cfg.SaveMaxRetries, cfg.SaveRetryDelay); err != nil {
			log.Error("mark batch lost after retries", zap.Int("marks", len(marks)), zap.Error(err))
			continue
		}
		log.Info("mark batch saved", zap.Int("marks", len(marks)))
	}

	log.Info("worker stopped")
}

func saveWithRetry(ctx context.Context, svc *attendance.Service, marks []schoolday.Mark, maxRetries int, delay time.Duration) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			metrics.WorkerRetries.Inc()
			select {
			case <-time.After(delay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = svc.SaveMarks(ctx, marks); err == nil {
			return nil
		}
	}
	return err
}
