package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/api"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/tasks"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
)

var envPath string = "."

const activityCleanupInterval = 24 * time.Hour

func main() {

	config, err := utils.LoadConfig(envPath)
	if err != nil {
		panic(fmt.Sprintf("Could not load config: %v", err))
	}
	utils.EnvPath = envPath

	app, err := api.NewApp(context.Background(), config)
	if err != nil {
		panic(fmt.Sprintf("Could not start application: %v", err))
	}
	defer app.Close()

	scheduler := tasks.NewTaskScheduler(app.Logger)
	jobs := []struct {
		id       string
		name     string
		fn       func(context.Context) error
		interval time.Duration
	}{
		{"pending-sweep", "Pending transaction sweep", app.Sweeper.Task, config.SweepInterval},
		{"idempotency-cleanup", "Idempotency record cleanup", app.Sweeper.Cleanup, config.CleanupInterval},
		{"activity-log-cleanup", "Activity log cleanup", app.ActivityCleanup.Task, activityCleanupInterval},
	}
	for _, j := range jobs {
		task, err := scheduler.AddTask(j.id, j.name, j.fn, j.interval)
		if err != nil {
			panic(err)
		}
		// Each run is bounded by its interval
		task.Timeout = j.interval
		if err := scheduler.ScheduleTask(j.id, j.interval); err != nil {
			panic(err)
		}
	}

	go func() {
		if err := app.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.Logger.Info("shutting down")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Logger.WithError(err).Error("server shutdown")
	}
}
