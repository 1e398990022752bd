package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/slack-go/slack"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"approval-bridge/internal/activities"
	"approval-bridge/internal/slackbot"
	"approval-bridge/internal/workflows"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return errors.New("SLACK_BOT_TOKEN is required")
	}
	hostPort := getEnvOrDefault("TEMPORAL_HOSTPORT", "localhost:7233")
	taskQueue := getEnvOrDefault("TEMPORAL_TASK_QUEUE", workflows.TaskQueue)

	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: getEnvOrDefault("TEMPORAL_NAMESPACE", "default"),
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer c.Close()

	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ApprovalTask)
	w.RegisterActivity(&activities.Activities{
		Chat: slackbot.NewClient(slack.New(token)),
	})

	slog.Info("worker started", "taskQueue", taskQueue, "hostPort", hostPort)
	return w.Run(worker.InterruptCh())
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
