package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"

	"approval-bridge/internal/modal"
	"approval-bridge/internal/workflows"
)

type options struct {
	req       modal.ApprovalRequest
	hostPort  string
	taskQueue string
	wait      bool
}

// starter posts one approval request through a running worker and optionally
// waits for the decision. Handy for trying the chat flow against a dev server.
func main() {
	var o options
	flag.StringVar(&o.req.TaskID, "task", "TASK-123", "task id")
	flag.StringVar(&o.req.Title, "title", "Expense claim", "task title")
	flag.StringVar(&o.req.Details, "details", "", "extra text shown under the title")
	flag.StringVar(&o.req.Requester, "npr", "", "requester the decision is made for")
	flag.StringVar(&o.req.ChannelID, "channel", "", "channel to post the request to")
	flag.DurationVar(&o.req.Timeout, "timeout", 24*time.Hour, "withdraw the task after this long")
	flag.StringVar(&o.hostPort, "temporal", "localhost:7233", "Temporal host:port")
	flag.StringVar(&o.taskQueue, "queue", workflows.TaskQueue, "task queue")
	flag.BoolVar(&o.wait, "wait", false, "block until the task is decided")
	flag.Parse()

	if err := run(o); err != nil {
		slog.Error("starter failed", "error", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.req.ChannelID == "" {
		return errors.New("-channel is required")
	}

	c, err := client.Dial(client.Options{HostPort: o.hostPort})
	if err != nil {
		return fmt.Errorf("unable to create Temporal client: %w", err)
	}
	defer c.Close()

	opts := client.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(o.req.TaskID),
		TaskQueue:                                o.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	we, err := c.ExecuteWorkflow(ctx, opts, workflows.ApprovalTask, o.req)
	if err != nil {
		return fmt.Errorf("unable to execute workflow: %w", err)
	}
	slog.Info("started approval task", "workflowID", we.GetID(), "runID", we.GetRunID())

	if !o.wait {
		return nil
	}

	var result string
	if err := we.Get(context.Background(), &result); err != nil {
		return fmt.Errorf("unable to get workflow result: %w", err)
	}
	slog.Info("approval task finished", "result", result)
	return nil
}
