package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"

	"approval-bridge/internal/modal"
	"approval-bridge/internal/workflows"
)

type startResp struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId"`
}

type pendingRow struct {
	WorkflowID string          `json:"workflowId"`
	RunID      string          `json:"runId"`
	Task       modal.HumanTask `json:"task"`
}

type approvalRoutes struct {
	tc        client.Client
	taskQueue string
}

// registerApprovalRoutes exposes the Temporal-hosted approval tasks. Decisions
// are not accepted here; they arrive through the chat interaction.
func registerApprovalRoutes(r chi.Router, tc client.Client, taskQueue string) {
	s := &approvalRoutes{tc: tc, taskQueue: taskQueue}

	r.Route("/approvals", func(r chi.Router) {
		r.Post("/", s.handleStart)
		r.Get("/", s.handleList)
		r.Get("/{taskId}/task", s.handleTask)
		r.Get("/{taskId}/audit", s.handleAudit)
	})
}

func (s *approvalRoutes) handleStart(w http.ResponseWriter, r *http.Request) {
	var req modal.ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TaskID == "" || req.ChannelID == "" {
		http.Error(w, `invalid body: {"taskId":"...","title":"...","channelId":"...","npr":"..."}`, http.StatusBadRequest)
		return
	}

	opts := client.StartWorkflowOptions{
		ID:                                       workflows.WorkflowID(req.TaskID),
		TaskQueue:                                s.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowIDReusePolicy:                    enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	we, err := s.tc.ExecuteWorkflow(ctx, opts, workflows.ApprovalTask, req)
	if err != nil {
		slog.Error("failed to start approval task", "taskID", req.TaskID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, startResp{WorkflowID: we.GetID(), RunID: we.GetRunID()})
}

// handleList returns running approval tasks that still wait for a decision.
func (s *approvalRoutes) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	resp, err := s.tc.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    `ExecutionStatus = "Running" AND WorkflowType = "ApprovalTask"`,
		PageSize: 200,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rows := make([]pendingRow, 0, len(resp.Executions))
	for _, ex := range resp.Executions {
		if ex.Execution == nil {
			continue
		}
		var task modal.HumanTask
		if err := s.query(ctx, ex.Execution.WorkflowId, ex.Execution.RunId, workflows.PendingTaskQuery, &task); err != nil {
			continue
		}
		if task.ID == "" {
			continue
		}
		rows = append(rows, pendingRow{
			WorkflowID: ex.Execution.WorkflowId,
			RunID:      ex.Execution.RunId,
			Task:       task,
		})
	}
	writeJSON(w, rows)
}

func (s *approvalRoutes) handleTask(w http.ResponseWriter, r *http.Request) {
	var task modal.HumanTask
	if err := s.query(r.Context(), workflows.WorkflowID(chi.URLParam(r, "taskId")), r.URL.Query().Get("runId"), workflows.PendingTaskQuery, &task); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if task.ID == "" {
		writeJSON(w, nil)
		return
	}
	writeJSON(w, task)
}

func (s *approvalRoutes) handleAudit(w http.ResponseWriter, r *http.Request) {
	var events []modal.AuditEvent
	if err := s.query(r.Context(), workflows.WorkflowID(chi.URLParam(r, "taskId")), r.URL.Query().Get("runId"), workflows.AuditLogQuery, &events); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *approvalRoutes) query(ctx context.Context, wid, rid, name string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	qr, err := s.tc.QueryWorkflow(ctx, wid, rid, name)
	if err != nil {
		return err
	}
	return qr.Get(out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
