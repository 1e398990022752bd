// Package approval runs the approval interaction: decision button, confirmation
// dialog, workflow engine call, and reconciliation of the chat messages.
//
// Nothing is kept in memory between the dialog opening and its submission.
// The interaction state travels in the dialog metadata, so a submission can be
// handled by any instance.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"approval-bridge/internal/engine"
	"approval-bridge/internal/inflight"
	"approval-bridge/internal/interaction"
	"approval-bridge/internal/metrics"
	"approval-bridge/internal/modal"
)

const (
	dialogTitle = "Confirm decision"

	msgCommentRequired = "Comment is required when rejecting."
	msgMalformedState  = "This request can no longer be processed. Please start again from the approval message."
	msgAlreadyRunning  = "A decision for this task is already being processed."
)

// Options configures an Orchestrator. Every field is optional.
type Options struct {
	// Guard deduplicates concurrent decisions on one task. Defaults to
	// inflight.Nop.
	Guard   inflight.Guard
	Logger  *slog.Logger
	Backend string
}

// Orchestrator drives approval interactions from button click to the final
// origin message update.
type Orchestrator struct {
	chat    Chat
	engine  engine.Engine
	guard   inflight.Guard
	logger  *slog.Logger
	backend string

	wg sync.WaitGroup
}

// New returns an Orchestrator that talks to chat and submits decisions to eng.
func New(chat Chat, eng engine.Engine, opts Options) *Orchestrator {
	o := &Orchestrator{
		chat:    chat,
		engine:  eng,
		guard:   opts.Guard,
		logger:  opts.Logger,
		backend: opts.Backend,
	}
	if o.guard == nil {
		o.guard = inflight.Nop{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.backend == "" {
		o.backend = "rest"
	}
	return o
}

// HandleTrigger opens the confirmation dialog for a decision button click.
// The caller must have acknowledged the click already.
func (o *Orchestrator) HandleTrigger(ctx context.Context, t Trigger) error {
	p, decision, err := ParseButtonPayload(t.Value, t.ActionID)
	if err != nil {
		return err
	}

	st := interaction.State{
		InteractionID: uuid.NewString(),
		TaskID:        p.TaskID,
		Decision:      decision,
		Requester:     p.Requester,
		Channel:       t.Channel,
		MessageTS:     t.MessageTS,
		ActorID:       t.ActorID,
		Blocks:        interaction.StripInteractive(t.Blocks),
	}
	meta, err := interaction.Encode(st)
	if errors.Is(err, interaction.ErrTooLarge) {
		// The origin message is then rewritten with the status line only.
		o.logger.Warn("origin message too large for dialog metadata, dropping its blocks",
			"task_id", st.TaskID, "blocks", len(st.Blocks))
		st.Blocks = nil
		meta, err = interaction.Encode(st)
	}
	if err != nil {
		o.notifyTriggerFailure(ctx, st, err)
		return err
	}

	d := Dialog{
		Title:           dialogTitle,
		SubmitLabel:     "Submit",
		CancelLabel:     "Cancel",
		Summary:         fmt.Sprintf("You are about to %s task %s", decision.Verb(), p.TaskID),
		CommentLabel:    "Comment",
		CommentRequired: decision.RequiresComment(),
		Metadata:        meta,
	}
	if err := o.chat.OpenDialog(ctx, t.TriggerID, d); err != nil {
		return fmt.Errorf("open dialog: %w", err)
	}

	o.logger.Info("decision dialog opened",
		"interaction_id", st.InteractionID,
		"task_id", st.TaskID,
		"decision", st.Decision,
		"actor", st.ActorID,
	)
	return nil
}

// HandleSubmission validates a submitted dialog. Valid submissions are
// processed in the background and the returned result closes the dialog;
// otherwise the result carries a field error and nothing is sent to the
// engine.
func (o *Orchestrator) HandleSubmission(ctx context.Context, s Submission) SubmissionResult {
	st, err := interaction.Decode(s.Metadata)
	if err != nil {
		o.logger.Error("dialog submission rejected", "actor", s.ActorID, "error", err)
		metrics.RecordDecision("unknown", "malformed_state")
		return fieldError(msgMalformedState)
	}

	comment := strings.TrimSpace(s.Comment)
	if st.Decision.RequiresComment() && comment == "" {
		metrics.RecordDecision(string(st.Decision), "validation_error")
		return fieldError(msgCommentRequired)
	}

	release, ok, err := o.guard.Acquire(ctx, st.TaskID)
	if err != nil {
		o.logger.Warn("inflight guard unavailable, continuing", "task_id", st.TaskID, "error", err)
		release, ok = func() {}, true
	}
	if !ok {
		o.logger.Info("duplicate decision refused", "task_id", st.TaskID, "actor", s.ActorID)
		return fieldError(msgAlreadyRunning)
	}

	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer release()
		_ = o.Process(bg, st, comment)
	}()
	return SubmissionResult{}
}

// Wait blocks until every background Process call has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Process calls the engine for a validated submission and reconciles the
// thread reply and the origin message. It returns the engine error, if any,
// after it has been rendered into the thread.
func (o *Orchestrator) Process(ctx context.Context, st interaction.State, comment string) error {
	log := o.logger.With(
		"interaction_id", st.InteractionID,
		"task_id", st.TaskID,
		"decision", st.Decision,
		"actor", st.ActorID,
	)

	progressTS, err := o.chat.PostThreadReply(ctx, st.Channel, st.MessageTS, processingText(st))
	if err != nil {
		log.Warn("progress reply failed", "error", err)
		metrics.RecordChatUpdateFailure("progress_post")
		progressTS = ""
	}

	start := time.Now()
	out, err := o.engine.SubmitDecision(ctx, modal.DecisionRequest{
		TaskID:      st.TaskID,
		Action:      st.Decision,
		Requester:   st.Requester,
		Comment:     comment,
		RequestedBy: st.ActorID,
	})
	metrics.ObserveEngineCall(o.backend, time.Since(start))
	if err != nil {
		log.Error("workflow call failed", "error", err)
		metrics.RecordDecision(string(st.Decision), resultLabel(err))
		o.reply(ctx, log, st, progressTS, failureText(st, err))
		return err
	}

	r := renderOutcome(out, st)
	o.reply(ctx, log, st, progressTS, r.thread)

	blocks := slices.Clone(interaction.StripInteractive(st.Blocks))
	blocks = append(blocks, interaction.StatusBlock(r.status))
	if err := o.chat.UpdateBlocks(ctx, st.Channel, st.MessageTS, blocks, r.status); err != nil {
		log.Error("origin message update failed", "error", err)
		metrics.RecordChatUpdateFailure("origin_update")
	}

	metrics.RecordDecision(string(st.Decision), strings.ToLower(string(out.Status)))
	log.Info("decision resolved", "status", out.StatusRaw, "normalized", out.Status)
	return nil
}

// reply rewrites the progress reply, or posts a new one when there is none.
// Failures are logged only.
func (o *Orchestrator) reply(ctx context.Context, log *slog.Logger, st interaction.State, progressTS, text string) {
	if progressTS != "" {
		err := o.chat.UpdateText(ctx, st.Channel, progressTS, text)
		if err == nil {
			return
		}
		log.Warn("progress reply update failed, posting a new reply", "error", err)
		metrics.RecordChatUpdateFailure("progress_update")
	}
	if _, err := o.chat.PostThreadReply(ctx, st.Channel, st.MessageTS, text); err != nil {
		log.Error("thread reply failed", "error", err)
		metrics.RecordChatUpdateFailure("thread_post")
	}
}

// notifyTriggerFailure tells the clicker in the thread that no dialog will
// open.
func (o *Orchestrator) notifyTriggerFailure(ctx context.Context, st interaction.State, err error) {
	if st.Channel == "" || st.MessageTS == "" {
		return
	}
	if _, perr := o.chat.PostThreadReply(ctx, st.Channel, st.MessageTS, failureText(st, err)); perr != nil {
		o.logger.Error("thread reply failed", "task_id", st.TaskID, "error", perr)
		metrics.RecordChatUpdateFailure("thread_post")
	}
}

func fieldError(msg string) SubmissionResult {
	return SubmissionResult{Errors: map[string]string{CommentField: msg}}
}
