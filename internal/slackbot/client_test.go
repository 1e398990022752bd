package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"approval-bridge/internal/approval"
	"approval-bridge/internal/interaction"
	"approval-bridge/internal/modal"
)

type apiCall struct {
	method string
	form   url.Values
	body   []byte
}

// fakeSlack answers the few Web API methods the bot uses.
type fakeSlack struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeSlack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/")
	body, _ := io.ReadAll(r.Body)
	form, _ := url.ParseQuery(string(body))

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{method: method, form: form, body: body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "views.open":
		_, _ = w.Write([]byte(`{"ok":true,"view":{"id":"V1"}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"999.000"}`))
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSlack) {
	t.Helper()
	fake := &fakeSlack{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(slack.New("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))), fake
}

func TestOpenDialog(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.OpenDialog(context.Background(), "trig-1", approval.Dialog{
		Title:           "Confirm decision",
		SubmitLabel:     "Submit",
		CancelLabel:     "Cancel",
		Summary:         "You are about to approve task T-1",
		CommentLabel:    "Comment",
		CommentRequired: false,
		Metadata:        `{"taskId":"T-1"}`,
	})
	require.NoError(t, err)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "views.open", fake.calls[0].method)

	var req struct {
		TriggerID string         `json:"trigger_id"`
		View      map[string]any `json:"view"`
	}
	require.NoError(t, json.Unmarshal(fake.calls[0].body, &req))
	assert.Equal(t, "trig-1", req.TriggerID)
	assert.Equal(t, DialogCallbackID, req.View["callback_id"])
	assert.Equal(t, `{"taskId":"T-1"}`, req.View["private_metadata"])

	blocks := req.View["blocks"].([]any)
	require.Len(t, blocks, 2)
	input := blocks[1].(map[string]any)
	assert.Equal(t, "input", input["type"])
	assert.Equal(t, approval.CommentField, input["block_id"])
	assert.Equal(t, true, input["optional"])
}

func TestOpenDialogRequiredComment(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.OpenDialog(context.Background(), "trig-1", approval.Dialog{
		Title: "Confirm decision", SubmitLabel: "Submit", CancelLabel: "Cancel",
		Summary: "You are about to reject task T-1", CommentLabel: "Comment", CommentRequired: true,
	}))
	assert.NotContains(t, string(fake.calls[0].body), `"optional"`)
}

func TestPostThreadReply(t *testing.T) {
	c, fake := newTestClient(t)

	ts, err := c.PostThreadReply(context.Background(), "C1", "111.222", "Processing")
	require.NoError(t, err)
	assert.Equal(t, "999.000", ts)

	call := fake.calls[0]
	assert.Equal(t, "chat.postMessage", call.method)
	assert.Equal(t, "C1", call.form.Get("channel"))
	assert.Equal(t, "111.222", call.form.Get("thread_ts"))
	assert.Equal(t, "Processing", call.form.Get("text"))
}

func TestUpdateBlocksKeepsContent(t *testing.T) {
	c, fake := newTestClient(t)

	blocks := []interaction.Block{
		interaction.Block(`{"type":"section","text":{"type":"mrkdwn","text":"*Expense*"}}`),
		interaction.StatusBlock("Approved by <@U9>"),
	}
	require.NoError(t, c.UpdateBlocks(context.Background(), "C1", "111.222", blocks, "Approved by <@U9>"))

	call := fake.calls[0]
	assert.Equal(t, "chat.update", call.method)
	assert.Equal(t, "111.222", call.form.Get("ts"))

	var sent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(call.form.Get("blocks")), &sent))
	require.Len(t, sent, 2)
	assert.Equal(t, "section", sent[0]["type"])
	assert.Equal(t, "context", sent[1]["type"])
	elements := sent[1]["elements"].([]any)
	assert.Equal(t, "Approved by <@U9>", elements[0].(map[string]any)["text"])
}

func TestUpdateBlocksSendsBlocksUnchanged(t *testing.T) {
	c, fake := newTestClient(t)

	blocks := []interaction.Block{
		interaction.Block(`{"type":"section","block_id":"summary","text":{"type":"mrkdwn","text":"*Expense*"},"x_vendor":{"keep":true}}`),
		interaction.Block(`{"type":"future_widget","block_id":"w1","payload":[1,2,3]}`),
	}
	require.NoError(t, c.UpdateBlocks(context.Background(), "C1", "111.222", blocks, "status"))

	var sent []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(fake.calls[0].form.Get("blocks")), &sent))
	require.Len(t, sent, 2)
	for i := range blocks {
		assert.JSONEq(t, string(blocks[i]), string(sent[i]))
	}
}

func TestRawBlockMetadata(t *testing.T) {
	b := rawBlock{b: interaction.Block(`{"type":"context","block_id":"status"}`)}
	assert.Equal(t, slack.MessageBlockType("context"), b.BlockType())
	assert.Equal(t, "status", b.ID())
}

func TestUpdateText(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.UpdateText(context.Background(), "C1", "999.000", "done"))
	assert.Equal(t, "chat.update", fake.calls[0].method)
	assert.Equal(t, "done", fake.calls[0].form.Get("text"))
}

func TestApprovalRequestBlocks(t *testing.T) {
	blocks, err := ApprovalRequestBlocks(modal.ApprovalRequest{
		TaskID:    "T-1",
		Title:     "Expense claim",
		Requester: "jane@example.com",
	})
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	actions, ok := blocks[1].(*slack.ActionBlock)
	require.True(t, ok)
	require.Len(t, actions.Elements.ElementSet, 3)

	for i, want := range []modal.Decision{modal.DecisionApprove, modal.DecisionReject, modal.DecisionInfoRequest} {
		btn := actions.Elements.ElementSet[i].(*slack.ButtonBlockElement)
		assert.Equal(t, string(want), btn.ActionID)

		p, d, err := approval.ParseButtonPayload(btn.Value, btn.ActionID)
		require.NoError(t, err)
		assert.Equal(t, want, d)
		assert.Equal(t, "T-1", p.TaskID)
		assert.Equal(t, "jane@example.com", p.Requester)
	}
}

func TestPostApprovalRequest(t *testing.T) {
	c, fake := newTestClient(t)

	channel, ts, err := c.PostApprovalRequest(context.Background(), modal.ApprovalRequest{TaskID: "T-1", Title: "Expense", ChannelID: "C1"})
	require.NoError(t, err)
	assert.Equal(t, "C1", channel)
	assert.Equal(t, "999.000", ts)
	assert.Contains(t, fake.calls[0].form.Get("blocks"), `"type":"actions"`)
}
