package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/slack-go/slack"
)

const maxBody = 1 << 20

// HTTPHandler serves Slack's interactivity request URL. Requests are checked
// against the app's signing secret.
func (d *Dispatcher) HTTPHandler(signingSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sv, err := slack.NewSecretsVerifier(r.Header, signingSecret)
		if err != nil {
			http.Error(w, "missing signature", http.StatusUnauthorized)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if _, err := sv.Write(body); err != nil {
			http.Error(w, "verify body", http.StatusInternalServerError)
			return
		}
		if err := sv.Ensure(); err != nil {
			d.logger.Warn("rejected unsigned interaction", "error", err)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		form, err := url.ParseQuery(string(body))
		if err != nil || form.Get("payload") == "" {
			http.Error(w, "missing payload", http.StatusBadRequest)
			return
		}

		reply, err := d.Dispatch(r.Context(), []byte(form.Get("payload")))
		if err != nil {
			d.logger.Error("interaction dispatch failed", "error", err)
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		if reply.Ack != nil {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(reply.Ack)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		if reply.FollowUp != nil {
			go reply.FollowUp(context.WithoutCancel(r.Context()))
		}
	})
}
