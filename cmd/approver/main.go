package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"approval-bridge/internal/approval"
	"approval-bridge/internal/config"
	"approval-bridge/internal/credential"
	"approval-bridge/internal/engine"
	"approval-bridge/internal/inflight"
	"approval-bridge/internal/metrics"
	"approval-bridge/internal/slackbot"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slackOpts := []slack.Option{}
	if cfg.Slack.SocketMode() {
		slackOpts = append(slackOpts, slack.OptionAppLevelToken(cfg.Slack.AppToken))
	}
	api := slack.New(cfg.Slack.BotToken, slackOpts...)
	chat := slackbot.NewClient(api)

	var tc client.Client
	if cfg.Temporal.Enabled() {
		tc, err = client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    tlog.NewStructuredLogger(logger),
		})
		if err != nil {
			slog.Error("unable to create Temporal client", "error", err)
			os.Exit(1)
		}
		defer tc.Close()
	}

	var eng engine.Engine
	switch cfg.Engine.Backend {
	case config.BackendTemporal:
		eng = engine.NewTemporalClient(tc)
	default:
		tokens := credential.NewProvider(credential.Config{
			TokenURL:     cfg.Engine.TokenURL,
			ClientID:     cfg.Engine.ClientID,
			ClientSecret: cfg.Engine.ClientSecret,
			Scope:        cfg.Engine.Scope,
			Timeout:      cfg.Engine.Timeout,
		})
		eng = engine.NewRESTClient(cfg.Engine.BaseURL, tokens, cfg.Engine.Timeout)
	}

	var guard inflight.Guard = inflight.Nop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		guard = inflight.NewRedis(rdb, cfg.Redis.InflightTTL)
		slog.Info("in-flight decision guard enabled", "addr", cfg.Redis.Addr)
	}

	orch := approval.New(chat, eng, approval.Options{
		Guard:   guard,
		Logger:  logger,
		Backend: cfg.Engine.Backend,
	})
	dispatcher := slackbot.NewDispatcher(orch, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(recordRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "backend": cfg.Engine.Backend})
	})
	r.Handle("/metrics", metrics.Handler())
	if !cfg.Slack.SocketMode() {
		r.Handle("/slack/interactions", dispatcher.HTTPHandler(cfg.Slack.SigningSecret))
	}
	if tc != nil {
		registerApprovalRoutes(r, tc, cfg.Temporal.TaskQueue)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("approval bridge listening", "port", cfg.Server.Port, "backend", cfg.Engine.Backend, "socketMode", cfg.Slack.SocketMode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	if cfg.Slack.SocketMode() {
		sm := socketmode.New(api)
		go func() {
			if err := dispatcher.RunSocketMode(ctx, sm); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("socket mode stopped", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Decisions already accepted still get their engine call and chat updates.
	done := make(chan struct{})
	go func() {
		orch.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		slog.Warn("in-flight decisions did not finish before shutdown deadline")
	}
	slog.Info("server exited")
}

func recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordHTTPRequest(r.Method, route, ww.Status())
	})
}
