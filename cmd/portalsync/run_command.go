package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"portalsync/internal/api"
	"portalsync/internal/logging"
	"portalsync/internal/metrics"
	"portalsync/internal/notifications"
)

const metricsShutdownTimeout = 5 * time.Second

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch connectivity and replay queued actions until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runAgent(signalCtx, ctx)
		},
	}
}

func runAgent(ctx context.Context, cmdCtx *commandContext) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collectors, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	rt, err := cmdCtx.openRuntime(ctx, runtimeOptions{consoleLogs: true, metrics: collectors})
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.probe(ctx)
	collectors.SetOnline(rt.monitor.Online())

	rt.logger.Info("portalsync agent started",
		logging.String(logging.FieldEventType, "agent_started"),
		logging.String(logging.FieldMode, string(rt.client.Mode(ctx))),
		logging.String("live_url", rt.live.BaseURL()),
		logging.Bool("online", rt.monitor.Online()),
		logging.Int("queued", rt.queue.Size()),
	)

	transitions, cancelTransitions := rt.monitor.Subscribe()
	defer cancelTransitions()
	events, cancelEvents := rt.client.Events()
	defer cancelEvents()

	watcher := &agentWatcher{rt: rt, collectors: collectors, notifier: notifications.NewService(cfg)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.monitor.Run(gctx) })
	g.Go(func() error { return rt.client.Run(gctx) })
	g.Go(func() error {
		watcher.watchConnectivity(gctx, transitions)
		return nil
	})
	g.Go(func() error {
		watcher.watchEvents(gctx, events)
		return nil
	})
	if cfg.Metrics.Bind != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.Bind, metrics.Handler(registry), rt.logger)
		})
	}

	err = g.Wait()
	rt.logger.Info("portalsync agent stopped",
		logging.String(logging.FieldEventType, "agent_stopped"),
		logging.Int("queued", rt.queue.Size()),
	)
	return err
}

// agentWatcher reacts to connectivity transitions and sync events on behalf
// of the run agent: it keeps the online gauge current, logs outcomes and
// forwards alerts to the notifier.
type agentWatcher struct {
	rt         *runtime
	collectors *metrics.Collectors
	notifier   notifications.Service
	synced     int
}

func (w *agentWatcher) watchConnectivity(ctx context.Context, transitions <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case online := <-transitions:
			w.collectors.SetOnline(online)
			w.notify("connectivity", w.notifier.NotifyConnectivityChanged(ctx, online, w.rt.queue.Size()))
		}
	}
}

func (w *agentWatcher) watchEvents(ctx context.Context, events <-chan api.SyncEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		}
	}
}

func (w *agentWatcher) handleEvent(ctx context.Context, event api.SyncEvent) {
	logger := w.rt.logger
	attrs := []logging.Attr{
		logging.String(logging.FieldActionID, event.Action.ID),
		logging.String(logging.FieldActionType, event.Action.ActionType),
		logging.Int(logging.FieldAttempts, event.Action.Attempts),
	}
	if event.Result.Success {
		logger.Info("queued action confirmed", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "action_confirmed"))...)...)
		w.synced++
		if remaining := w.rt.queue.Size(); remaining == 0 {
			w.notify("queue_synced", w.notifier.NotifyQueueSynced(ctx, w.synced, remaining))
			w.synced = 0
		}
		return
	}
	logging.ErrorWithContext(logger, "queued action failed permanently", "action_failed",
		append(attrs,
			logging.String("error", event.Result.Error),
			logging.String("kind", string(event.Result.Kind)),
			logging.String(logging.FieldErrorHint, "portalsync queue retry "+event.Action.ID),
		)...,
	)
	w.notify("action_failed", w.notifier.NotifyActionFailed(ctx, event.Action.ID, event.Action.ActionType, event.Result.Error))
}

func (w *agentWatcher) notify(kind string, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(w.rt.logger, "notification failed", "notification_failed",
		logging.String("notification", kind),
		logging.Error(err),
		logging.String(logging.FieldImpact, "operator was not alerted"),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
	)
}

func serveMetrics(ctx context.Context, bind string, handler http.Handler, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen on metrics bind %s: %w", bind, err)
	}
	logger.Info("metrics endpoint listening",
		logging.String(logging.FieldEventType, "metrics_listening"),
		logging.String("bind", listener.Addr().String()),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	}
}

