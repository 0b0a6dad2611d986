package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"portalsync/internal/api"
	"portalsync/internal/backend"
	"portalsync/internal/config"
	"portalsync/internal/connectivity"
	"portalsync/internal/kvstore"
	"portalsync/internal/logging"
	"portalsync/internal/metrics"
	"portalsync/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runtime is the composition root shared by commands that touch the durable
// store. It owns the process lock for as long as it is open.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	lock     *flock.Flock
	store    *kvstore.Store
	queue    *queue.Queue
	live     *backend.Live
	selector *backend.Selector
	monitor  *connectivity.Monitor
	client   *api.Client
}

type runtimeOptions struct {
	// consoleLogs sends logs to stdout as well as the log file.
	consoleLogs bool
	// initialOnline is the connectivity state before the first probe.
	initialOnline bool
	metrics       *metrics.Collectors
}

func (c *commandContext) withRuntime(ctx context.Context, opts runtimeOptions, fn func(*runtime) error) error {
	rt, err := c.openRuntime(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func (c *commandContext) openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	var logger *slog.Logger
	if opts.consoleLogs {
		logger, err = logging.NewFromConfig(cfg)
	} else {
		logger, err = logging.NewFileFromConfig(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another portalsync process holds %s; stop it or wait for it to finish", cfg.LockPath())
	}

	rt := &runtime{cfg: cfg, logger: logger, lock: lock}
	if err := rt.build(ctx, opts); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) build(ctx context.Context, opts runtimeOptions) error {
	cfg := rt.cfg

	store, err := kvstore.Open(cfg.StorePath())
	if err != nil {
		return fmt.Errorf("open durable store: %w", err)
	}
	rt.store = store

	queueOpts := queue.Options{
		MaxPending:     cfg.Queue.MaxPending,
		MaxAttempts:    cfg.Queue.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff(),
		MaxBackoff:     cfg.MaxBackoff(),
	}
	selectorOpts := backend.SelectorOptions{DefaultMode: backend.Mode(cfg.Backend.DefaultMode)}
	if opts.metrics != nil {
		queueOpts.Observer = opts.metrics
		selectorOpts.Observer = opts.metrics
	}

	rt.queue = queue.New(store, queueOpts, rt.logger)
	if err := rt.queue.Load(ctx); err != nil {
		return fmt.Errorf("load offline queue: %w", err)
	}

	live, err := backend.NewLive(backend.LiveOptions{
		BaseURL:     cfg.Backend.LiveURL,
		Token:       cfg.Backend.APIToken,
		Timeout:     cfg.RequestTimeout(),
		ReplayRate:  cfg.Backend.ReplayRate,
		ReplayBurst: cfg.Backend.ReplayBurst,
	})
	if err != nil {
		return fmt.Errorf("configure live backend: %w", err)
	}
	rt.live = live
	rt.selector = backend.NewSelector(store, backend.NewDemo(cfg.DemoLatency()), live, selectorOpts, rt.logger)
	rt.monitor = connectivity.NewMonitor(opts.initialOnline, live, connectivity.Options{
		Interval:     cfg.ProbeInterval(),
		ProbeTimeout: cfg.RequestTimeout(),
	}, rt.logger)
	rt.client = api.New(rt.selector, rt.queue, rt.monitor, api.Options{}, rt.logger)
	return nil
}

// probe checks the live backend once so one-shot commands act on the current
// network state rather than the initial guess.
func (rt *runtime) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, rt.cfg.RequestTimeout())
	defer cancel()
	err := rt.live.Probe(probeCtx)
	rt.monitor.Set(err == nil)
	if err != nil {
		rt.logger.Debug("live backend probe failed", logging.Error(err))
	}
	return err == nil
}

func (rt *runtime) Close() {
	var errs []error
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	if rt.lock != nil {
		errs = append(errs, rt.lock.Unlock())
	}
	if err := errors.Join(errs...); err != nil {
		rt.logger.Warn("runtime cleanup failed", logging.Error(err))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
