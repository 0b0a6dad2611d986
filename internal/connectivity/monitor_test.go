package connectivity_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"portalsync/internal/connectivity"
	"portalsync/internal/services"
)

type scriptedProber struct {
	fail atomic.Bool
	err  error
}

func (p *scriptedProber) Probe(context.Context) error {
	if p.fail.Load() {
		return p.err
	}
	return nil
}

func TestSetDeliversTransitionsOnly(t *testing.T) {
	m := connectivity.NewMonitor(true, nil, connectivity.Options{}, nil)
	ch, cancel := m.Subscribe()
	defer cancel()

	m.Set(true)
	select {
	case v := <-ch:
		t.Fatalf("unexpected notification %v without a transition", v)
	default:
	}

	m.Set(false)
	if v := <-ch; v {
		t.Fatal("expected offline notification")
	}
	if m.Online() {
		t.Fatal("monitor should report offline")
	}
}

func TestSlowSubscriberSeesLatestState(t *testing.T) {
	m := connectivity.NewMonitor(true, nil, connectivity.Options{}, nil)
	ch, cancel := m.Subscribe()
	defer cancel()

	m.Set(false)
	m.Set(true)
	m.Set(false)
	m.Set(true)

	if v := <-ch; !v {
		t.Fatal("expected latest state online")
	}
	select {
	case v := <-ch:
		t.Fatalf("stale notification %v left in channel", v)
	default:
	}
}

func TestCancelledSubscriptionStopsReceiving(t *testing.T) {
	m := connectivity.NewMonitor(true, nil, connectivity.Options{}, nil)
	ch, cancel := m.Subscribe()
	cancel()
	cancel()
	m.Set(false)
	select {
	case v := <-ch:
		t.Fatalf("cancelled subscriber received %v", v)
	default:
	}
}

func TestProbeNeedsConsecutiveFailures(t *testing.T) {
	prober := &scriptedProber{err: services.Wrap(services.ErrConnectivity, "live", "probe", "refused", nil)}
	m := connectivity.NewMonitor(true, prober, connectivity.Options{FailureThreshold: 2, ProbeTimeout: time.Second}, nil)
	ctx := context.Background()

	prober.fail.Store(true)
	m.ProbeOnce(ctx)
	if !m.Online() {
		t.Fatal("a single failed probe should not flip to offline")
	}
	m.ProbeOnce(ctx)
	if m.Online() {
		t.Fatal("expected offline after two failed probes")
	}
	prober.fail.Store(false)
	m.ProbeOnce(ctx)
	if !m.Online() {
		t.Fatal("expected online after a successful probe")
	}
}

func TestProbeIgnoresNonConnectivityErrors(t *testing.T) {
	prober := &scriptedProber{err: errors.New("unexpected status")}
	prober.fail.Store(true)
	m := connectivity.NewMonitor(false, prober, connectivity.Options{ProbeTimeout: time.Second}, nil)
	m.ProbeOnce(context.Background())
	if !m.Online() {
		t.Fatal("a reachable backend with an error response counts as online")
	}
}

func TestRunProbesUntilCancelled(t *testing.T) {
	prober := &scriptedProber{err: services.Wrap(services.ErrConnectivity, "live", "probe", "refused", nil)}
	prober.fail.Store(true)
	m := connectivity.NewMonitor(true, prober, connectivity.Options{Interval: 5 * time.Millisecond, FailureThreshold: 1}, nil)
	ch, cancelSub := m.Subscribe()
	defer cancelSub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case v := <-ch:
		if v {
			t.Fatal("expected offline transition")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("probe loop never reported offline")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
