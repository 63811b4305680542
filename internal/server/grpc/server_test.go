package grpc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jensmemes/memeserver/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type nopLogger struct{}

func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (p *fakePinger) PingContext(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePinger) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func servingStatus(t *testing.T, s *HealthServer) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_NotServingUntilChecked(t *testing.T) {
	s := NewHealthServer("127.0.0.1:0", nopLogger{}, &fakePinger{}, time.Second)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, s))
}

func TestHealth_FollowsDatabase(t *testing.T) {
	db := &fakePinger{}
	s := NewHealthServer("127.0.0.1:0", nopLogger{}, db, time.Second)

	s.check(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, s))

	db.set(errors.New("connection refused"))
	s.check(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, s))

	db.set(nil)
	s.check(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, s))
}

func TestHealth_WatchPollsUntilCancelled(t *testing.T) {
	db := &fakePinger{}
	s := NewHealthServer("127.0.0.1:0", nopLogger{}, db, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.watch(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return servingStatus(t, s) == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	db.set(errors.New("down"))
	require.Eventually(t, func() bool {
		return servingStatus(t, s) == healthpb.HealthCheckResponse_NOT_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestNewHealthServer_DefaultInterval(t *testing.T) {
	s := NewHealthServer("", nopLogger{}, &fakePinger{}, 0)
	assert.Equal(t, DefaultCheckInterval, s.interval)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewHealthServer("127.0.0.1:0", nopLogger{}, &fakePinger{}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewHealthServer("127.0.0.1:99999", nopLogger{}, &fakePinger{}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}
