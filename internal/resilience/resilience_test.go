package resilience

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCircuitBreaker_Transitions(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 2})
	cb.now = clock.now

	boom := errors.New("connection refused")
	ok := func() error { return nil }
	fail := func() error { return boom }

	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Call(fail), boom)
	assert.Equal(t, StateOpen, cb.State())

	var cbErr *CircuitBreakerError
	require.ErrorAs(t, cb.Call(ok), &cbErr)
	assert.Equal(t, StateOpen, cbErr.State)

	clock.advance(time.Minute)
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Call(ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Second})
	cb.now = clock.now

	_ = cb.Call(func() error { return errors.New("down") })
	require.Equal(t, StateOpen, cb.State())

	clock.advance(2 * time.Second)
	_ = cb.Call(func() error { return errors.New("still down") })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_CallerErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	tests := []struct {
		name string
		err  error
	}{
		{name: "not found", err: apperrors.NewNotFoundError("user", "ghost")},
		{name: "validation", err: apperrors.NewValidationError("bad")},
		{name: "rate limit", err: apperrors.NewRateLimitError("github", time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, cb.Call(func() error { return tt.err }), tt.err)
			assert.Equal(t, StateClosed, cb.State())
		})
	}
}

func TestCircuitBreakerRegistry(t *testing.T) {
	r := NewCircuitBreakerRegistry()
	a := r.GetOrCreate("github", CircuitBreakerConfig{})
	b := r.GetOrCreate("github", CircuitBreakerConfig{FailureThreshold: 99})

	assert.Same(t, a, b)
	_, ok := r.Get("redis")
	assert.False(t, ok)

	states := r.States()
	require.Contains(t, states, "github")
	assert.Equal(t, StateClosed, states["github"])
}

func TestConnectionPool_DoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour})
	pool := NewConnectionPool(4, 2, time.Minute, cb)
	defer pool.Close()
	headers := map[string]string{"X-Test": "yes"}

	resp, err := pool.DoRequest(context.Background(), http.MethodGet, srv.URL+"/ok", headers)
	require.NoError(t, err)
	DrainAndClose(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < 2; i++ {
		resp, err = pool.DoRequest(context.Background(), http.MethodGet, srv.URL+"/fail", headers)
		require.NoError(t, err, "5xx responses are returned to the caller")
		DrainAndClose(resp.Body)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}
	assert.Equal(t, StateOpen, cb.State())

	_, err = pool.DoRequest(context.Background(), http.MethodGet, srv.URL+"/ok", headers)
	var cbErr *CircuitBreakerError
	assert.ErrorAs(t, err, &cbErr)
	assert.Equal(t, int32(3), hits.Load())

	stats := pool.GetStats()
	assert.Equal(t, int64(3), stats["total_requests"])
	assert.Equal(t, int64(2), stats["failed_requests"])
	assert.Equal(t, int64(0), stats["in_flight"])
}

func TestConnectionPool_ContextCancelledWhileWaiting(t *testing.T) {
	pool := NewConnectionPool(1, 1, time.Minute, nil)
	pool.slots <- struct{}{} // occupy the only slot

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.DoRequest(ctx, http.MethodGet, "http://127.0.0.1:1", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithConfig(t *testing.T) {
	fast := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1}

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{name: "succeeds first time", errs: []error{nil}, wantCalls: 1},
		{name: "retries network errors", errs: []error{apperrors.NewNetworkError("x", nil), nil}, wantCalls: 2},
		{name: "gives up after max attempts", errs: []error{
			apperrors.NewTimeoutError("t", nil), apperrors.NewTimeoutError("t", nil), apperrors.NewTimeoutError("t", nil),
		}, wantCalls: 3, wantErr: true},
		{name: "does not retry not found", errs: []error{apperrors.NewNotFoundError("user", "x")}, wantCalls: 1, wantErr: true},
		{name: "does not retry rate limits", errs: []error{apperrors.NewRateLimitError("github", time.Second)}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := RetryWithConfig(context.Background(), fast, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetryWithPolicy_CustomClassifier(t *testing.T) {
	policy := RetryPolicy{Name: "any", Config: RetryConfig{
		MaxAttempts:     4,
		InitialDelay:    time.Millisecond,
		BackoffFactor:   1,
		RetryableErrors: func(err error) bool { return !errors.Is(err, context.Canceled) },
	}}

	calls := 0
	err := RetryWithPolicy(context.Background(), policy, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = RetryWithPolicy(context.Background(), policy, func() error {
		calls++
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryHTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch n := hits.Add(1); {
		case r.URL.Path == "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		case n < 3:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, BackoffFactor: 1}
	get := func(path string) RetryableHTTPFunc {
		return func() (*http.Response, error) { return http.Get(srv.URL + path) }
	}

	resp, err := RetryHTTP(context.Background(), cfg, get("/flaky"))
	require.NoError(t, err)
	DrainAndClose(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), hits.Load())

	hits.Store(10)
	resp, err = RetryHTTP(context.Background(), cfg, get("/limited"))
	require.NoError(t, err)
	DrainAndClose(resp.Body)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(11), hits.Load(), "429 is not retried")
}

func TestCalculateDelay(t *testing.T) {
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(cfg, 0))
	assert.Equal(t, 400*time.Millisecond, calculateDelay(cfg, 2))
	assert.Equal(t, time.Second, calculateDelay(cfg, 10))

	cfg.JitterEnabled = true
	d := calculateDelay(cfg, 0)
	assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	assert.Less(t, d, 110*time.Millisecond)
}

func TestDegradationManager(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.now = clock.now
	dm.RegisterService("database", nil)

	for i := 0; i < 9; i++ {
		dm.Record("database", nil)
	}
	dm.Record("database", errors.New("locked"))

	health, ok := dm.GetServiceHealth("database")
	require.True(t, ok)
	assert.Equal(t, LevelDegraded, health.Level)
	assert.Equal(t, "locked", health.LastError)
	assert.InDelta(t, 0.1, health.ErrorRate, 1e-9)

	for i := 0; i < 10; i++ {
		dm.Record("database", errors.New("down"))
	}
	assert.Equal(t, LevelEmergency, dm.Overall())
	assert.False(t, dm.IsServiceAvailable("database"))
	assert.InDelta(t, 0.1, dm.GetThrottleFactor("database"), 1e-9)

	clock.advance(6 * time.Minute)
	dm.Record("database", nil)
	health, _ = dm.GetServiceHealth("database")
	assert.Equal(t, LevelNormal, health.Level, "counters reset after the recovery window")

	dm.Record("unknown", errors.New("ignored"))
	assert.Len(t, dm.GetAllServiceHealth(), 1)
}

func TestDegradationManager_CheckNow(t *testing.T) {
	dm := NewDegradationManager(DefaultDegradationConfig())
	dm.RegisterService("redis", func(context.Context) error { return errors.New("no route") })
	dm.RegisterService("database", func(context.Context) error { return nil })

	dm.CheckNow(context.Background())

	all := dm.GetAllServiceHealth()
	require.Len(t, all, 2)
	assert.Equal(t, "database", all[0].ServiceName)
	assert.Equal(t, LevelNormal, all[0].Level)
	assert.Equal(t, LevelEmergency, all[1].Level)
}
