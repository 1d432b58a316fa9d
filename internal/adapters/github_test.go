package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/resilience"
	"github.com/ZanzyTHEbar/aurameter/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveExternalAPI(api, endpoint string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, api+" "+endpoint+" "+strconv.Itoa(status))
}

type recordingHealth struct {
	mu   sync.Mutex
	errs []error
}

func (h *recordingHealth) Record(_ string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func newTestAdapter(t *testing.T, handler http.Handler, opts ...Option) *GitHubAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL),
		WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 50})),
		WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 1}),
	}
	a := NewGitHubAdapter("ghp_test", append(base, opts...)...)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestGitHubAdapter_FetchProfile(t *testing.T) {
	var readmeHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/users/octocat", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		writeJSON(w, map[string]interface{}{
			"login": "octocat", "followers": 42, "public_repos": 4, "created_at": "2011-01-25T18:44:36Z",
		})
	})
	mux.HandleFunc("/users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "updated", r.URL.Query().Get("sort"))
		writeJSON(w, []map[string]interface{}{
			{"name": "small", "stargazers_count": 1, "language": "Go"},
			{"name": "big", "stargazers_count": 900, "language": "Go"},
			{"name": "mid", "stargazers_count": 50, "language": "Rust"},
			{"name": "docs", "stargazers_count": 70, "language": nil},
		})
	})
	mux.HandleFunc("/repos/octocat/", func(w http.ResponseWriter, r *http.Request) {
		readmeHits.Add(1)
		if r.URL.Path == "/repos/octocat/big/readme" {
			writeJSON(w, map[string]string{"name": "README.md"})
			return
		}
		http.NotFound(w, r)
	})

	a := newTestAdapter(t, mux)
	profile, err := a.FetchProfile(context.Background(), "octocat")
	require.NoError(t, err)

	assert.Equal(t, "octocat", profile.User.Login)
	assert.Equal(t, 42, profile.User.Followers)
	require.Len(t, profile.Repos, 4)
	assert.Equal(t, int32(3), readmeHits.Load(), "only the three most starred repos are checked")

	byName := map[string]types.Repo{}
	for _, r := range profile.Repos {
		byName[r.Name] = r
	}
	assert.True(t, byName["big"].HasReadme)
	assert.False(t, byName["mid"].HasReadme)
	assert.False(t, byName["small"].HasReadme)

	require.Len(t, profile.Languages, 2)
	assert.Equal(t, "Go", profile.Languages[0].Name)
	assert.Equal(t, 2, profile.Languages[0].Count)
	assert.InDelta(t, 66.67, profile.Languages[0].Percentage, 0.01)
}

func TestGitHubAdapter_StatusMapping(t *testing.T) {
	reset := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name:    "404 is not found",
			handler: func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
			check: func(t *testing.T, err error) {
				assert.True(t, apperrors.IsNotFound(err))
			},
		},
		{
			name: "403 with reset header is rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
				w.WriteHeader(http.StatusForbidden)
			},
			check: func(t *testing.T, err error) {
				require.True(t, apperrors.IsRateLimited(err))
				assert.Equal(t, 30*time.Second, apperrors.ToAppError(err).RetryAfter)
			},
		},
		{
			name: "429 with retry-after is rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			check: func(t *testing.T, err error) {
				require.True(t, apperrors.IsRateLimited(err))
				assert.Equal(t, 7*time.Second, apperrors.ToAppError(err).RetryAfter)
			},
		},
		{
			name: "persistent 502 is an external api error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			check: func(t *testing.T, err error) {
				appErr := apperrors.ToAppError(err)
				assert.Equal(t, apperrors.CategoryExternalAPI, appErr.Category)
			},
		},
		{
			name: "malformed body is an external api error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
			check: func(t *testing.T, err error) {
				assert.Equal(t, apperrors.CategoryExternalAPI, apperrors.ToAppError(err).Category)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t, tt.handler)
			a.now = func() time.Time { return reset.Add(-30 * time.Second) }

			_, err := a.FetchUser(context.Background(), "ghost")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGitHubAdapter_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]interface{}{"login": "octocat"})
	})

	observer := &recordingObserver{}
	health := &recordingHealth{}
	a := newTestAdapter(t, handler, WithObserver(observer), WithHealth(health))

	user, err := a.FetchUser(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, int32(2), hits.Load())

	assert.Equal(t, []string{"github /users/{user} 200"}, observer.calls)
	require.Len(t, health.errs, 1)
	assert.NoError(t, health.errs[0])
}

func TestGitHubAdapter_OpenBreakerIsUnavailable(t *testing.T) {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	a := newTestAdapter(t, handler, WithCircuitBreaker(cb), WithRetry(resilience.RetryConfig{MaxAttempts: 1}))

	_, err := a.FetchUser(context.Background(), "octocat")
	require.Error(t, err)
	require.Equal(t, resilience.StateOpen, cb.State())

	_, err = a.FetchUser(context.Background(), "octocat")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestGitHubAdapter_SearchRepositories(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/repositories", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "stars:>=10000 language:Go", q.Get("q"))
		assert.Equal(t, "stars", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("order"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "100", q.Get("per_page"))
		writeJSON(w, map[string]interface{}{
			"total_count": 2,
			"items": []map[string]interface{}{
				{"name": "a", "owner": map[string]string{"login": "alice", "type": "User"}},
				{"name": "b", "owner": map[string]string{"login": "acme", "type": "Organization"}},
			},
		})
	})

	a := newTestAdapter(t, handler)
	res, err := a.SearchRepositories(context.Background(), "stars:>=10000 language:Go", 2, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "alice", res.Items[0].Owner.Login)
	assert.Equal(t, "Organization", res.Items[1].Owner.Type)
}

func TestLanguageShares(t *testing.T) {
	repos := []types.Repo{}
	for _, lang := range []string{"Go", "Go", "Go", "Rust", "Rust", "C", "Zig", "Lua", "Nim", "Odin", ""} {
		repos = append(repos, types.Repo{Language: lang})
	}

	shares := LanguageShares(repos)
	require.Len(t, shares, 6)
	assert.Equal(t, "Go", shares[0].Name)
	assert.InDelta(t, 30.0, shares[0].Percentage, 1e-9)
	assert.Equal(t, "Rust", shares[1].Name)
	// ties break alphabetically
	assert.Equal(t, []string{"C", "Lua", "Nim", "Odin"}, []string{shares[2].Name, shares[3].Name, shares[4].Name, shares[5].Name})

	assert.Empty(t, LanguageShares(nil))
}

func TestEndpointLabel(t *testing.T) {
	tests := map[string]string{
		"/users/octocat":              "/users/{user}",
		"/users/octocat/repos":        "/users/{user}/repos",
		"/repos/octocat/hello/readme": "/repos/{owner}/{repo}/readme",
		"/search/repositories":        "/search/repositories",
		"/rate_limit":                 "other",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, endpointLabel(in))
		})
	}
}
