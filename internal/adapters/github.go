// Package adapters holds clients for the external profile providers.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
	"github.com/ZanzyTHEbar/aurameter/internal/resilience"
	"github.com/ZanzyTHEbar/aurameter/internal/types"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGitHubAPIURL = "https://api.github.com"
	githubAPIName       = "github"
	userAgent           = "AuraMeter/1.0"

	reposPerPage    = 100
	topLanguages    = 6
	readmeCheckTop  = 3
	maxErrorBodyLen = 512
)

// APIObserver receives one call per upstream request.
type APIObserver interface {
	ObserveExternalAPI(api, endpoint string, status int, duration time.Duration)
}

// HealthRecorder tracks upstream error rates.
type HealthRecorder interface {
	Record(service string, err error)
}

// GitHubAdapter fetches data from GitHub API
type GitHubAdapter struct {
	token    string
	baseURL  string
	pool     *resilience.ConnectionPool
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
	observer APIObserver
	health   HealthRecorder
	now      func() time.Time
}

// Option configures a GitHubAdapter.
type Option func(*GitHubAdapter)

// WithBaseURL points the adapter at another API root, e.g. GitHub Enterprise.
func WithBaseURL(u string) Option {
	return func(g *GitHubAdapter) {
		if u != "" {
			g.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithObserver records request metrics.
func WithObserver(o APIObserver) Option {
	return func(g *GitHubAdapter) { g.observer = o }
}

// WithHealth records request outcomes for degradation tracking.
func WithHealth(h HealthRecorder) Option {
	return func(g *GitHubAdapter) { g.health = h }
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *GitHubAdapter) { g.retry = cfg }
}

// WithCircuitBreaker replaces the process-wide "github" breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(g *GitHubAdapter) { g.breaker = cb }
}

// NewGitHubAdapter creates a new GitHub adapter with connection pooling
func NewGitHubAdapter(token string, opts ...Option) *GitHubAdapter {
	g := &GitHubAdapter{
		token:   token,
		baseURL: DefaultGitHubAPIURL,
		retry:   resilience.StandardRetryPolicy.Config,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.breaker == nil {
		g.breaker = resilience.GetCircuitBreaker(githubAPIName, resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			RecoveryTimeout:  30 * time.Second,
			SuccessThreshold: 3,
		})
	}
	g.pool = resilience.NewConnectionPool(10, 20, 30*time.Second, g.breaker)
	return g
}

// FetchProfile fetches a user, their 100 most recently updated repositories
// and the language shares across them. The three most starred repositories
// are checked for a README.
func (g *GitHubAdapter) FetchProfile(ctx context.Context, username string) (types.Profile, error) {
	user, err := g.FetchUser(ctx, username)
	if err != nil {
		return types.Profile{}, err
	}

	repos, err := g.FetchRepos(ctx, user.Login)
	if err != nil {
		return types.Profile{}, err
	}

	g.markReadmes(ctx, user.Login, repos)

	return types.Profile{
		User:      user,
		Repos:     repos,
		Languages: LanguageShares(repos),
	}, nil
}

// FetchUser fetches the public profile of a user.
func (g *GitHubAdapter) FetchUser(ctx context.Context, username string) (types.GitHubUser, error) {
	var user types.GitHubUser
	endpoint := "/users/" + url.PathEscape(username)
	if err := g.getJSON(ctx, endpoint, nil, &user); err != nil {
		if apperrors.IsNotFound(err) {
			return user, apperrors.NewNotFoundError("GitHub user", username)
		}
		return user, err
	}
	return user, nil
}

// FetchRepos lists a user's public repositories, most recently updated first.
func (g *GitHubAdapter) FetchRepos(ctx context.Context, username string) ([]types.Repo, error) {
	query := url.Values{}
	query.Set("per_page", strconv.Itoa(reposPerPage))
	query.Set("sort", "updated")

	var repos []types.Repo
	endpoint := "/users/" + url.PathEscape(username) + "/repos"
	if err := g.getJSON(ctx, endpoint, query, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// SearchResult is one page of repository search.
type SearchResult struct {
	TotalCount        int          `json:"total_count"`
	IncompleteResults bool         `json:"incomplete_results"`
	Items             []types.Repo `json:"items"`
}

// SearchRepositories runs a repository search sorted by stars, descending.
func (g *GitHubAdapter) SearchRepositories(ctx context.Context, q string, page, perPage int) (SearchResult, error) {
	query := url.Values{}
	query.Set("q", q)
	query.Set("sort", "stars")
	query.Set("order", "desc")
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	var result SearchResult
	err := g.getJSON(ctx, "/search/repositories", query, &result)
	return result, err
}

// HasReadme reports whether a repository has a README.
func (g *GitHubAdapter) HasReadme(ctx context.Context, owner, repo string) (bool, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/readme", url.PathEscape(owner), url.PathEscape(repo))
	resp, err := g.do(ctx, endpoint, nil)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	resilience.DrainAndClose(resp.Body)
	return true, nil
}

func (g *GitHubAdapter) markReadmes(ctx context.Context, owner string, repos []types.Repo) {
	idx := make([]int, len(repos))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return repos[idx[a]].StargazersCount > repos[idx[b]].StargazersCount
	})
	if len(idx) > readmeCheckTop {
		idx = idx[:readmeCheckTop]
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, i := range idx {
		eg.Go(func() error {
			ok, err := g.HasReadme(egCtx, owner, repos[i].Name)
			if err != nil {
				slog.Debug("README check failed", "repo", repos[i].Name, "error", err)
				return nil
			}
			repos[i].HasReadme = ok
			return nil
		})
	}
	_ = eg.Wait()
}

// LanguageShares counts repositories by primary language and keeps the top six.
// Percentages are relative to all repositories that declare a language.
func LanguageShares(repos []types.Repo) []types.LanguageShare {
	counts := make(map[string]int)
	total := 0
	for _, r := range repos {
		if r.Language == "" {
			continue
		}
		counts[r.Language]++
		total++
	}

	shares := make([]types.LanguageShare, 0, len(counts))
	for name, count := range counts {
		shares = append(shares, types.LanguageShare{
			Name:       name,
			Count:      count,
			Percentage: float64(count) / float64(total) * 100,
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Name < shares[j].Name
	})
	if len(shares) > topLanguages {
		shares = shares[:topLanguages]
	}
	return shares
}

func (g *GitHubAdapter) getJSON(ctx context.Context, endpoint string, query url.Values, dest interface{}) error {
	resp, err := g.do(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer resilience.DrainAndClose(resp.Body)

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return apperrors.NewExternalAPIError(githubAPIName, resp.StatusCode, fmt.Errorf("decode %s: %w", endpoint, err))
	}
	return nil
}

// do performs a GET with retries on transient failures and maps non-2xx
// statuses onto the error taxonomy. The caller owns the body on success.
func (g *GitHubAdapter) do(ctx context.Context, endpoint string, query url.Values) (*http.Response, error) {
	target := g.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	start := g.now()
	resp, err := resilience.RetryHTTP(ctx, g.retry, func() (*http.Response, error) {
		return g.makeRequest(ctx, http.MethodGet, target)
	})
	duration := g.now().Sub(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if g.observer != nil {
		g.observer.ObserveExternalAPI(githubAPIName, endpointLabel(endpoint), status, duration)
	}

	if err != nil {
		var cbErr *resilience.CircuitBreakerError
		var appErr *apperrors.AppError
		if errors.As(err, &cbErr) {
			appErr = apperrors.NewUnavailableError("GitHub API temporarily unavailable", err)
		} else {
			appErr = apperrors.ToAppError(err)
		}
		g.record(appErr)
		return nil, appErr
	}

	if status >= 200 && status < 300 {
		g.record(nil)
		return resp, nil
	}

	mapped := g.statusError(resp, endpoint)
	resilience.DrainAndClose(resp.Body)
	if status >= http.StatusInternalServerError {
		g.record(mapped)
	} else {
		g.record(nil)
	}
	return nil, mapped
}

func (g *GitHubAdapter) record(err error) {
	if g.health != nil {
		g.health.Record(githubAPIName, err)
	}
}

func (g *GitHubAdapter) statusError(resp *http.Response, endpoint string) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperrors.NewNotFoundError("GitHub resource", endpoint)
	case http.StatusForbidden, http.StatusTooManyRequests:
		retryAfter := g.retryAfter(resp.Header)
		slog.Warn("GitHub rate limit hit",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"retry_after", retryAfter)
		return apperrors.NewRateLimitError(githubAPIName, retryAfter)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return apperrors.NewExternalAPIError(githubAPIName, resp.StatusCode,
			fmt.Errorf("GET %s: %s", endpoint, strings.TrimSpace(string(body))))
	}
}

// retryAfter reads Retry-After (seconds) or X-RateLimit-Reset (epoch seconds).
func (g *GitHubAdapter) retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Unix(epoch, 0).Sub(g.now()); d > 0 {
				return d.Round(time.Second)
			}
		}
	}
	return 0
}

// endpointLabel collapses path parameters to keep metric cardinality bounded.
func endpointLabel(endpoint string) string {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	switch {
	case len(parts) >= 1 && parts[0] == "search":
		return "/" + strings.Join(parts, "/")
	case len(parts) == 2 && parts[0] == "users":
		return "/users/{user}"
	case len(parts) == 3 && parts[0] == "users":
		return "/users/{user}/" + parts[2]
	case len(parts) == 4 && parts[0] == "repos":
		return "/repos/{owner}/{repo}/" + parts[3]
	default:
		return "other"
	}
}

// makeRequest makes an HTTP request to GitHub API using the connection pool
func (g *GitHubAdapter) makeRequest(ctx context.Context, method, target string) (*http.Response, error) {
	headers := map[string]string{
		"Accept":               "application/vnd.github.v3+json",
		"X-GitHub-Api-Version": "2022-11-28",
		"User-Agent":           userAgent,
	}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}

	return g.pool.DoRequest(ctx, method, target, headers)
}

// GetPoolStats returns connection pool statistics
func (g *GitHubAdapter) GetPoolStats() map[string]interface{} {
	return g.pool.GetStats()
}

// Close closes the connection pool
func (g *GitHubAdapter) Close() error {
	return g.pool.Close()
}
