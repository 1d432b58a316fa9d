package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
)

const (
	stmtUpsert     = "upsert_entry"
	stmtGetEntry   = "get_entry"
	stmtImpactOf   = "impact_of"
	stmtCount      = "count_entries"
	stmtCountAbove = "count_above"
)

// MaxTopN bounds a single leaderboard read.
const MaxTopN = 400

// DefaultPageSize is the batch size for full scans.
const DefaultPageSize = 5000

// Repository handles leaderboard persistence
type Repository struct {
	db       *DB
	pageSize int
	now      func() time.Time
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db, pageSize: DefaultPageSize, now: time.Now}
}

// WithPageSize overrides the scan batch size.
func (r *Repository) WithPageSize(n int) *Repository {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

func (r *Repository) stmt(name string) (*sql.Stmt, error) {
	stmt, err := r.db.GetPreparedStatement(name)
	if err != nil {
		return nil, apperrors.NewInternalError("missing prepared statement", err)
	}
	return stmt, nil
}

// Upsert writes every derived field of the entry, keyed by username.
// A zero LastAnalyzedAt is stamped with the current time.
func (r *Repository) Upsert(ctx context.Context, e LeaderboardEntry) error {
	if e.Username == "" {
		return apperrors.NewValidationError("username is required")
	}
	if e.ImpactIndex < 0 {
		return apperrors.NewValidationError("impact index must be non-negative", fmt.Sprintf("got %d", e.ImpactIndex))
	}
	if e.LastAnalyzedAt.IsZero() {
		e.LastAnalyzedAt = r.now()
	}

	stmt, err := r.stmt(stmtUpsert)
	if err != nil {
		return err
	}

	var lang interface{}
	if e.DominantLanguage != nil && *e.DominantLanguage != "" {
		lang = *e.DominantLanguage
	}

	_, err = stmt.ExecContext(ctx,
		e.Username, e.AvatarURL, e.Followers, e.PublicRepos,
		e.TotalStars, e.TotalForks, lang, e.ImpactIndex, e.LastAnalyzedAt.UTC())
	if err != nil {
		return apperrors.NewStoreUnavailableError("upsert", err)
	}
	return nil
}

// GetByUsername returns the stored entry or a NotFound error.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*LeaderboardEntry, error) {
	stmt, err := r.stmt(stmtGetEntry)
	if err != nil {
		return nil, err
	}

	e, err := scanEntry(stmt.QueryRowContext(ctx, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("leaderboard entry", username)
	}
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("get entry", err)
	}
	return &e, nil
}

// ImpactOf returns a stored user's impact index.
func (r *Repository) ImpactOf(ctx context.Context, username string) (int64, error) {
	stmt, err := r.stmt(stmtImpactOf)
	if err != nil {
		return 0, err
	}

	var impact int64
	err = stmt.QueryRowContext(ctx, username).Scan(&impact)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.NewNotFoundError("leaderboard entry", username)
	}
	if err != nil {
		return 0, apperrors.NewStoreUnavailableError("impact lookup", err)
	}
	return impact, nil
}

// Count returns the number of stored entries.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, stmtCount)
}

// CountAbove returns the number of entries with a strictly greater impact index.
func (r *Repository) CountAbove(ctx context.Context, impact int64) (int64, error) {
	return r.count(ctx, stmtCountAbove, impact)
}

func (r *Repository) count(ctx context.Context, name string, args ...interface{}) (int64, error) {
	stmt, err := r.stmt(name)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := stmt.QueryRowContext(ctx, args...).Scan(&n); err != nil {
		return 0, apperrors.NewStoreUnavailableError(name, err)
	}
	return n, nil
}

// ImpactValues returns every stored impact index. Rows are read in
// username-keyed pages so the result is never truncated.
func (r *Repository) ImpactValues(ctx context.Context) ([]int64, error) {
	query := r.db.Rebind(`SELECT github_username, impact_index FROM user_leaderboard
		WHERE github_username > ? ORDER BY github_username LIMIT ?`)

	var values []int64
	after := ""
	for {
		rows, err := r.db.QueryContext(ctx, query, after, r.pageSize)
		if err != nil {
			return nil, apperrors.NewStoreUnavailableError("scan impact values", err)
		}

		read := 0
		for rows.Next() {
			var impact int64
			if err := rows.Scan(&after, &impact); err != nil {
				_ = rows.Close()
				return nil, apperrors.NewStoreUnavailableError("scan impact values", err)
			}
			values = append(values, impact)
			read++
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, apperrors.NewStoreUnavailableError("scan impact values", err)
		}
		if read < r.pageSize {
			return values, nil
		}
	}
}

// ForEach streams every entry in username order.
func (r *Repository) ForEach(ctx context.Context, fn func(LeaderboardEntry) error) error {
	query := r.db.Rebind(`SELECT ` + entryColumns + ` FROM user_leaderboard
		WHERE github_username > ? ORDER BY github_username LIMIT ?`)

	after := ""
	for {
		rows, err := r.db.QueryContext(ctx, query, after, r.pageSize)
		if err != nil {
			return apperrors.NewStoreUnavailableError("scan entries", err)
		}

		var page []LeaderboardEntry
		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				_ = rows.Close()
				return apperrors.NewStoreUnavailableError("scan entries", err)
			}
			page = append(page, e)
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return apperrors.NewStoreUnavailableError("scan entries", err)
		}

		for _, e := range page {
			if err := fn(e); err != nil {
				return err
			}
		}
		if len(page) < r.pageSize {
			return nil
		}
		after = page[len(page)-1].Username
	}
}

// TopN returns entries matching q in descending SortBy order, ties broken by
// username. Limit is clamped to [1, MaxTopN].
func (r *Repository) TopN(ctx context.Context, q TopNQuery) ([]LeaderboardEntry, error) {
	sortBy, err := ParseSortKey(string(q.SortBy))
	if err != nil {
		return nil, apperrors.NewValidationError("invalid sort key", err.Error())
	}

	limit := q.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > MaxTopN {
		limit = MaxTopN
	}

	var where []string
	var args []interface{}
	if q.Language != "" {
		where = append(where, "dominant_language = ?")
		args = append(args, q.Language)
	}
	if q.MinImpact > 0 {
		where = append(where, "impact_index >= ?")
		args = append(args, q.MinImpact)
	}
	if q.MinStars > 0 {
		where = append(where, "total_stars >= ?")
		args = append(args, q.MinStars)
	}
	if q.MinFollowers > 0 {
		where = append(where, "followers >= ?")
		args = append(args, q.MinFollowers)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + entryColumns + ` FROM user_leaderboard`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	// sortBy comes from a fixed whitelist.
	fmt.Fprintf(&b, " ORDER BY %s DESC, github_username ASC LIMIT ?", sortBy)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(b.String()), args...)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("top n", err)
	}
	defer apperrors.SafeClose(rows, "leaderboard rows")

	entries := make([]LeaderboardEntry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.NewStoreUnavailableError("top n", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailableError("top n", err)
	}
	return entries, nil
}

// Languages returns the distinct non-null dominant languages, sorted.
func (r *Repository) Languages(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT dominant_language FROM user_leaderboard
		WHERE dominant_language IS NOT NULL AND dominant_language <> '' ORDER BY dominant_language`)
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError("languages", err)
	}
	defer apperrors.SafeClose(rows, "language rows")

	var langs []string
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, apperrors.NewStoreUnavailableError("languages", err)
		}
		langs = append(langs, lang)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreUnavailableError("languages", err)
	}
	return langs, nil
}

// Health pings the database.
func (r *Repository) Health(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return apperrors.NewStoreUnavailableError("ping", err)
	}
	return nil
}
