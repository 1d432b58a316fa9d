// Package export writes the stored population to Parquet files using
// github.com/parquet-go/parquet-go.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/database"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/parquet-go/parquet-go"
)

// EntryRow is one leaderboard entry as a Parquet row.
type EntryRow struct {
	Username string `parquet:"username,snappy"`

	AvatarURL string `parquet:"avatar_url,snappy"`

	Followers   int64 `parquet:"followers,snappy"`
	PublicRepos int64 `parquet:"public_repos,snappy"`
	TotalStars  int64 `parquet:"total_stars,snappy"`
	TotalForks  int64 `parquet:"total_forks,snappy"`

	// DominantLanguage is null for users without a language on any repo.
	DominantLanguage *string `parquet:"dominant_language,optional,snappy"`

	ImpactIndex int64  `parquet:"impact_index,snappy"`
	Tier        string `parquet:"tier,snappy,dict"`

	LastAnalyzedAt time.Time `parquet:"last_analyzed_at,snappy"`
}

// RowOf maps a stored entry onto its Parquet row.
func RowOf(e database.LeaderboardEntry) EntryRow {
	return EntryRow{
		Username:         e.Username,
		AvatarURL:        e.AvatarURL,
		Followers:        e.Followers,
		PublicRepos:      e.PublicRepos,
		TotalStars:       e.TotalStars,
		TotalForks:       e.TotalForks,
		DominantLanguage: e.DominantLanguage,
		ImpactIndex:      e.ImpactIndex,
		Tier:             string(leaderboard.TierOf(e)),
		LastAnalyzedAt:   e.LastAnalyzedAt.UTC(),
	}
}

// Source streams every stored entry. *database.Repository satisfies it.
type Source interface {
	ForEach(ctx context.Context, fn func(database.LeaderboardEntry) error) error
}

const batchSize = 1024

// WriteEntries streams src into w and returns the number of rows written.
func WriteEntries(ctx context.Context, src Source, w io.Writer) (int, error) {
	writer := parquet.NewGenericWriter[EntryRow](w)

	batch := make([]EntryRow, 0, batchSize)
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := writer.Write(batch)
		total += n
		batch = batch[:0]
		if err != nil {
			return fmt.Errorf("failed to write rows: %w", err)
		}
		return nil
	}

	err := src.ForEach(ctx, func(e database.LeaderboardEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, RowOf(e))
		if len(batch) == batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		_ = writer.Close()
		return total, err
	}

	if err := writer.Close(); err != nil {
		return total, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return total, nil
}

// WriteEntriesFile writes src to a new Parquet file at outputPath.
func WriteEntriesFile(ctx context.Context, src Source, outputPath string) (int, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	n, err := WriteEntries(ctx, src, file)
	if err != nil {
		return n, err
	}
	return n, file.Sync()
}
