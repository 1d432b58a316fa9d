package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/analysis"
	"github.com/ZanzyTHEbar/aurameter/internal/collector"
	"github.com/ZanzyTHEbar/aurameter/internal/distribution"
	"github.com/ZanzyTHEbar/aurameter/internal/leaderboard"
	"github.com/ZanzyTHEbar/aurameter/internal/ranking"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

func (w *Writer) tierColor(t leaderboard.Tier) func(...any) string {
	switch t {
	case leaderboard.TierPlatinum:
		return w.paint(color.FgCyan, color.Bold)
	case leaderboard.TierGold:
		return w.paint(color.FgYellow, color.Bold)
	case leaderboard.TierSilver:
		return w.paint(color.FgWhite)
	case leaderboard.TierBronze:
		return w.paint(color.FgMagenta)
	default:
		return w.paint(color.FgHiBlack)
	}
}

func (w *Writer) newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w.out)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

func (w *Writer) keyValues(rows [][]string) error {
	table := w.newTable([]string{"Field", "Value"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// Rank renders a resolved rank.
func (w *Writer) Rank(username string, s ranking.Summary) error {
	if w.json() {
		return writeJSON(w.out, struct {
			Username string `json:"username"`
			ranking.Summary
		}{username, s})
	}

	rows := [][]string{
		{"Username", username},
		{"Tier", string(s.Tier)},
		{"Rank", strconv.FormatInt(s.Rank, 10)},
		{"Total users", strconv.FormatInt(s.TotalUsers, 10)},
		{"Percentile", fmt.Sprintf("%.2f", s.Percentile)},
	}
	if s.EstimatedGlobalRank != nil {
		rows = append(rows, []string{"Est. global rank", strconv.FormatInt(*s.EstimatedGlobalRank, 10)})
	}
	if s.EstimatedGlobalPercentile != nil {
		rows = append(rows, []string{"Est. global percentile", fmt.Sprintf("%.2f", *s.EstimatedGlobalPercentile)})
	}
	if err := w.keyValues(rows); err != nil {
		return err
	}

	if s.IsEstimated {
		_, err := fmt.Fprintln(w.out, w.paint(color.FgYellow)("Estimated from a power-law model; the stored population is small."))
		return err
	}
	return nil
}

// Distribution renders a population snapshot.
func (w *Writer) Distribution(snap *distribution.Snapshot) error {
	if w.json() {
		return writeJSON(w.out, snap)
	}

	p := snap.Percentiles
	rows := [][]string{
		{"Users", strconv.Itoa(snap.TotalUsers)},
		{"Mean", fmt.Sprintf("%.1f", snap.Mean)},
		{"Median", strconv.FormatInt(snap.Median, 10)},
		{"Std dev", fmt.Sprintf("%.1f", snap.StdDev)},
		{"Min", strconv.FormatInt(snap.Min, 10)},
		{"Max", strconv.FormatInt(snap.Max, 10)},
		{"p25", strconv.FormatInt(p.P25, 10)},
		{"p50", strconv.FormatInt(p.P50, 10)},
		{"p75", strconv.FormatInt(p.P75, 10)},
		{"p90", strconv.FormatInt(p.P90, 10)},
		{"p95", strconv.FormatInt(p.P95, 10)},
		{"p99", strconv.FormatInt(p.P99, 10)},
	}
	if err := w.keyValues(rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w.out, "Computed at %s\n", snap.ComputedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	return err
}

// Leaderboard renders the top entries. The avatar column is only shown on
// wide terminals.
func (w *Writer) Leaderboard(entries []leaderboard.Entry) error {
	if w.json() {
		if entries == nil {
			entries = []leaderboard.Entry{}
		}
		return writeJSON(w.out, entries)
	}

	wide := w.width() >= 140
	headers := []string{"#", "Username", "Impact", "Stars", "Forks", "Followers", "Repos", "Language", "Tier"}
	if wide {
		headers = append(headers, "Avatar")
	}
	table := w.newTable(headers)

	var data [][]string
	for i, e := range entries {
		lang := "-"
		if e.DominantLanguage != nil {
			lang = *e.DominantLanguage
		}
		row := []string{
			strconv.Itoa(i + 1),
			e.Username,
			strconv.FormatInt(e.ImpactIndex, 10),
			strconv.FormatInt(e.TotalStars, 10),
			strconv.FormatInt(e.TotalForks, 10),
			strconv.FormatInt(e.Followers, 10),
			strconv.FormatInt(e.PublicRepos, 10),
			lang,
			w.tierColor(e.Tier)(string(e.Tier)),
		}
		if wide {
			row = append(row, truncate(e.AvatarURL, 48))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w.out, "Showing %d entries\n", len(entries))
	return err
}

// Languages renders the languages on the board, one per line.
func (w *Writer) Languages(langs []string) error {
	if w.json() {
		return writeJSON(w.out, langs)
	}
	_, err := fmt.Fprintln(w.out, strings.Join(langs, "\n"))
	return err
}

// Collection renders a finished collection run, one row per star band.
func (w *Writer) Collection(res *collector.Result) error {
	if w.json() {
		return writeJSON(w.out, res)
	}

	table := w.newTable([]string{"Level", "Discovered", "Added", "Errors"})
	levels := make([]string, 0, len(res.ByLevel))
	for level := range res.ByLevel {
		levels = append(levels, string(level))
	}
	sort.Strings(levels)

	var data [][]string
	for _, level := range levels {
		st := res.ByLevel[collector.Level(level)]
		data = append(data, []string{
			level,
			strconv.Itoa(st.Discovered),
			strconv.Itoa(st.Added),
			strconv.Itoa(st.Errors),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	status := w.paint(color.FgGreen)("completed")
	if res.Cancelled {
		status = w.paint(color.FgYellow)("cancelled")
	}
	_, err := fmt.Fprintf(w.out, "Run %s %s: added %d of %d (errors: %d) in %s\n",
		res.RunID, status, res.Added, res.TargetCount, res.Errors, res.Duration.Round(time.Millisecond))
	return err
}

// Analysis renders the stored entry, its rank and the report headline.
func (w *Writer) Analysis(entry *leaderboard.Entry, s ranking.Summary, report analysis.Report) error {
	if w.json() {
		return writeJSON(w.out, struct {
			Entry  *leaderboard.Entry `json:"entry"`
			Rank   ranking.Summary    `json:"rank"`
			Report analysis.Report    `json:"report"`
		}{entry, s, report})
	}

	badges := make([]string, 0, len(report.Badges))
	for _, b := range report.Badges {
		badges = append(badges, b.Label)
	}

	rows := [][]string{
		{"Username", report.Username},
		{"Tier", w.tierColor(entry.Tier)(string(entry.Tier))},
		{"Impact index", strconv.FormatInt(report.ImpactIndex, 10)},
		{"Impact magnitude", fmt.Sprintf("%.1f", report.ImpactMagnitude)},
		{"Rank", fmt.Sprintf("%d of %d (%s)", s.Rank, s.TotalUsers, s.Tier)},
		{"Global percentile", fmt.Sprintf("%.2f", report.GlobalPercentile)},
		{"Persona", report.Persona.Title},
		{"Commit habit", report.CommitHabit.Label},
		{"Consistency", strconv.Itoa(report.ConsistencyScore)},
		{"Quality", strconv.Itoa(report.QualityScore.Score)},
		{"Streak", strconv.Itoa(report.Streak)},
		{"Badges", truncate(strings.Join(badges, ", "), w.width()-30)},
	}
	if err := w.keyValues(rows); err != nil {
		return err
	}
	if report.IsGodMode {
		if _, err := fmt.Fprintln(w.out, w.paint(color.FgMagenta, color.Bold)("God mode")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w.out, report.ComparativeText)
	return err
}
