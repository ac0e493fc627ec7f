package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"segue.click/internal/tracking"
)

var errTrackingDisabled = errors.New("event tracking is not enabled or database is not available")

// analyzeFlags are shared by the analyze subcommands
type analyzeFlags struct {
	days    int
	preset  string
	since   string
	source  string
	kind    string
	session string
	limit   int
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.days, "days", 7, "Number of days to analyze (0 = all time)")
	cmd.Flags().StringVar(&f.preset, "preset", "", "Date preset ("+strings.Join(tracking.DatePresets(), ", ")+")")
	cmd.Flags().StringVar(&f.since, "since", "", `Start time in plain English, e.g. "3 days ago" or "last monday"`)
	cmd.Flags().StringVar(&f.source, "source", "", "Filter by source (bgm or sfx)")
	cmd.Flags().StringVar(&f.kind, "kind", "", "Filter by event kind (play, crossfade, one_shot, ...)")
	cmd.Flags().StringVar(&f.session, "session", "", "Filter by session id")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "Maximum number of rows to show")
}

// filter converts the flags to a query filter relative to now
func (f *analyzeFlags) filter(now time.Time) (tracking.QueryFilter, error) {
	q := tracking.QueryFilter{
		Days:       f.days,
		DatePreset: f.preset,
		Source:     f.source,
		Kind:       f.kind,
		SessionID:  f.session,
		Limit:      f.limit,
		Now:        now,
	}
	if f.preset != "" {
		if _, _, err := tracking.ParseDatePreset(f.preset, now); err != nil {
			return q, err
		}
	}
	if f.since != "" {
		start, err := tracking.ParseNaturalDate(f.since, now)
		if err != nil {
			return q, err
		}
		q.StartTime = &start
	}
	if f.source != "" && f.source != "bgm" && f.source != "sfx" {
		return q, fmt.Errorf("invalid source %q, must be bgm or sfx", f.source)
	}
	return q, nil
}

// describe names the time window of q for headings
func describe(q tracking.QueryFilter) string {
	switch {
	case q.DatePreset != "":
		return q.DatePreset
	case q.StartTime != nil:
		return "since " + q.StartTime.Format("2006-01-02 15:04")
	case q.Days > 0:
		return fmt.Sprintf("last %d days", q.Days)
	default:
		return "all time"
	}
}

func newAnalyzeCommand() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze recorded playback events",
		Long:  "Analyze the playback event journal to see which tracks and effects get used",
	}
	analyzeCmd.AddCommand(newAnalyzeEventsCommand())
	analyzeCmd.AddCommand(newAnalyzeTracksCommand())
	return analyzeCmd
}

// withTrackingDB loads config and opens the journal for an analyze command
func withTrackingDB(cmd *cobra.Command, fn func(db *sql.DB) error) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return errNoCLI
	}
	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	cli.setupLogging(cfg, cmd.ErrOrStderr())

	db := cli.openTracking(cfg)
	if db == nil {
		return errTrackingDisabled
	}
	return fn(db)
}

func newAnalyzeEventsCommand() *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show event totals by source and kind",
		Long: `Show how many events of each kind were recorded, with overall totals.

Examples:
  segue analyze events                     # last 7 days
  segue analyze events --preset today
  segue analyze events --since "2 hours ago" --source bgm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.filter(time.Now())
			if err != nil {
				return err
			}
			return withTrackingDB(cmd, func(db *sql.DB) error {
				return runAnalyzeEvents(cmd.OutOrStdout(), db, q)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func runAnalyzeEvents(w io.Writer, db *sql.DB, q tracking.QueryFilter) error {
	slog.Debug("running analyze events", "window", describe(q), "source", q.Source, "kind", q.Kind)

	summary, err := tracking.GetUsageSummary(db, q)
	if err != nil {
		return fmt.Errorf("failed to summarize events: %w", err)
	}
	counts, err := tracking.GetEventCounts(db, q)
	if err != nil {
		return fmt.Errorf("failed to count events: %w", err)
	}

	fmt.Fprintf(w, "Playback events (%s):\n\n", describe(q))
	if summary.TotalEvents == 0 {
		fmt.Fprintln(w, "No events recorded.")
		return nil
	}
	fmt.Fprintf(w, "%d events, %d tracks, %d sessions, %d errors\n\n",
		summary.TotalEvents, summary.UniqueTracks, summary.Sessions, summary.Errors)

	fmt.Fprintf(w, "  %-6s %-22s %6s\n", "SOURCE", "KIND", "COUNT")
	for _, c := range counts {
		fmt.Fprintf(w, "  %-6s %-22s %6d\n", c.Source, c.Kind, c.Count)
	}
	return nil
}

func newAnalyzeTracksCommand() *cobra.Command {
	var flags analyzeFlags
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "Show the most played tracks and effects",
		Long: `Show tracks ordered by how often they were started by play, crossfade or
one-shot events.

Examples:
  segue analyze tracks
  segue analyze tracks --source sfx --limit 5
  segue analyze tracks --preset last-week`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := flags.filter(time.Now())
			if err != nil {
				return err
			}
			return withTrackingDB(cmd, func(db *sql.DB) error {
				return runAnalyzeTracks(cmd.OutOrStdout(), db, q)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func runAnalyzeTracks(w io.Writer, db *sql.DB, q tracking.QueryFilter) error {
	slog.Debug("running analyze tracks", "window", describe(q), "source", q.Source, "limit", q.Limit)

	usage, err := tracking.GetTrackUsage(db, q)
	if err != nil {
		return fmt.Errorf("failed to analyze track usage: %w", err)
	}

	fmt.Fprintf(w, "Track usage (%s):\n\n", describe(q))
	if len(usage) == 0 {
		fmt.Fprintln(w, "No tracks played.")
		return nil
	}

	fmt.Fprintf(w, "  %-30s %-6s %6s %7s  %s\n", "TRACK", "SOURCE", "PLAYS", "AVG VOL", "LAST PLAYED")
	for _, u := range usage {
		name := u.Track
		if len(name) > 30 {
			name = "..." + name[len(name)-27:]
		}
		fmt.Fprintf(w, "  %-30s %-6s %6d %7.2f  %s\n",
			name, u.Source, u.Plays, u.AvgVolume, u.LastPlayed.Format("2006-01-02 15:04"))
	}
	return nil
}
