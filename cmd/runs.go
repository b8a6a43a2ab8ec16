package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/atlas/internal/model"
	"github.com/sells-group/atlas/internal/store"
)

// statsScanLimit caps how many runs the stats command aggregates.
const statsScanLimit = 10000

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored research runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List research runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, _ := cmd.Flags().GetString("status")
		company, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(cmd, func(st store.Store) error {
			runs, err := st.ListRuns(cmd.Context(), model.RunFilter{
				Status:  model.RunStatus(status),
				Company: company,
				Limit:   limit,
			})
			if err != nil {
				return eris.Wrap(err, "runs list")
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs found.")
				return nil
			}
			formatRunsList(cmd.OutOrStdout(), runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run and its profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st store.Store) error {
			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return eris.Wrapf(err, "runs show %s", args[0])
			}
			return printJSON(cmd.OutOrStdout(), run)
		})
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize outcomes and per-field acceptance",
	RunE: func(cmd *cobra.Command, _ []string) error {
		since, _ := cmd.Flags().GetDuration("since")

		return withStore(cmd, func(st store.Store) error {
			runs, err := st.ListRuns(cmd.Context(), model.RunFilter{Limit: statsScanLimit})
			if err != nil {
				return eris.Wrap(err, "runs stats")
			}
			if since > 0 {
				runs = runsSince(runs, time.Now().Add(-since))
			}
			formatRunStats(cmd.OutOrStdout(), computeRunStats(runs))
			return nil
		})
	},
}

func init() {
	f := runsListCmd.Flags()
	f.String("status", "", "only runs with this status (queued, researching, complete, failed)")
	f.String("company", "", "only runs for this company (case-insensitive)")
	f.Int("limit", 50, "maximum runs to print")
	f.Bool("json", false, "print runs as JSON")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "only runs created within this window; 0 for all")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// withStore opens the configured store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(store.Store) error) error {
	if err := cfg.Validate("store"); err != nil {
		return err
	}
	st, err := initStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(st)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runsSince(runs []model.Run, cutoff time.Time) []model.Run {
	kept := runs[:0:0]
	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// fieldStat tallies one field across complete runs.
type fieldStat struct {
	Runs     int
	Accepted int
	Attempts int
}

type runStats struct {
	Total    int
	Complete int
	Failed   int
	InFlight int

	FieldsAccepted int
	FieldsTotal    int
	AvgAttempts    float64
	AvgDurSecs     float64

	PerField map[model.FieldName]*fieldStat
}

func computeRunStats(runs []model.Run) runStats {
	s := runStats{Total: len(runs), PerField: map[model.FieldName]*fieldStat{}}

	var elapsed time.Duration
	attempts := 0
	for _, r := range runs {
		if r.Status == model.RunStatusFailed {
			s.Failed++
			continue
		}
		if r.Status != model.RunStatusComplete {
			s.InFlight++
			continue
		}
		s.Complete++
		elapsed += r.UpdatedAt.Sub(r.CreatedAt)
		if r.Profile == nil {
			continue
		}
		for name, res := range r.Profile.Fields {
			fs := s.PerField[name]
			if fs == nil {
				fs = &fieldStat{}
				s.PerField[name] = fs
			}
			fs.Runs++
			fs.Attempts += res.Attempts
			attempts += res.Attempts
			s.FieldsTotal++
			if res.Accepted {
				fs.Accepted++
				s.FieldsAccepted++
			}
		}
	}

	if s.Complete > 0 {
		s.AvgDurSecs = elapsed.Seconds() / float64(s.Complete)
	}
	if s.FieldsTotal > 0 {
		s.AvgAttempts = float64(attempts) / float64(s.FieldsTotal)
	}
	return s
}

// acceptedRatio renders "accepted/total" for a run's field outcomes.
func acceptedRatio(p *model.CompanyProfile) string {
	if p == nil || len(p.Fields) == 0 {
		return ""
	}
	n := 0
	for _, res := range p.Fields {
		if res.Accepted {
			n++
		}
	}
	return fmt.Sprintf("%d/%d", n, len(p.Fields))
}

func shortCompany(name string) string {
	const width = 30
	if utf8.RuneCountInString(name) <= width {
		return name
	}
	return string([]rune(name)[:width-3]) + "..."
}

func formatRunsList(out io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer tw.Flush() //nolint:errcheck

	fmt.Fprintln(tw, "ID\tCOMPANY\tSTATUS\tFIELDS\tCREATED\tELAPSED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			shortCompany(r.Company),
			r.Status,
			acceptedRatio(r.Profile),
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second),
		)
	}
}

func formatRunStats(out io.Writer, s runStats) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Total runs:\t%d\n", s.Total)
	fmt.Fprintf(tw, "Complete:\t%d\n", s.Complete)
	fmt.Fprintf(tw, "Failed:\t%d\n", s.Failed)
	fmt.Fprintf(tw, "In flight:\t%d\n", s.InFlight)
	if s.AvgDurSecs > 0 {
		fmt.Fprintf(tw, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	if s.FieldsTotal > 0 {
		fmt.Fprintf(tw, "Fields accepted:\t%d/%d\n", s.FieldsAccepted, s.FieldsTotal)
		fmt.Fprintf(tw, "Avg attempts:\t%.2f\n", s.AvgAttempts)
	}
	_ = tw.Flush()

	if len(s.PerField) == 0 {
		return
	}
	names := make([]string, 0, len(s.PerField))
	for name := range s.PerField {
		names = append(names, string(name))
	}
	sort.Strings(names)

	fmt.Fprintln(out)
	tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tACCEPTED\tAVG ATTEMPTS")
	for _, name := range names {
		fs := s.PerField[model.FieldName(name)]
		fmt.Fprintf(tw, "%s\t%d/%d\t%.1f\n", name, fs.Accepted, fs.Runs, float64(fs.Attempts)/float64(fs.Runs))
	}
	_ = tw.Flush()
}

// truncateID shortens a UUID to its first block.
func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
