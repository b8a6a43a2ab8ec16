package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var researchQuiet bool

var researchCmd = &cobra.Command{
	Use:   "research <company or domain>",
	Short: "Research one company and print its profile",
	Long: `Researches every profile field of one company and prints the profile as JSON.
Report files are written to report.dir in the configured formats.

Examples:
  atlas research "Acme Corp"
  atlas research stripe.com --quiet > stripe.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		company := strings.TrimSpace(strings.Join(args, " "))
		if company == "" {
			return eris.New("research: company is required")
		}

		env, err := initResearch(ctx, cfg, "research")
		if err != nil {
			return err
		}
		defer env.Close()

		progress := func(msg string) {
			if !researchQuiet {
				fmt.Fprintln(os.Stderr, msg)
			}
		}

		run, err := env.Runner.Run(ctx, company, progress)
		if err != nil {
			return eris.Wrapf(err, "research %s", company)
		}
		zap.L().Info("research finished", zap.String("run_id", run.ID), zap.String("status", string(run.Status)))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run.Profile)
	},
}

func init() {
	researchCmd.Flags().BoolVarP(&researchQuiet, "quiet", "q", false, "suppress progress messages on stderr")
	rootCmd.AddCommand(researchCmd)
}
