package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timmy/jobscout/internal/app"
	"github.com/timmy/jobscout/internal/domain"
	"github.com/timmy/jobscout/internal/logger"
)

var runOpts struct {
	mode     string
	dryRun   bool
	noEmail  bool
	criteria string
	sources  string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the job search pipeline once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mode := domain.RunMode(runOpts.mode)
		if !mode.Valid() {
			return fmt.Errorf("invalid --mode %q: want daily or weekly", runOpts.mode)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logger.SetComponent(ctx, "cli")

		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Run(ctx, app.RunOptions{
			Mode:         mode,
			DryRun:       runOpts.dryRun,
			NoEmail:      runOpts.noEmail,
			CriteriaPath: runOpts.criteria,
			SourcesPath:  runOpts.sources,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s (%s): fetched %d, filtered %d, matched %d, new %d, emailed %d\n",
			st.RunDate, st.Mode, st.TotalFetched, st.TotalFiltered, st.TotalMatched, st.TotalNew, st.TotalEmailed)
		for _, loc := range st.ReportLocations {
			fmt.Fprintf(out, "Report: %s\n", loc)
		}
		if len(st.Errors) > 0 {
			fmt.Fprintf(out, "%d errors:\n", len(st.Errors))
			for _, e := range st.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}
		}
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.mode, "mode", string(domain.RunModeDaily), "run mode: daily or weekly")
	f.BoolVar(&runOpts.dryRun, "dry-run", false, "skip LLM scoring and email")
	f.BoolVar(&runOpts.noEmail, "no-email", false, "generate the report but do not send it")
	f.StringVar(&runOpts.criteria, "criteria", "", "criteria document (overrides criteria.path)")
	f.StringVar(&runOpts.sources, "sources", "", "sources file (overrides sources.path)")
}
