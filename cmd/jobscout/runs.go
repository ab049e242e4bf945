package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/timmy/jobscout/internal/repository"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the latest pipeline runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		runs, err := repository.NewRunRepository(db).ListRecent(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		stored, err := repository.NewJobRepository(db).Count(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tMODE\tFETCHED\tFILTERED\tMATCHED\tEMAILED\tSECS\tERRORS")
		for _, r := range runs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%.1f\t%s\n",
				r.ID, r.RunDate, r.Mode, r.TotalFetched, r.TotalFiltered, r.TotalMatched, r.TotalEmailed,
				r.DurationSecs, strings.Join(r.Errors, "; "))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nStored jobs: %d\n", stored)
		return err
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show")
}
