package main

import (
	"github.com/spf13/cobra"

	"github.com/timmy/jobscout/internal/config"
	"github.com/timmy/jobscout/internal/logger"
)

const appName = "jobscout"

var (
	cfgFile string
	debug   bool

	rootCmd = &cobra.Command{
		Use:           appName,
		Short:         "jobscout fetches job postings, scores them against your criteria and emails the new matches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			initLogger()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	defer logger.Sync()
	err := rootCmd.Execute()
	if err != nil {
		logger.GetDefault().WithError(err).Error("Command failed")
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")

	rootCmd.AddCommand(runCmd, runsCmd, secretCmd)
}

func initLogger() {
	envCfg := logger.LoadFromEnv()
	envCfg.ServiceName = appName
	if debug {
		envCfg.Level = "debug"
	}
	logger.SetDefaultLogger(logger.NewFromEnv(envCfg))
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
