package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"recon-report/internal/config"
)

type app struct {
	cnf       *config.Configuration
	prefs     config.Preferences
	prefsPath string
	log       *logrus.Entry
}

func defaultPreferencesPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".reconreport-preferences.yaml"
	}
	return filepath.Join(dir, "reconreport", "preferences.yaml")
}

func preRun(a *app, configFile, envFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("could not load %s: %w", *envFile, err)
		}

		cnf, err := config.Load(*configFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		prefs, err := config.LoadPreferences(a.prefsPath)
		if err != nil {
			return err
		}
		prefs.Apply(&cnf.Report)

		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetLevel(cnf.Level())
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		a.cnf = cnf
		a.prefs = prefs
		a.log = logrus.NewEntry(logger)
		return nil
	}
}

func newCLI() *cobra.Command {
	var configFile, envFile string
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "reconreport",
		Short:         "Bank reconciliation reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DEFAULT_CONFIG_FILE, "configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before the configuration")
	rootCmd.PersistentFlags().StringVar(&a.prefsPath, "preferences", defaultPreferencesPath(), "saved preferences file")
	rootCmd.PersistentPreRunE = preRun(a, &configFile, &envFile)

	rootCmd.AddCommand(serveCommand(a))
	rootCmd.AddCommand(reconcileCommand(a))
	rootCmd.AddCommand(dashboardCommand(a))
	rootCmd.AddCommand(recordsCommand(a))
	rootCmd.AddCommand(exportCommand(a))
	rootCmd.AddCommand(preferencesCommand(a))
	return rootCmd
}

func main() {
	if err := newCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
