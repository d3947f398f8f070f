package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldhand/fieldhand/internal/advisor"
	"github.com/fieldhand/fieldhand/internal/config"
	"github.com/fieldhand/fieldhand/internal/gemini"
	"github.com/fieldhand/fieldhand/internal/storage"
)

var version = "dev"

var (
	noColor bool
	flagLat float64
	flagLon float64
)

var rootCmd = &cobra.Command{
	Use:           "fieldhand",
	Short:         "AI farm advisor: soil, crops, irrigation, markets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fieldhand version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fieldhand version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().Float64Var(&flagLat, "lat", 0, "override farm latitude")
	rootCmd.PersistentFlags().Float64Var(&flagLon, "lon", 0, "override farm longitude")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(soilCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(marketCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(irrigateCmd)
	rootCmd.AddCommand(weatherCmd)
	rootCmd.AddCommand(suppliersCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// newAdvisory builds the in-process advisory service from config. Commands
// call the service directly rather than going through a running server.
var newAdvisory = func() (*advisor.Service, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	var client *gemini.Client
	if cfg.Gemini.BaseURL != "" {
		client = gemini.NewClientWithBaseURL(cfg.Gemini.APIKey, cfg.Gemini.BaseURL)
	} else {
		client = gemini.NewClient(cfg.Gemini.APIKey)
	}
	client.WithModel(cfg.Gemini.Model)
	return advisor.New(client), cfg, nil
}

func openStore(cfg config.Config) *storage.Store {
	return storage.New(cfg.Storage.DataDir, storage.CurrentSchema())
}

// callContext resolves locale and location for a command: explicit --lat/--lon
// flags win, then the stored profile, then nothing.
func callContext(ctx context.Context, cfg config.Config, store *storage.Store) advisor.CallContext {
	cc := advisor.CallContext{Locale: cfg.Advice.Locale}

	if flagLat != 0 || flagLon != 0 {
		cc.Location = &advisor.Location{Latitude: flagLat, Longitude: flagLon}
		return cc
	}

	p, err := store.GetProfile(ctx)
	if err != nil {
		return cc
	}
	if p.Locale != "" {
		cc.Locale = p.Locale
	}
	if p.Latitude != nil && p.Longitude != nil {
		cc.Location = &advisor.Location{Latitude: *p.Latitude, Longitude: *p.Longitude}
	}
	return cc
}
