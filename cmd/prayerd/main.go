// Package main provides the prayerd command: the prayer timer server and
// ledger tools.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"prayer-tracker/internal/app"
	"prayer-tracker/internal/shared/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "prayerd",
		Short:         "Prayer session timer and ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides PRAYER_CONFIG)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newStatusCmd(&configPath))
	root.AddCommand(newStatsCmd(&configPath))
	root.AddCommand(newExportCmd(&configPath))
	return root
}

func loadConfig(configPath string) (*app.Config, error) {
	if configPath != "" {
		return app.LoadConfigWithFile(configPath)
	}
	return app.LoadConfig()
}

func openServices(configPath string) (*app.Services, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return app.Open(cfg, nil)
}

// logStartup logs startup information without exposing sensitive values.
func logStartup(cfg *app.Config) {
	log.Println("Starting prayer timer server...")
	log.Printf("Database path: %s", cfg.DBPath)
	log.Printf("Timezone: %s", cfg.Timezone)
	log.Printf("Rate limit: %d requests/minute", cfg.RateLimit)
	log.Printf("Minimum session: %ds", cfg.MinSessionSeconds)
	log.Printf("Port: %s", cfg.Port)

	// Log API key prefix only (first 4 characters for debugging)
	if len(cfg.APIKey) >= 4 {
		log.Printf("API Key: %s...", cfg.APIKey[:4])
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := cfg.ValidateServe(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			logStartup(cfg)

			a, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to create app: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- a.Run()
			}()

			// Wait for interrupt signal to gracefully shutdown the server
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				a.Shutdown()
				return err
			case <-quit:
			}

			return a.Shutdown()
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted timer state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := openServices(*configPath)
			if err != nil {
				return err
			}
			defer services.Close()

			st, err := services.TimerStatus(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", st.State, utils.FormatElapsed(st.ElapsedSeconds))
			return err
		},
	}
}

func newStatsCmd(configPath *string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print session count, total minutes and streak",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := openServices(*configPath)
			if err != nil {
				return err
			}
			defer services.Close()

			result, err := services.Sessions.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintf(out, "Sessions:      %d\n", result.SessionCount)
			fmt.Fprintf(out, "Total minutes: %d\n", result.TotalMinutes)
			fmt.Fprintf(out, "Streak:        %d day(s)\n", result.StreakLength)
			for _, day := range result.Daily {
				fmt.Fprintf(out, "  %s  %4d min  %d session(s)\n", day.Date, day.Minutes, day.Count)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newExportCmd(configPath *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the session ledger as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := openServices(*configPath)
			if err != nil {
				return err
			}
			defer services.Close()

			return exportCSV(cmd.Context(), services, output, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func exportCSV(ctx context.Context, services *app.Services, output string, stdout io.Writer) error {
	data, err := services.Sessions.ExportCSV(ctx)
	if err != nil {
		return err
	}
	if output == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	return nil
}
