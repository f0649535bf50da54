package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"qynex-pulse/internal/agent"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Qynex Pulse field tracking agent",
		Long: `The tracker hosts a GPS shift session on a field device: it clocks in
against the Pulse server, samples the local GPS bridge every minute, accrues
driving mileage and uploads the breadcrumb trail.`,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start a tracking session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Println("⚠️  Warning: .env file not found, using environment variables from system")
			}

			cfg, err := agent.LoadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return agent.New(cfg).Run(ctx)
		},
	}

	clockOutCmd := &cobra.Command{
		Use:   "clock-out",
		Short: "End the currently open shift",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Println("⚠️  Warning: .env file not found, using environment variables from system")
			}

			cfg, err := agent.LoadConfig()
			if err != nil {
				return err
			}

			return agent.ClockOutOnce(cmd.Context(), cfg)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the tracker version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(runCmd, clockOutCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
