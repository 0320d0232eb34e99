package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"navic-ng/internal/nmea"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "navic-ng",
		Short: "NavIC / GNSS NMEA receiver service",
		Long: `navic-ng decodes GNRMC/GNGGA sentences from a NavIC receiver one byte at a
time and publishes checksum-validated fixes over UDP, MQTT, Redis and HTTP.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./navic-ng.yaml", "Path to YAML config")

	rootCmd.AddCommand(runCmd(&configPath))
	rootCmd.AddCommand(decodeCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "navic-ng decoder %s (%s %s/%s)\n", nmea.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
