package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"navic-ng/internal/nmea"
	"navic-ng/internal/replay"
)

func summaryCmd() *cobra.Command {
	var rmcName, ggaName string

	cmd := &cobra.Command{
		Use:   "summary <capture.log>",
		Short: "Summarize a raw NMEA capture log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dec := nmea.New(nmea.Config{RMCName: rmcName, GGAName: ggaName})
			return printCaptureSummary(cmd.OutOrStdout(), args[0], dec)
		},
	}
	cmd.Flags().StringVar(&rmcName, "rmc", "", "RMC sentence name (default GNRMC)")
	cmd.Flags().StringVar(&ggaName, "gga", "", "GGA sentence name (default GNGGA)")
	return cmd
}

func printCaptureSummary(w io.Writer, path string, dec *nmea.Decoder) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}

	s := replay.Summarize(recs, dec)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "chunks: %d\n", s.Chunks)
	fmt.Fprintf(w, "bytes: %d\n", s.Bytes)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	fmt.Fprintf(w, "validated_sentences: %d\n", s.Validated)
	fmt.Fprintf(w, "failed_checksum: %d\n", s.FailedChecksum)
	fmt.Fprintf(w, "sentences_with_fix: %d\n", s.SentencesWithFix)
	return nil
}
