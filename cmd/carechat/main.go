package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/care-coordinator/cmd/mainconfig"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		baseURL   string
		patientID string
		timeout   time.Duration
		stream    bool
	)

	cmd := &cobra.Command{
		Use:   "carechat",
		Short: "Chat with the care coordinator assistant from a terminal",
		Long: `carechat keeps the conversation locally and sends the whole history to
the care coordinator API on every turn. Type /reset to start over and /quit to exit.`,
		SilenceUsage: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := mainconfig.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cmd.Flags().Changed("url") {
				baseURL = cfg.MLURL
			}
			if !cmd.Flags().Changed("patient") {
				patientID = cfg.PatientID
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := newSession(newAPIClient(baseURL, timeout), patientID, cmd.OutOrStdout())
			if stream {
				s.typeDelay = 15 * time.Millisecond
			}
			return s.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "", "care coordinator API base URL (default $ML_URL)")
	cmd.Flags().StringVar(&patientID, "patient", "", "patient id sent with each turn (default $PATIENT_ID)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "timeout for one turn")
	cmd.Flags().BoolVar(&stream, "stream", false, "print replies with a typing effect")
	return cmd
}
