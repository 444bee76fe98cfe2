package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skappel/farescout/internal/wire"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status JOB_ID",
	Short: "Shows the current state of one search job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		job, err := app.Store.GetJob(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}

		if statusJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(job)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB\tROUTE\tSTATUS\tOFFERS\tUPDATED")
		offers := 0
		if job.Results != nil {
			offers = len(job.Results.Offers)
		}
		fmt.Fprintf(w, "%s\t%s-%s\t%s\t%d\t%s\n",
			job.ID,
			job.Params.Origin,
			job.Params.Destination,
			job.Status,
			offers,
			job.UpdatedAt.Format(time.RFC822),
		)
		if err := w.Flush(); err != nil {
			return err
		}
		if job.ErrorMessage != nil {
			fmt.Println("error: " + *job.ErrorMessage)
		}
		return nil
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output the job as JSON")
	rootCmd.AddCommand(statusCmd)
}
