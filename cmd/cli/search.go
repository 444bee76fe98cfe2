package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/skappel/farescout/internal/core"
	"github.com/skappel/farescout/internal/search"
	"github.com/skappel/farescout/internal/wire"
)

var (
	searchReturnDate string
	searchAdults     int
	searchChildren   int
	searchInfants    int
	searchCabin      string
	searchOwner      string
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search ORIGIN DESTINATION DATE",
	Short: "Runs a flight search and streams merged results until it completes",
	Long: `Dispatches one search job per airport pair (metro codes like LON or NYC
fan out) and prints the merged offer list as jobs finish. The FareScout
service must be running to process the jobs.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := wire.InitializeApp()
		if err != nil {
			return fmt.Errorf("failed to initialize app services: %w", err)
		}
		defer cleanup()

		params := core.SearchParams{
			Origin:        args[0],
			Destination:   args[1],
			DepartureDate: args[2],
			ReturnDate:    searchReturnDate,
			Passengers: core.PassengerCounts{
				Adults:   searchAdults,
				Children: searchChildren,
				Infants:  searchInfants,
			},
			CabinClass: core.CabinClass(searchCabin),
		}

		stream, err := app.Coordinator.Search(cmd.Context(), searchOwner, params)
		if err != nil {
			return err
		}
		defer stream.Close()

		fmt.Fprintf(os.Stderr, "dispatched %d job(s), waiting for offers...\n", len(stream.JobIDs()))

		var final search.Update
		for {
			update, err := stream.Next(cmd.Context())
			if err != nil {
				if errors.Is(err, search.ErrStreamDone) {
					break
				}
				if errors.Is(err, search.ErrSearchTimeout) {
					return fmt.Errorf("search timed out with no results")
				}
				if errors.Is(err, search.ErrAllJobsFailed) {
					return fmt.Errorf("search failed")
				}
				return err
			}
			final = update
			fmt.Fprintf(os.Stderr, "offers: %d (jobs %d/%d done)\n",
				len(update.Offers), update.JobsTerminal, update.JobsTotal)
			if update.Final {
				break
			}
		}

		if final.Warning != "" {
			fmt.Fprintln(os.Stderr, "warning: "+final.Warning)
		}
		return printOffers(final.Offers)
	},
}

func printOffers(offers []core.Offer) error {
	if searchJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(offers)
	}

	if len(offers) == 0 {
		fmt.Println("no offers found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PRICE\tAIRLINE\tROUTE\tSEGMENTS\tOFFER ID")
	for _, offer := range offers {
		route := ""
		segments := 0
		for i, slice := range offer.Slices {
			if i > 0 {
				route += " / "
			}
			route += slice.Origin + "-" + slice.Destination
			segments += len(slice.Segments)
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\t%d\t%s\n",
			offer.TotalAmount,
			offer.TotalCurrency,
			offer.OwnerName,
			route,
			segments,
			offer.ID,
		)
	}
	return w.Flush()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	searchCmd.Flags().StringVar(&searchReturnDate, "return", "", "Return date (YYYY-MM-DD) for a round trip")
	searchCmd.Flags().IntVar(&searchAdults, "adults", 1, "Number of adult passengers")
	searchCmd.Flags().IntVar(&searchChildren, "children", 0, "Number of child passengers")
	searchCmd.Flags().IntVar(&searchInfants, "infants", 0, "Number of infant passengers")
	searchCmd.Flags().StringVar(&searchCabin, "cabin", "economy", "Cabin class (economy, premium_economy, business, first)")
	searchCmd.Flags().StringVar(&searchOwner, "owner", "cli", "Owner identity recorded on the jobs")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output offers as JSON")
	rootCmd.AddCommand(searchCmd)
}
