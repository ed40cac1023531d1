package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"autotime/config"
	"autotime/internal/timeutil"
	"autotime/productive"
)

var (
	bookingsDate        string
	bookingsDebugClient bool
)

var bookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "List the day's resolved bookings without submitting anything",
	Example: `
  # Show today's bookings
  autotime bookings

  # Show bookings for a past day with client resolution details
  autotime bookings --date 2025-03-14 --debug-client
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate()
		if err != nil {
			return err
		}

		date := bookingsDate
		if date == "" {
			date = timeutil.Today()
		} else if _, err := timeutil.ParseDay(date); err != nil {
			return err
		}

		logger := newLogger()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		client, err := productive.NewClient(productive.ClientConfig{
			APIToken: cfg.APIToken,
			OrgID:    cfg.OrgID,
			BaseURL:  cfg.BaseURL,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		bookings, err := client.FetchBookings(ctx, cfg.PersonID, date)
		if err != nil {
			return fmt.Errorf("fetch bookings for %s: %w", date, err)
		}
		if len(bookings) == 0 {
			fmt.Printf("No bookings found for %s.\n", date)
			return nil
		}

		fmt.Printf("Bookings for %s:\n", date)
		totalMinutes := 0
		for _, booking := range bookings {
			totalMinutes += booking.TimeMinutes
			fmt.Printf("  %s / %s (#%s): %d min",
				booking.ProjectName, booking.ServiceName, booking.ServiceNumber,
				booking.TimeMinutes)
			if booking.BilledClient != nil {
				fmt.Printf(", client: %s", *booking.BilledClient)
			}
			fmt.Println()
			if bookingsDebugClient {
				fmt.Printf("    booking=%s service=%s deal=%s project=%s\n",
					booking.BookingID, booking.ServiceID, orDash(booking.DealID), orDash(booking.ProjectID))
			}
		}
		fmt.Printf("Total booked: %d min (%.1f h) across %d booking(s)\n",
			totalMinutes, float64(totalMinutes)/60, len(bookings))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bookingsCmd)

	bookingsCmd.Flags().StringVar(&bookingsDate, "date", "", "Day to list, format YYYY-MM-DD (default: today)")
	bookingsCmd.Flags().BoolVar(&bookingsDebugClient, "debug-client", false, "Show booking/service/deal ids used for client resolution")
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
