package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/internal/domain/timerange"
)

func newSweepCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark confirmed bookings whose session has ended as completed",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			store, err := e.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			completions := application.NewCompletionService(store.UnitOfWork, timerange.SystemClock{}, nil, e.log)
			result, err := completions.CompleteElapsed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "completed=%d skipped=%d\n", result.Completed, result.Skipped)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum bookings to complete")

	return cmd
}
