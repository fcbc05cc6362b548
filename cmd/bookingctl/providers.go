package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/internal/domain/timerange"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers with a complete profile",
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

			providers, err := application.NewParticipantService(store.Participants, timerange.SystemClock{}, e.log).
				ListProviders(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCONTACT")
			for _, p := range providers {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.DisplayName, p.Contact)
			}
			return w.Flush()
		},
	}
}
