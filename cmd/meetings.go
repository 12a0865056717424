package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func newMeetingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "meetings",
		Short: "Run one meeting agenda check and exit",
		Long: `Check upcoming meetings once: generate agendas for meetings one to
two days out, send any due approval and day-before reminders, and
nudge for minutes after past meetings. Then exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(ctx context.Context, svc *service) error {
				return svc.runMeetings(ctx)
			})
		},
	}
}
