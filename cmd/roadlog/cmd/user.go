package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var userLimit int

var userCmd = &cobra.Command{
	Use:   "user NAME",
	Short: "Show a user's save counter and recent changes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ledger, err := config.makeLedger(ctx)
		if err != nil {
			wrapFatalln("create stores", err)
			return
		}
		activity, err := ledger.UserActivity(ctx, args[0], userLimit)
		if err != nil {
			wrapFatalln("user activity", err)
			return
		}
		fmt.Printf("%s: %d saves since last checkpoint\n", activity.Username, activity.SaveCount)
		for _, change := range activity.Changes {
			fmt.Printf("  %s  %s  %s\n",
				change.Timestamp.UTC().Format("2006-01-02 15:04:05"),
				change.Token,
				change.Summary,
			)
		}
	},
}

func init() {
	userCmd.Flags().IntVar(&userLimit, "limit", 50, "Maximum changes to list")
	rootCmd.AddCommand(userCmd)
}
