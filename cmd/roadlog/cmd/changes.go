package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var changesLimit int

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List the most recent changes",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ledger, err := config.makeLedger(ctx)
		if err != nil {
			wrapFatalln("create stores", err)
			return
		}
		entries, err := ledger.RecentChanges(ctx, changesLimit)
		if err != nil {
			wrapFatalln("list changes", err)
			return
		}
		for _, change := range entries {
			fmt.Printf("%s  %-16s  %s\n",
				change.Timestamp.UTC().Format("2006-01-02 15:04:05"),
				change.Author,
				change.Summary,
			)
		}
	},
}

func init() {
	changesCmd.Flags().IntVar(&changesLimit, "limit", 20, "Maximum changes to list")
	rootCmd.AddCommand(changesCmd)
}
