package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roadlog/roadlog/pkg/web"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dataset over HTTP",
	Long: `Starts the HTTP API: the merged map, the save endpoint, change feeds
and the admin surface for checkpointing.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ledger, err := config.makeLedger(ctx)
		if err != nil {
			wrapFatalln("create stores", err)
			return
		}
		srv, err := web.NewServer(web.ServerParams{
			Ledger:     ledger,
			AdminToken: config.AdminToken,
			Logger:     config.logger(),
		})
		if err != nil {
			wrapFatalln("server init error", err)
			return
		}
		r := web.InitRouter(srv)
		fmt.Printf("serving on %d...\n", config.Port)
		err = http.ListenAndServe(fmt.Sprintf(":%d", config.Port), r)
		if err != nil {
			wrapFatalln("server listen error", err)
			return
		}
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "HTTP listen port")
	_ = viperBindFlag("port", serveCmd.Flags(), "port")
	rootCmd.AddCommand(serveCmd)
}
