package cmd

import (
	"context"
	"io/ioutil"
	"os"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the merged dataset as GeoJSON",
	Long: `Reconstructs the current dataset (baseline plus logged changes) and
writes it as a GeoJSON feature collection, to stdout or to a file.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ledger, err := config.makeLedger(ctx)
		if err != nil {
			wrapFatalln("create stores", err)
			return
		}
		merged, _, err := ledger.Export(ctx)
		if err != nil {
			wrapFatalln("export", err)
			return
		}
		b, err := merged.MarshalJSON()
		if err != nil {
			wrapFatalln("encode dataset", err)
			return
		}
		if exportOutput == "" || exportOutput == "-" {
			_, _ = os.Stdout.Write(b)
			return
		}
		if err := ioutil.WriteFile(exportOutput, b, 0600); err != nil {
			wrapFatalln("write "+exportOutput, err)
			return
		}
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
