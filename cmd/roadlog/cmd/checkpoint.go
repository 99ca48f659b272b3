package cmd

import (
	"context"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/roadlog/roadlog/pkg/core"
	"github.com/roadlog/roadlog/pkg/ingest"
	"github.com/roadlog/roadlog/pkg/model"

	"github.com/spf13/cobra"
)

var (
	checkpointFile    string
	checkpointBBox    string
	checkpointClasses string
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Replace the baseline and clear the change log",
	Long: `Checkpoints the dataset: installs a new baseline snapshot, clears the
change log and resets per-user save counters.

The replacement baseline comes from a GeoJSON file (--file), or is fetched
from the OpenStreetMap Overpass API for a bounding box (--bbox).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		ledger, err := config.makeLedger(ctx)
		if err != nil {
			wrapFatalln("create stores", err)
			return
		}

		var result *core.CheckpointResult
		switch {
		case checkpointFile != "":
			b, ferr := ioutil.ReadFile(checkpointFile)
			if ferr != nil {
				wrapFatalln("read "+checkpointFile, ferr)
				return
			}
			dataset, ferr := model.UnmarshalFeatureCollection(b)
			if ferr != nil {
				wrapFatalln("parse "+checkpointFile, ferr)
				return
			}
			result, err = ledger.Checkpoint(ctx, dataset)
		case checkpointBBox != "":
			bbox, berr := ingest.ParseBBox(checkpointBBox)
			if berr != nil {
				wrapFatalln("parse bbox", berr)
				return
			}
			classes := ingest.FilterClasses(strings.Split(checkpointClasses, ","))
			client := ingest.New(ingest.Logger(config.logger()))
			result, err = ledger.CheckpointFrom(ctx, client.Source(bbox, classes))
		default:
			wrapFatalln("either --file or --bbox is required", nil)
			return
		}
		if err != nil {
			wrapFatalln("checkpoint", err)
			return
		}
		fmt.Printf("checkpoint done: %d features, %d changes cleared, %d counters reset\n",
			result.FeatureCount, result.ChangesCleared, result.CountersReset)
	},
}

func init() {
	checkpointCmd.Flags().StringVar(&checkpointFile, "file", "", "GeoJSON file to install as the new baseline")
	checkpointCmd.Flags().StringVar(&checkpointBBox, "bbox", "", "Bounding box south,west,north,east to fetch from Overpass")
	checkpointCmd.Flags().StringVar(&checkpointClasses, "classes", "motorway,trunk,primary", "Highway classes to fetch")
	rootCmd.AddCommand(checkpointCmd)
}
