package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logbook-automation/pkg/textgen"
)

var (
	draftDate     string
	draftLocation string
	draftKind     string
)

var draftCmd = &cobra.Command{
	Use:   "draft <note>",
	Short: "Draft a title and description from a short note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		gen, err := textgen.NewAnthropic(&cfg.TextGen)
		if err != nil {
			return err
		}

		req := textgen.Request{Prompt: strings.Join(args, " "), Context: map[string]string{}}
		if draftDate != "" {
			req.Context["date"] = draftDate
		}
		if draftLocation != "" {
			req.Context["location"] = draftLocation
		}
		if draftKind != "" {
			req.Context["activity_kind"] = draftKind
		}

		ctx, stop := signalContext()
		defer stop()

		draft, err := gen.Generate(ctx, req)
		if err != nil {
			return err
		}
		if draft == nil {
			fmt.Fprintln(os.Stderr, "no draft produced")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(draft)
	},
}

func init() {
	draftCmd.Flags().StringVar(&draftDate, "date", "", "activity date (YYYY-MM-DD)")
	draftCmd.Flags().StringVar(&draftLocation, "location", "", "activity location")
	draftCmd.Flags().StringVar(&draftKind, "kind", "", "activity kind")
}
