package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/edgepass/idphoto/internal/standard"
)

var standardsJSON bool

var standardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "List supported document standards",
	Args:  cobra.NoArgs,
	RunE:  runStandards,
}

func init() {
	standardsCmd.Flags().BoolVar(&standardsJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(standardsCmd)
}

type standardRow struct {
	ID     int                `json:"id"`
	Name   string             `json:"name"`
	Config standard.CropConfig `json:"config"`
}

func runStandards(cmd *cobra.Command, _ []string) error {
	var rows []standardRow
	for _, s := range standard.All() {
		rows = append(rows, standardRow{ID: int(s), Name: s.String(), Config: standard.Resolve(s)})
	}

	w := cmd.OutOrStdout()
	if standardsJSON {
		data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-4s %-12s %-10s %s\n", "ID", "NAME", "SIZE", "TOP MARGIN")
	for _, r := range rows {
		fmt.Fprintf(w, "  %-4d %-12s %-10s %.2f\n",
			r.ID, r.Name, fmt.Sprintf("%dx%d", r.Config.TargetWidth, r.Config.TargetHeight), r.Config.TopMarginRatio)
	}
	fmt.Fprintf(w, "\n  Unknown ids fall back to %s.\n\n", standard.Fallback)
	return nil
}
