package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/baleframe/tally/pkg/parts"
)

func bomCmd(cfg *config) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "bom",
		Short: "Build the model and export the full bill of materials",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, store, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := eng.Rebuild(); err != nil {
				return err
			}
			items := eng.Query(parts.Filter{})

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "table":
				return writeTable(out, items)
			case "csv":
				return writeCSV(out, items)
			default:
				return fmt.Errorf("unknown format %q (want table or csv)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format (table, csv)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

// bomRow flattens an aggregated item for rendering. Metric picks one of
// length, area or volume depending on what the material kind resolves.
type bomRow struct {
	Label       string
	Quantity    int
	Material    string
	Type        string
	Description string
	Size        string
	Section     string
	Metric      string
	Issue       string
}

func rowsFor(items []parts.AggregatedItem) []bomRow {
	rows := make([]bomRow, 0, len(items))
	for _, it := range items {
		d := it.Definition
		row := bomRow{
			Label:       it.Label,
			Quantity:    it.Quantity,
			Material:    d.Material,
			Type:        d.Type,
			Description: d.Description,
			Size:        fmt.Sprintf("%.1fx%.1fx%.1f", d.Size[0], d.Size[1], d.Size[2]),
		}
		if d.CrossSection != nil {
			row.Section = d.CrossSection.String()
		}
		switch {
		case it.TotalLength != nil:
			row.Metric = fmt.Sprintf("%.0f length", *it.TotalLength)
		case it.TotalArea != nil:
			row.Metric = fmt.Sprintf("%.0f area", *it.TotalArea)
		default:
			row.Metric = fmt.Sprintf("%.0f volume", it.TotalVolume)
		}
		if d.Issue != parts.IssueNone {
			row.Issue = d.Issue.String()
		}
		rows = append(rows, row)
	}
	return rows
}

func writeTable(out *os.File, items []parts.AggregatedItem) error {
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tQTY\tMATERIAL\tTYPE\tDESCRIPTION\tSIZE\tSECTION\tTOTAL\tISSUE")
	for _, r := range rowsFor(items) {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Label, r.Quantity, r.Material, r.Type, r.Description,
			r.Size, r.Section, r.Metric, r.Issue)
	}
	return w.Flush()
}

func writeCSV(out *os.File, items []parts.AggregatedItem) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"label", "quantity", "material", "type", "description", "size", "section", "total", "issue"}); err != nil {
		return err
	}
	for _, r := range rowsFor(items) {
		rec := []string{r.Label, strconv.Itoa(r.Quantity), r.Material, r.Type,
			r.Description, r.Size, r.Section, r.Metric, r.Issue}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
