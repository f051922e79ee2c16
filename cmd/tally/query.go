package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/baleframe/tally/pkg/parts"
)

func queryCmd(cfg *config) *cobra.Command {
	var (
		filter  parts.Filter
		virtual string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Build the model and list parts matching a location filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch virtual {
			case "":
			case "true", "false":
				v := virtual == "true"
				filter.Virtual = &v
			default:
				return fmt.Errorf("invalid --virtual %q (want true or false)", virtual)
			}

			eng, store, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := eng.Rebuild(); err != nil {
				return err
			}
			items := eng.Query(filter)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			return writeTable(os.Stdout, items)
		},
	}

	cmd.Flags().StringVar(&filter.Storey, "storey", "", "Restrict to a storey id")
	cmd.Flags().StringVar(&filter.Perimeter, "perimeter", "", "Restrict to a perimeter id")
	cmd.Flags().StringVar(&filter.Wall, "wall", "", "Restrict to a wall id")
	cmd.Flags().StringVar(&filter.Roof, "roof", "", "Restrict to a roof id")
	cmd.Flags().StringVar(&virtual, "virtual", "", "Restrict to virtual (true) or physical (false) parts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func labelsCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Inspect and reset persistent part labels",
	}
	cmd.AddCommand(labelsListCmd(cfg))
	cmd.AddCommand(labelsResetCmd(cfg))
	return cmd
}

func labelsListCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current labels per group",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, store, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := eng.Rebuild(); err != nil {
				return err
			}
			snap := eng.Snapshot()
			for _, identity := range sortedKeys(snap.Labels) {
				d := snap.Definitions[identity]
				group := "(stale)"
				if d != nil {
					group = parts.GroupID(d)
				}
				fmt.Printf("%-6s %-24s %s\n", snap.Labels[identity], group, identity)
			}
			for _, g := range eng.LabelGroups() {
				if eng.HasUnusedLabels(g) {
					fmt.Printf("group %s has retired labels; reset to compact\n", g)
				}
			}
			return nil
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelsResetCmd(cfg *config) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard labels and renumber from A",
		Long: `Reset discards assigned labels and renumbers the affected parts
from A in a deterministic order. With --group only that label group is
renumbered; other groups keep their labels.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, store, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := eng.Rebuild(); err != nil {
				return err
			}
			if err := eng.ResetLabels(group); err != nil {
				return err
			}
			if group == "" {
				fmt.Println("all labels reset")
			} else {
				fmt.Printf("labels reset for group %s\n", group)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "Label group to reset (default all)")
	return cmd
}
