package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	cg "github.com/jgentle/causalgraph/causalgraph"
)

var diffCmd = &cobra.Command{
	Use:   "diff <a.json> <b.json>",
	Short: "Compare two snapshot files and print the seq ranges in b that a has no record of",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	ga, err := loadSnapshot(args[0])
	if err != nil {
		return err
	}
	gb, err := loadSnapshot(args[1])
	if err != nil {
		return err
	}

	// Both snapshots were produced independently, via FromSerialized in
	// isolation, so their LV spaces don't line up; compare via the
	// shared agent/seq namespace instead, the same way a real peer
	// compares its own graph against a remote's VersionSummary.
	summaryB := cg.Summarize(gb)
	_, missingFromA, err := cg.IntersectWithSummary(ga, summaryB)
	if err != nil {
		return fmt.Errorf("intersect: %w", err)
	}

	out, err := json.MarshalIndent(missingFromA, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "versions in b that a has no record of:")
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
