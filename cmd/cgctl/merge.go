package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cgsync "github.com/jgentle/causalgraph/causalgraph/sync"
	"github.com/jgentle/causalgraph/internal/xlog"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <snapshot.json> <delta.json>",
	Short: "Merge a v2 delta file into a snapshot file and rewrite it in place",
	Args:  cobra.ExactArgs(2),
	RunE:  runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	snapPath, deltaPath := args[0], args[1]

	g, err := loadSnapshot(snapPath)
	if err != nil {
		return err
	}

	deltaBytes, err := os.ReadFile(deltaPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", deltaPath, err)
	}
	var delta cgsync.Delta
	if err := json.Unmarshal(deltaBytes, &delta); err != nil {
		return fmt.Errorf("parse %s: %w", deltaPath, err)
	}

	inserted, err := cgsync.MergePartial(g, delta)
	if err != nil {
		return fmt.Errorf("merge delta into %s: %w", snapPath, err)
	}
	xlog.Logger.Infow("cgctl: merged delta", "snapshot", snapPath, "delta", deltaPath, "inserted_ranges", len(inserted))

	newSnap, err := cgsync.Serialize(g)
	if err != nil {
		return fmt.Errorf("serialize merged snapshot: %w", err)
	}
	out, err := json.MarshalIndent(newSnap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(snapPath, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", snapPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "merged %d new range(s) into %s\n", len(inserted), snapPath)
	return nil
}
