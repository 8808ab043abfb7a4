package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cg "github.com/jgentle/causalgraph/causalgraph"
	cgsync "github.com/jgentle/causalgraph/causalgraph/sync"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.json>",
	Short: "Print a snapshot's version count, heads, and per-agent summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func loadSnapshot(path string) (*cg.CausalGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var snap cgsync.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	g, err := cgsync.FromSerialized(snap)
	if err != nil {
		return nil, fmt.Errorf("rebuild graph from %s: %w", path, err)
	}
	return g, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	g, err := loadSnapshot(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "known versions: %d\n", cg.NextLV(g))
	fmt.Fprintf(cmd.OutOrStdout(), "heads: %v\n", cg.Heads(g))

	summary := cg.Summarize(g)
	fmt.Fprintln(cmd.OutOrStdout(), "summary:")
	for agent, ranges := range summary {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", agent, ranges)
	}
	return nil
}
