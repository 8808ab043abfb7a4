// Command cgctl is a small inspection and merge tool for causal-graph
// snapshot and delta files. It is a separate binary that imports the
// causalgraph engine as a library — the core package itself has no CLI,
// env, or filesystem surface.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jgentle/causalgraph/internal/xlog"
)

var rootCmd = &cobra.Command{
	Use:           "cgctl",
	Short:         "Inspect, diff, and merge causal-graph snapshot/delta files",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return xlog.Configure(viper.GetString("log-level"))
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.SetEnvPrefix("CGCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cgctl:", err)
		os.Exit(1)
	}
}
