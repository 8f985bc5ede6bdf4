// Command odfq evaluates a DFL source file's formulas against its model
// and prints one result line per query. Grounded on
// jhkimqd-chaos-utils/cmd/chaos-runner/main.go's rootCmd wiring (a
// cobra.Command with persistent flags and subcommands added in init)
// and theRebelliousNerd-codenerd/cmd/nerd's root-command style.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:     "odfq",
	Short:   "Evaluate Disruption Formula Language queries over attack/fault trees",
	Long:    `odfq parses a DFL source file describing an attack tree, a fault tree and an object graph, then evaluates every formula statement in its formulas block.`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE:    runEval,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "engine config file (default: none, built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := exitCodeOf(err); ok {
			os.Exit(code)
		}
		os.Exit(1)
	}
}
