package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/unipy/pkg/modules"
)

var modulesCmd = &cobra.Command{
	Use:   "modules [prefix]",
	Short: "Show which registered modules a namespace prefix exposes",
	Example: `  unipy modules --module-dir ./mods engine
  unipy modules --module game.ai=./ai --module game.ui=./ui game`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModules,
}

func init() {
	modulesCmd.Flags().StringArray("module", nil, "Register a module (namespace=path, can be repeated)")
	modulesCmd.Flags().StringArray("module-dir", nil, "Register every subdirectory as a module named after it (can be repeated)")

	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	specs, _ := cmd.Flags().GetStringArray("module")
	dirs, _ := cmd.Flags().GetStringArray("module-dir")

	registry := modules.NewRegistry()
	if err := registerModules(registry, specs, dirs); err != nil {
		return err
	}

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tPATH")
	for _, m := range registry.InNamespace(prefix) {
		fmt.Fprintf(w, "%s\t%s\n", m.Namespace, m.Path)
	}
	return w.Flush()
}
