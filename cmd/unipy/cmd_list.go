package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/unipy/internal/errx"
	"github.com/jingkaihe/unipy/pkg/state"
)

const listCommandWidth = 60

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded runs",
	RunE:    runList,
}

func init() {
	listCmd.Flags().Int("limit", 20, "Maximum runs to show (0 = all)")
	listCmd.Flags().Bool("failed", false, "Show only runs with a non-zero exit code")
	viper.BindPFlag("list.limit", listCmd.Flags().Lookup("limit"))
	viper.BindPFlag("list.failed", listCmd.Flags().Lookup("failed"))

	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := state.Open(viper.GetString("state-db"))
	if err != nil {
		return errx.Wrap(ErrOpenSessionDB, err)
	}
	defer store.Close()

	sessions, err := store.List(state.ListOptions{
		Limit:      viper.GetInt("list.limit"),
		FailedOnly: viper.GetBool("list.failed"),
	})
	if err != nil {
		return err
	}
	printSessions(cmd.OutOrStdout(), sessions)
	return nil
}

func printSessions(out io.Writer, sessions []state.Session) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tSTARTED\tEXIT\tDURATION\tCOMMAND")

	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			s.ExitCode,
			s.Duration,
			truncate(shellquote.Join(s.Interpreter, "-c", s.Code), listCommandWidth),
		)
	}
	w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
