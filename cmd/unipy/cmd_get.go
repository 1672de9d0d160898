package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/unipy/internal/errx"
	"github.com/jingkaihe/unipy/pkg/state"
)

var getCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Show the latest recorded run of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	store, err := state.Open(viper.GetString("state-db"))
	if err != nil {
		return errx.Wrap(ErrOpenSessionDB, err)
	}
	defer store.Close()

	s, err := store.Get(args[0])
	if err != nil {
		return err
	}

	output, _ := json.MarshalIndent(s, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return nil
}
