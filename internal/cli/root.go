// Package cli implements avatarctl, an operator tool that runs the avatar pipeline from a
// shell against the configured storage and database.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	jsonOutput bool
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd(defaultServices).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "avatarctl: "+err.Error())
		os.Exit(1)
	}
}

func newRootCmd(load serviceLoader) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "avatarctl",
		Short: "avatarctl - avatar pipeline operator tool",
		Long: `avatarctl uploads and removes user avatars through the same pipeline as the
HTTP API, and renders placeholder avatars offline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(
		newUploadCmd(opts, load),
		newRemoveCmd(opts, load),
		newPlaceholderCmd(),
	)
	return root
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
