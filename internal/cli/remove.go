package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yokitheyo/avatarpipeline/internal/dto"
)

func newRemoveCmd(root *rootOptions, load serviceLoader) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete every stored avatar object of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}

			svc, err := load(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			defer svc.close()

			result := svc.avatars.RemoveAvatar(cmd.Context(), userID)
			out := cmd.OutOrStdout()
			if root.jsonOutput {
				if err := outputJSON(out, dto.MapRemovalResult(result)); err != nil {
					return err
				}
			}
			if !result.Success {
				return fmt.Errorf("remove failed: %s", result.Error)
			}
			if !root.jsonOutput {
				fmt.Fprintf(out, "removed %d object(s) for %s\n", result.Removed, userID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user identity whose avatar is removed")
	return cmd
}
