package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yokitheyo/avatarpipeline/internal/display"
)

func newPlaceholderCmd() *cobra.Command {
	var name, email, style, outPath string
	var size int
	cmd := &cobra.Command{
		Use:   "placeholder",
		Short: "Render a generated placeholder avatar as SVG",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := display.NewPlaceholder(name, email, display.ParseStyle(style))
			svg := display.RenderSVG(p, size)

			if outPath == "" {
				_, err := cmd.OutOrStdout().Write(svg)
				return err
			}
			if err := os.WriteFile(outPath, svg, 0644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%s, initials %q)\n", outPath, p.Style, p.Initials)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email, used when no name is given")
	cmd.Flags().StringVar(&style, "style", string(display.StyleInitials), "initials, icon or gradient")
	cmd.Flags().IntVar(&size, "size", display.DefaultSize, "edge length in pixels")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to a file instead of stdout")
	return cmd
}
