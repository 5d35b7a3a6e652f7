package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yokitheyo/avatarpipeline/internal/domain"
	"github.com/yokitheyo/avatarpipeline/internal/dto"
)

type uploadOptions struct {
	userID     string
	file       string
	thumbnail  bool
	noCompress bool
	quality    float64
	maxSize    int
}

func newUploadCmd(root *rootOptions, load serviceLoader) *cobra.Command {
	opts := &uploadOptions{}
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload an image file as a user's avatar",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.userID == "" || opts.file == "" {
				return errors.New("--user and --file are required")
			}

			svc, err := load(cmd.Context(), root.configPath)
			if err != nil {
				return err
			}
			defer svc.close()

			image, err := svc.source.Pick(cmd.Context(), opts.file)
			if err != nil {
				return fmt.Errorf("read %s: %w", opts.file, err)
			}

			uo := domain.DefaultUploadOptions(opts.userID)
			uo.Compress = !opts.noCompress
			uo.GenerateMultipleSizes = opts.thumbnail
			uo.Quality = svc.defaultQuality
			uo.MaxSize = svc.defaultMaxSize
			if cmd.Flags().Changed("quality") {
				uo.Quality = opts.quality
			}
			if cmd.Flags().Changed("max-size") {
				uo.MaxSize = opts.maxSize
			}

			errOut := cmd.ErrOrStderr()
			result := svc.avatars.Upload(cmd.Context(), image, uo, func(ev domain.ProgressEvent) {
				if !root.jsonOutput {
					fmt.Fprintf(errOut, "[%3d%%] %-16s %s\n", ev.Progress, ev.Stage, ev.Message)
				}
			})

			out := cmd.OutOrStdout()
			if root.jsonOutput {
				if err := outputJSON(out, dto.MapUploadResult(result)); err != nil {
					return err
				}
			}
			if !result.Success {
				return fmt.Errorf("upload failed: %s", result.Error)
			}
			if !root.jsonOutput {
				fmt.Fprintf(out, "avatar:    %s\n", result.AvatarURL)
				if result.ThumbnailURL != "" {
					fmt.Fprintf(out, "thumbnail: %s\n", result.ThumbnailURL)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "", "user identity that owns the avatar")
	cmd.Flags().StringVar(&opts.file, "file", "", "image file to upload")
	cmd.Flags().BoolVar(&opts.thumbnail, "thumbnail", false, "also generate and upload a thumbnail")
	cmd.Flags().BoolVar(&opts.noCompress, "no-compress", false, "upload the file as is")
	cmd.Flags().Float64Var(&opts.quality, "quality", domain.DefaultQuality, "JPEG quality between 0 and 1")
	cmd.Flags().IntVar(&opts.maxSize, "max-size", domain.DefaultMaxSize, "bounding box edge in pixels, 50 to 2000")
	return cmd
}
