package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/photobooth/internal/utils"
)

func newDetectCmd(opts *rootOptions) *cobra.Command {
	var shots int
	var overlay, ask bool

	cmd := &cobra.Command{
		Use:   "detect <frame-image>",
		Short: "Find photo windows in frame artwork",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			booth, term, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			up, err := booth.Uploads.ValidateFile(args[0])
			if err != nil {
				return err
			}

			if ask {
				reply, err := booth.Detector.TestVision(ctx, up.Image)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply)
				return nil
			}

			slots, err := booth.Detector.DetectSlots(ctx, up.Image, shots)
			if err != nil {
				term.Error("No layout found: %v", err)
				return err
			}
			for i, s := range slots {
				fmt.Fprintf(cmd.OutOrStdout(), "slot %d: x=%.0f y=%.0f w=%.0f h=%.0f\n", i+1, s.X, s.Y, s.Width, s.Height)
			}

			if overlay {
				dir := booth.Config.Output.OutputDir
				if err := utils.EnsureDir(dir); err != nil {
					return err
				}
				base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				path := filepath.Join(dir, utils.SanitizeFilename(base)+"-slots.png")
				img := booth.Processor.CreateSlotOverlay(up.Image, slots, -1)
				if err := booth.Processor.SaveImage(img, path, "png", 0, false); err != nil {
					return err
				}
				term.Success("Wrote %s", path)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&shots, "shots", 1, "number of windows to find")
	cmd.Flags().BoolVar(&overlay, "overlay", false, "save the artwork with the slots drawn on it")
	cmd.Flags().BoolVar(&ask, "ask", false, "only check that the vision model responds")
	return cmd
}
