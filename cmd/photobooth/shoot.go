package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/menta2k/photobooth/internal/utils"
	"github.com/menta2k/photobooth/pkg/camera"
	"github.com/menta2k/photobooth/pkg/processing"
)

// webcamOpener is set when the binary is built with the gocv tag
var webcamOpener camera.Opener

func newShootCmd(opts *rootOptions) *cobra.Command {
	var templateID, name string
	var frames []string
	var mirror, share bool

	cmd := &cobra.Command{
		Use:   "shoot",
		Short: "Run a countdown capture session and save the strip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			opener := webcamOpener
			if len(frames) > 0 {
				refs, err := expandFrames(frames)
				if err != nil {
					return err
				}
				src, err := camera.LoadStaticSource(ctx, processing.NewProcessor(), mirror, refs...)
				if err != nil {
					return err
				}
				opener = camera.StaticOpener(src)
			}
			if opener == nil {
				return fmt.Errorf("no camera backend: pass --frames or build with -tags gocv")
			}

			booth, term, err := openBooth(opts, boothOptions{opener: opener, share: share})
			if err != nil {
				return err
			}

			s := booth.Session
			defer s.GoHome()
			s.OpenPicker()
			if err := s.SelectTemplate(ctx, templateID); err != nil {
				if msg := s.Message(); msg != "" {
					term.Error("%s", msg)
				}
				return err
			}
			err = s.Capture(ctx, func(shot int, _ image.Image) {
				term.Success("Shot %d captured", shot+1)
			})
			if err != nil {
				if msg := s.Message(); msg != "" {
					term.Error("%s", msg)
				}
				return err
			}
			if msg := s.Message(); msg != "" {
				term.Error("%s", msg)
			}

			if share {
				res, err := s.Share(ctx, name)
				if err != nil {
					return err
				}
				if res.Shared {
					term.Success("Copied to clipboard")
				} else if res.Path != "" {
					term.Success("Saved %s", res.Path)
				}
				return nil
			}
			path, err := s.Download(name)
			if err != nil {
				return err
			}
			term.Success("Saved %s", path)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&templateID, "template", "t", "classic", "template id")
	f.StringVar(&name, "name", "", "output file name (timestamped when empty)")
	f.StringSliceVar(&frames, "frames", nil, "image files or directories to use instead of a webcam")
	f.BoolVar(&mirror, "mirror", true, "treat --frames as a mirrored user-facing camera")
	f.BoolVar(&share, "share", false, "copy the result to the clipboard instead of saving")
	return cmd
}

// expandFrames replaces directories with the images inside them
func expandFrames(paths []string) ([]string, error) {
	var refs []string
	for _, p := range paths {
		if !isDir(p) {
			refs = append(refs, p)
			continue
		}
		files, err := utils.ListImageFiles(p)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", p, err)
		}
		refs = append(refs, files...)
	}
	return refs, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func newComposeCmd(opts *rootOptions) *cobra.Command {
	var name string
	var mirror bool

	cmd := &cobra.Command{
		Use:   "compose <template-id> <image>...",
		Short: "Composite existing images into a template",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			booth, term, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}

			frames := make([]image.Image, 0, len(args)-1)
			for _, path := range args[1:] {
				img, err := booth.Processor.LoadImageSmart(ctx, path)
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", path, err)
				}
				frames = append(frames, img)
			}

			res, err := booth.Compose(ctx, args[0], frames, mirror)
			if err != nil {
				return err
			}
			if res.Degraded {
				term.Error("Frame artwork could not be loaded; used a plain layout")
			}
			path, err := booth.Exporter.Download(res.Image, name)
			if err != nil {
				return err
			}
			term.Success("Saved %s", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "output file name (timestamped when empty)")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "mirror the images horizontally")
	return cmd
}
