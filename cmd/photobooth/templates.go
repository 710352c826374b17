package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/menta2k/photobooth/internal/utils"
	"github.com/menta2k/photobooth/pkg/template"
)

func newTemplatesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "List, search and manage templates",
	}
	cmd.AddCommand(
		newTemplatesListCmd(opts),
		newTemplatesShowCmd(opts),
		newTemplatesCreateCmd(opts),
		newTemplatesDeleteCmd(opts),
		newTemplatesImportCmd(opts),
		newTemplatesExportCmd(opts),
		newTemplatesThumbCmd(opts),
		newTemplatesDecorationsCmd(opts),
	)
	return cmd
}

func newTemplatesListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [query]",
		Short: "List templates, fuzzy-filtered by an optional query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			booth, _, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			printTemplates(cmd, booth.Registry.Search(query))
			return nil
		},
	}
}

func printTemplates(cmd *cobra.Command, tpls []*template.Template) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSHOTS\tSIZE\tKIND")
	for _, t := range tpls {
		kind := "custom"
		if t.IsDefault {
			kind = "default"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%dx%d\t%s\n", t.ID, t.Name, t.Shots, t.FrameWidth, t.FrameHeight, kind)
	}
	w.Flush()
}

func newTemplatesShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a template's slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			booth, _, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			t, err := booth.Registry.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", t.Name, t.ID)
			fmt.Fprintf(out, "frame: %dx%d  shots: %d  decorations: %d\n", t.FrameWidth, t.FrameHeight, t.Shots, len(t.Decorations))
			for i, s := range t.PhotoSlots {
				fmt.Fprintf(out, "  slot %d: x=%.0f y=%.0f w=%.0f h=%.0f\n", i+1, s.X, s.Y, s.Width, s.Height)
			}
			return nil
		},
	}
}

func newTemplatesCreateCmd(opts *rootOptions) *cobra.Command {
	var name string
	var shots int
	var detect bool

	cmd := &cobra.Command{
		Use:   "create <frame-image>",
		Short: "Create a custom template from frame artwork",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			booth, term, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			rec, err := booth.CreateTemplate(context.Background(), args[0], name, shots, detect)
			if err != nil {
				term.Error("Could not create template: %v", err)
				return err
			}
			term.Success("Created %q (%s) with %d slots", rec.Name, rec.ID, rec.Shots)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "template name (defaults to the file name)")
	cmd.Flags().IntVar(&shots, "shots", 1, "number of photos: 1-4")
	cmd.Flags().BoolVar(&detect, "detect", false, "place slots over transparent windows in the artwork")
	return cmd
}

func newTemplatesDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			booth, term, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			if err := booth.Store.Remove(args[0]); err != nil {
				return err
			}
			term.Success("Deleted %s", args[0])
			return nil
		},
	}
}

func newTemplatesImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import custom templates from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			booth, term, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}
			recs, err := booth.Store.Import(data)
			if err != nil {
				return err
			}
			term.Success("Imported %d templates", len(recs))
			return nil
		},
	}
}

func newTemplatesExportCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export custom templates as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			booth, _, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			data, err := booth.Store.Export()
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(output, data, 0644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func newTemplatesThumbCmd(opts *rootOptions) *cobra.Command {
	var size uint
	cmd := &cobra.Command{
		Use:   "thumbnail <id>",
		Short: "Render a template preview thumbnail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			booth, term, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			img, err := booth.Registry.Thumbnail(context.Background(), args[0], size)
			if err != nil {
				return err
			}
			dir := booth.Config.Output.OutputDir
			if err := utils.EnsureDir(dir); err != nil {
				return err
			}
			path := filepath.Join(dir, utils.SanitizeFilename(args[0])+"-thumb.png")
			if err := booth.Processor.SaveImage(img, path, "png", 0, false); err != nil {
				return err
			}
			term.Success("Wrote %s", path)
			return nil
		},
	}
	cmd.Flags().UintVar(&size, "size", 320, "maximum thumbnail edge in pixels")
	return cmd
}

func newTemplatesDecorationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decorations",
		Short: "List the catalog's decoration sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			booth, _, err := openBooth(opts, boothOptions{})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range booth.Registry.DecorationSetNames() {
				set, _ := booth.Registry.DecorationSet(name)
				fmt.Fprintf(out, "%s (%d items)\n", name, len(set))
			}
			return nil
		},
	}
}
