package main

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gcslaoli/protectimg"
)

func newRenderCommand(cc *commandContext) *cobra.Command {
	var (
		output   string
		htmlPath string
		alt      string
		layout   string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render <url>",
		Short: "Fetch an image and write the watermarked surface or the protected view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			result, err := loadOnce(cmd, cc, protectimg.ImageRequest{SourceURL: source, Alt: alt, LayoutHint: layout}, timeout)
			if err != nil {
				return err
			}
			defer result.ctrl.Close()

			out := cmd.OutOrStdout()
			if htmlPath != "" {
				if err := writeHTML(result.ctrl, htmlPath); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %s view to %s\n", result.state.Result, htmlPath)
			}

			switch result.state.Result {
			case protectimg.ResultPixelSurface:
				outPath := output
				if outPath == "" {
					outPath = defaultOutputPath(source)
				}
				if err := writePNG(result.ctrl, outPath); err != nil {
					return err
				}
				b := result.ctrl.Surface().Bounds()
				fmt.Fprintf(out, "Processed %s -> %s [%dx%d, watermark %q]\n", source, outPath, b.Dx(), b.Dy(), result.pattern.Text)
			case protectimg.ResultProtectedNode:
				fmt.Fprintf(out, "Host refused pixel access for %s; shown as protected node without watermark.\n", source)
				if htmlPath == "" {
					fmt.Fprintln(out, "Use --html to write the protected view.")
				}
			default:
				return fmt.Errorf("render %s: %w", source, result.state.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "", "Output PNG path (defaults to <name>_protected.png)")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Also write the rendered container as HTML")
	cmd.Flags().StringVar(&alt, "alt", "", "Alt text for the image")
	cmd.Flags().StringVar(&layout, "layout", "", "Layout hint for the fallback view (e.g. object-contain)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up waiting after this long (0 waits forever)")

	return cmd
}

func writePNG(ctrl *protectimg.Controller, outPath string) (err error) {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := protectimg.EncodePNG(f, ctrl.Surface()); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func writeHTML(ctrl *protectimg.Controller, outPath string) (err error) {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create html: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := ctrl.RenderHTML(f); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func defaultOutputPath(source string) string {
	name := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		name = u.Path
	}
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "output"
	}
	return base + "_protected.png"
}
