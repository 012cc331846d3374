package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gcslaoli/protectimg"
)

func newInspectCommand(cc *commandContext) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "Show how an image loads: attempts, outcome, and watermark score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := loadOnce(cmd, cc, protectimg.ImageRequest{SourceURL: args[0]}, timeout)
			if err != nil {
				return err
			}
			defer result.ctrl.Close()

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(result.attempts))
			for _, a := range result.attempts {
				errText := "-"
				if a.Err != nil {
					errText = a.Err.Error()
				}
				rows = append(rows, []string{
					a.Mode.String(),
					a.Status.String(),
					a.Elapsed.Round(time.Millisecond).String(),
					a.URL,
					errText,
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"Mode", "Status", "Elapsed", "URL", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))

			s := result.state
			fmt.Fprintf(out, "Request %s (generation %d): %s", s.RequestID, s.Generation, s.Phase)
			if s.Phase == protectimg.PhaseSuccess {
				fmt.Fprintf(out, " as %s", s.Result)
			}
			fmt.Fprintln(out)

			switch s.Result {
			case protectimg.ResultPixelSurface:
				if result.base == nil {
					break
				}
				present, score, err := protectimg.DetectWatermark(result.base, result.ctrl.Surface())
				if err != nil {
					return fmt.Errorf("score watermark: %w", err)
				}
				b := result.ctrl.Surface().Bounds()
				fmt.Fprintf(out, "Surface %dx%d, %d tiles in view, watermark present=%v (score %.2f)\n",
					b.Dx(), b.Dy(), len(protectimg.TileOrigins(b.Dx(), b.Dy(), result.pattern)), present, score)
			case protectimg.ResultProtectedNode:
				fmt.Fprintln(out, "No watermark: host refused cross-origin pixel access.")
			default:
				fmt.Fprintf(out, "Error: %v\n", s.Err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up waiting after this long (0 waits forever)")
	return cmd
}
