package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shelf/internal/media/probe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <library-path>",
		Short: "Inspect the streams of a library file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := client.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:      %s\n", result.Format.Filename)
			if result.Format.FormatName != "" {
				fmt.Fprintf(out, "Container: %s\n", result.Format.FormatName)
			}
			if seconds := result.DurationSeconds(); seconds > 0 {
				duration := time.Duration(seconds * float64(time.Second)).Round(time.Second)
				fmt.Fprintf(out, "Duration:  %s\n", duration)
			}
			if size := result.SizeBytes(); size > 0 {
				fmt.Fprintf(out, "Size:      %.1f MiB\n", float64(size)/(1<<20))
			}
			fmt.Fprintf(out, "Streams:   %d video, %d audio\n", result.VideoStreamCount(), result.AudioStreamCount())

			if len(result.Streams) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(result.Streams))
			for _, stream := range result.Streams {
				rows = append(rows, []string{
					fmt.Sprintf("%d", stream.Index),
					stream.CodecType,
					stream.CodecName,
					streamDetail(stream),
					stream.LanguageDisplayName(),
				})
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(out,
				[]string{"Index", "Type", "Codec", "Detail", "Language"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}

func streamDetail(stream probe.Stream) string {
	switch strings.ToLower(stream.CodecType) {
	case "video":
		if stream.Width > 0 && stream.Height > 0 {
			return fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		}
	case "audio":
		parts := make([]string, 0, 2)
		if stream.SampleRate != "" {
			parts = append(parts, stream.SampleRate+" Hz")
		}
		if stream.Channels > 0 {
			parts = append(parts, fmt.Sprintf("%dch", stream.Channels))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
