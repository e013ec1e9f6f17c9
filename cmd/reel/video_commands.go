package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/workflows"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	videoCmd := &cobra.Command{
		Use:   "video",
		Short: "Video generation operations",
	}

	videoCmd.AddCommand(newVideoCreateCommand(ctx))
	videoCmd.AddCommand(newVideoRetrieveCommand(ctx))
	videoCmd.AddCommand(newVideoRemixCommand(ctx))
	videoCmd.AddCommand(newVideoDeleteCommand(ctx))
	videoCmd.AddCommand(newVideoDownloadCommand(ctx))
	videoCmd.AddCommand(newVideoOptionsCommand(ctx))

	return videoCmd
}

func addPollFlags(cmd *cobra.Command, poll *bool, interval, timeout *int) {
	cmd.Flags().BoolVar(poll, "poll", false, "Block until the job reaches a terminal status")
	cmd.Flags().IntVar(interval, "interval", 0, "Seconds between polls (default from config)")
	cmd.Flags().IntVar(timeout, "timeout", 0, "Seconds before the poll gives up (default from config)")
}

func addDownloadFlags(cmd *cobra.Command, download *bool, outputDir *string) {
	cmd.Flags().BoolVar(download, "download", false, "Download the clip when the job has completed")
	cmd.Flags().StringVar(outputDir, "output-dir", "", "Directory for downloaded clips (default from config)")
}

func addJobFlag(cmd *cobra.Command, job *string) {
	cmd.Flags().StringVar(job, "job", "", "Saved job to target, by registry filename or label")
}

func argID(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

func newVideoCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		prompt         string
		model          string
		seconds        int
		size           string
		inputReference string
		extraPairs     []string
		pollFlag       bool
		intervalSecs   int
		timeoutSecs    int
		download       bool
		outputDir      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new render",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			extra, err := parseExtra(extraPairs)
			if err != nil {
				return err
			}
			reference, err := expandInputPath(inputReference)
			if err != nil {
				return err
			}
			outDir, err := expandOutputDir(outputDir)
			if err != nil {
				return err
			}
			out, err := svc.CreateVideo(cmd.Context(), workflows.VideoCreateRequest{
				Prompt:         prompt,
				Model:          model,
				Seconds:        seconds,
				Size:           size,
				InputReference: reference,
				Extra:          extra,
				Poll:           pollRequest(pollFlag, intervalSecs, timeoutSecs),
				Download:       download,
				OutputDir:      outDir,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Text prompt describing the video")
	cmd.MarkFlagRequired("prompt")
	cmd.Flags().StringVar(&model, "model", "", "Model override (default from config)")
	cmd.Flags().IntVar(&seconds, "seconds", 0, "Clip duration in seconds")
	cmd.Flags().StringVar(&size, "size", "", "Resolution as WIDTHxHEIGHT")
	cmd.Flags().StringVar(&inputReference, "input-reference", "", "Local media file to guide the render")
	cmd.Flags().StringArrayVar(&extraPairs, "extra", nil, "Additional request field as key=value (repeatable)")
	addPollFlags(cmd, &pollFlag, &intervalSecs, &timeoutSecs)
	addDownloadFlags(cmd, &download, &outputDir)
	return cmd
}

func newVideoRetrieveCommand(ctx *commandContext) *cobra.Command {
	var (
		jobRef       string
		pollFlag     bool
		intervalSecs int
		timeoutSecs  int
		download     bool
		outputDir    string
	)

	cmd := &cobra.Command{
		Use:   "retrieve [video-id]",
		Short: "Fetch the current snapshot for a render job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			outDir, err := expandOutputDir(outputDir)
			if err != nil {
				return err
			}
			out, err := svc.RetrieveVideo(cmd.Context(), workflows.VideoRetrieveRequest{
				VideoID:   argID(args),
				Label:     jobRef,
				Poll:      pollRequest(pollFlag, intervalSecs, timeoutSecs),
				Download:  download,
				OutputDir: outDir,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			return writeJSON(cmd, out)
		},
	}

	addJobFlag(cmd, &jobRef)
	addPollFlags(cmd, &pollFlag, &intervalSecs, &timeoutSecs)
	addDownloadFlags(cmd, &download, &outputDir)
	return cmd
}

func newVideoRemixCommand(ctx *commandContext) *cobra.Command {
	var (
		prompt       string
		jobRef       string
		pollFlag     bool
		intervalSecs int
		timeoutSecs  int
		download     bool
		outputDir    string
	)

	cmd := &cobra.Command{
		Use:   "remix [video-id]",
		Short: "Derive a new render from a finished job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			outDir, err := expandOutputDir(outputDir)
			if err != nil {
				return err
			}
			out, err := svc.RemixVideo(cmd.Context(), workflows.VideoRemixRequest{
				VideoID:   argID(args),
				Label:     jobRef,
				Prompt:    prompt,
				Poll:      pollRequest(pollFlag, intervalSecs, timeoutSecs),
				Download:  download,
				OutputDir: outDir,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "Text prompt describing the remix")
	cmd.MarkFlagRequired("prompt")
	addJobFlag(cmd, &jobRef)
	addPollFlags(cmd, &pollFlag, &intervalSecs, &timeoutSecs)
	addDownloadFlags(cmd, &download, &outputDir)
	return cmd
}

func newVideoDeleteCommand(ctx *commandContext) *cobra.Command {
	var jobRef string

	cmd := &cobra.Command{
		Use:   "delete [video-id]",
		Short: "Delete a render job upstream and locally",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			out, err := svc.DeleteVideo(cmd.Context(), workflows.VideoDeleteRequest{
				VideoID: argID(args),
				Label:   jobRef,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			return writeJSON(cmd, out)
		},
	}

	addJobFlag(cmd, &jobRef)
	return cmd
}

func newVideoDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		jobRef    string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "download [video-id]",
		Short: "Download the rendered clip for a job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			outDir, err := expandOutputDir(outputDir)
			if err != nil {
				return err
			}
			out, err := svc.DownloadVideo(cmd.Context(), workflows.VideoDownloadRequest{
				VideoID:   argID(args),
				Label:     jobRef,
				OutputDir: outDir,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			return writeJSON(cmd, out)
		},
	}

	addJobFlag(cmd, &jobRef)
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for downloaded clips (default from config)")
	return cmd
}

func newVideoOptionsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "options",
		Short: "List supported models, durations, and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			catalog := svc.Options()
			if jsonOut {
				return writeJSON(cmd, catalog)
			}

			rows := make([][]string, 0, len(catalog.Models))
			for _, model := range catalog.Models {
				name := model
				if model == catalog.DefaultModel {
					name += " (default)"
				}
				rows = append(rows, []string{name, strings.Join(catalog.SizesByModel[model], ", ")})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Model", "Sizes"}, rows, nil))

			choices := make([]string, 0, len(catalog.SecondsChoices))
			for _, s := range catalog.SecondsChoices {
				choices = append(choices, strconv.Itoa(s))
			}
			fmt.Fprintf(out, "Durations (seconds): %s\n", strings.Join(choices, ", "))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the catalog as JSON")
	return cmd
}
