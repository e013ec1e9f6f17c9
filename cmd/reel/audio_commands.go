package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reel/internal/config"
	"reel/internal/workflows"
)

func newAudioCommand(ctx *commandContext) *cobra.Command {
	audioCmd := &cobra.Command{
		Use:   "audio",
		Short: "Audio transcription, translation, and speech operations",
	}

	audioCmd.AddCommand(newAudioTranscribeCommand(ctx))
	audioCmd.AddCommand(newAudioTranslateCommand(ctx))
	audioCmd.AddCommand(newAudioSpeakCommand(ctx))

	return audioCmd
}

// transcriptOutput flattens an audio result for JSON output.
type transcriptOutput struct {
	Text string `json:"text"`
	Raw  any    `json:"raw,omitempty"`
}

func newAudioTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		model    string
		lang     string
		format   string
		textOnly bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe <file>",
		Short: "Transcribe speech from an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			path, err := expandInputPath(args[0])
			if err != nil {
				return err
			}
			result, err := svc.Transcribe(cmd.Context(), workflows.TranscribeRequest{
				FilePath:       path,
				Model:          model,
				Language:       lang,
				ResponseFormat: format,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			if textOnly {
				cmd.Println(result.Text)
				return nil
			}
			return writeJSON(cmd, transcriptOutput{Text: result.Text, Raw: result.Raw})
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Transcription model override (default from config)")
	cmd.Flags().StringVar(&lang, "language", "", "Spoken language hint as an ISO 639-1 code")
	cmd.Flags().StringVar(&format, "format", "", "Response format (json, text, srt, vtt, verbose_json)")
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print only the transcript text")
	return cmd
}

func newAudioTranslateCommand(ctx *commandContext) *cobra.Command {
	var (
		model    string
		format   string
		textOnly bool
	)

	cmd := &cobra.Command{
		Use:   "translate <file>",
		Short: "Translate speech from an audio file into English",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			path, err := expandInputPath(args[0])
			if err != nil {
				return err
			}
			result, err := svc.Translate(cmd.Context(), workflows.TranslateRequest{
				FilePath:       path,
				Model:          model,
				ResponseFormat: format,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			if textOnly {
				cmd.Println(result.Text)
				return nil
			}
			return writeJSON(cmd, transcriptOutput{Text: result.Text, Raw: result.Raw})
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Translation model override (default from config)")
	cmd.Flags().StringVar(&format, "format", "", "Response format (json, text, srt, vtt, verbose_json)")
	cmd.Flags().BoolVar(&textOnly, "text", false, "Print only the translated text")
	return cmd
}

func newAudioSpeakCommand(ctx *commandContext) *cobra.Command {
	var (
		model        string
		voice        string
		instructions string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "speak <text>...",
		Short: "Synthesize speech from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.service()
			if err != nil {
				return err
			}
			outputPath := strings.TrimSpace(output)
			if outputPath != "" {
				expanded, err := config.ExpandPath(outputPath)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				outputPath = expanded
			}
			out, err := svc.Speak(cmd.Context(), workflows.SpeakRequest{
				Text:         strings.Join(args, " "),
				Model:        model,
				Voice:        voice,
				Instructions: instructions,
				OutputPath:   outputPath,
			})
			if err != nil {
				return writeFailure(cmd, err)
			}
			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Speech model override (default from config)")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice override (default from config)")
	cmd.Flags().StringVar(&instructions, "instructions", "", "Delivery instructions, such as tone or pacing")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default timestamped mp3 in the output dir)")
	return cmd
}
