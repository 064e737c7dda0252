package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/go-tts-studio/internal/catalog"
	"github.com/example/go-tts-studio/internal/engine"
	"github.com/example/go-tts-studio/internal/request"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var (
		mode        string
		text        string
		out         string
		speaker     string
		language    string
		instruct    string
		refAudio    string
		refText     string
		xVectorOnly bool
		consent     bool
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text to WAV without a server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputText, err := readSynthText(text, os.Stdin)
			if err != nil {
				return err
			}

			cat := catalog.New()
			if cfg.Catalog.ManifestPath != "" {
				cat, err = catalog.Load(cfg.Catalog.ManifestPath)
				if err != nil {
					return err
				}
			}
			norm := request.NewNormalizer(cfg.Limits, cat)

			spec, err := buildSynthSpec(norm, synthInput{
				Mode:        request.Mode(mode),
				Text:        inputText,
				Speaker:     speaker,
				Language:    language,
				Instruct:    instruct,
				RefAudio:    refAudio,
				RefText:     refText,
				XVectorOnly: xVectorOnly,
				Consent:     consent,
			})
			if err != nil {
				return err
			}

			eng, err := engine.New(cfg.Engine)
			if err != nil {
				return err
			}

			res, err := eng.Synthesize(cmd.Context(), spec, nil)
			if err != nil {
				return err
			}

			return writeSynthOutput(out, res.WAV, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(request.ModeCustomVoice), "Synthesis mode (custom_voice|voice_design|voice_clone)")
	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&out, "out", "out.wav", "Output WAV path ('-' for stdout)")
	cmd.Flags().StringVar(&speaker, "speaker", "Vivian", "Preset speaker for custom_voice mode")
	cmd.Flags().StringVar(&language, "language", "", "Language (default Auto)")
	cmd.Flags().StringVar(&instruct, "instruct", "", "Style instruction or voice description")
	cmd.Flags().StringVar(&refAudio, "ref-audio", "", "Reference audio file for voice_clone mode")
	cmd.Flags().StringVar(&refText, "ref-text", "", "Transcript of the reference audio")
	cmd.Flags().BoolVar(&xVectorOnly, "x-vector-only", false, "Use only the speaker embedding of the reference")
	cmd.Flags().BoolVar(&consent, "consent", false, "Acknowledge consent for voice cloning")

	return cmd
}

type synthInput struct {
	Mode        request.Mode
	Text        string
	Speaker     string
	Language    string
	Instruct    string
	RefAudio    string
	RefText     string
	XVectorOnly bool
	Consent     bool
}

func buildSynthSpec(norm *request.Normalizer, in synthInput) (*request.Spec, error) {
	switch in.Mode {
	case request.ModeCustomVoice:
		return norm.CustomVoice(request.CustomVoiceRequest{
			Text:     in.Text,
			Language: in.Language,
			Speaker:  in.Speaker,
			Instruct: in.Instruct,
		})
	case request.ModeVoiceDesign:
		return norm.VoiceDesign(request.VoiceDesignRequest{
			Text:     in.Text,
			Language: in.Language,
			Instruct: in.Instruct,
		})
	case request.ModeVoiceClone:
		if in.RefAudio == "" {
			return nil, fmt.Errorf("--ref-audio is required for voice_clone mode")
		}
		data, err := os.ReadFile(in.RefAudio)
		if err != nil {
			return nil, fmt.Errorf("read reference audio: %w", err)
		}
		return norm.VoiceClone(request.VoiceCloneRequest{
			Text:                in.Text,
			Language:            in.Language,
			RefText:             in.RefText,
			Instruct:            in.Instruct,
			XVectorOnly:         in.XVectorOnly,
			ConsentAcknowledged: in.Consent,
		}, data)
	default:
		return nil, fmt.Errorf("unsupported mode %q", in.Mode)
	}
}

// readSynthText returns the flag value, or reads all of stdin when empty.
func readSynthText(flagText string, stdin io.Reader) (string, error) {
	if flagText != "" {
		return flagText, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read text from stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no text provided")
	}
	return text, nil
}

func writeSynthOutput(path string, wav []byte, stdout io.Writer) error {
	if path == "-" {
		_, err := stdout.Write(wav)
		return err
	}
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
