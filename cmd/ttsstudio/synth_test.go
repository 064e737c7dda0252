package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-tts-studio/internal/audio"
	"github.com/example/go-tts-studio/internal/catalog"
	"github.com/example/go-tts-studio/internal/config"
	"github.com/example/go-tts-studio/internal/request"
)

func TestReadSynthText(t *testing.T) {
	t.Run("uses flag text", func(t *testing.T) {
		got, err := readSynthText("hello", strings.NewReader("ignored"))
		if err != nil {
			t.Fatalf("readSynthText returned error: %v", err)
		}
		if got != "hello" {
			t.Fatalf("expected hello, got %q", got)
		}
	})

	t.Run("falls back to stdin", func(t *testing.T) {
		got, err := readSynthText("", strings.NewReader(" from stdin \n"))
		if err != nil {
			t.Fatalf("readSynthText returned error: %v", err)
		}
		if got != "from stdin" {
			t.Fatalf("expected trimmed stdin text, got %q", got)
		}
	})

	t.Run("fails when both empty", func(t *testing.T) {
		_, err := readSynthText("", strings.NewReader("   \n\t"))
		if err == nil {
			t.Fatal("expected error for empty input")
		}
	})
}

func TestWriteSynthOutput(t *testing.T) {
	t.Run("dash writes to stdout", func(t *testing.T) {
		var buf bytes.Buffer
		if err := writeSynthOutput("-", []byte("wavdata"), &buf); err != nil {
			t.Fatalf("writeSynthOutput returned error: %v", err)
		}
		if buf.String() != "wavdata" {
			t.Fatalf("expected wavdata on stdout, got %q", buf.String())
		}
	})

	t.Run("path writes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.wav")
		if err := writeSynthOutput(path, []byte("wavdata"), nil); err != nil {
			t.Fatalf("writeSynthOutput returned error: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read output file: %v", err)
		}
		if string(data) != "wavdata" {
			t.Fatalf("unexpected file contents %q", data)
		}
	})
}

func TestBuildSynthSpec(t *testing.T) {
	norm := request.NewNormalizer(config.DefaultConfig().Limits, catalog.New())

	t.Run("custom voice", func(t *testing.T) {
		spec, err := buildSynthSpec(norm, synthInput{
			Mode:    request.ModeCustomVoice,
			Text:    "hi",
			Speaker: "Vivian",
		})
		if err != nil {
			t.Fatalf("buildSynthSpec returned error: %v", err)
		}
		if spec.Mode != request.ModeCustomVoice || spec.CustomVoice == nil {
			t.Fatalf("unexpected spec %+v", spec)
		}
	})

	t.Run("voice clone requires ref audio flag", func(t *testing.T) {
		_, err := buildSynthSpec(norm, synthInput{
			Mode:    request.ModeVoiceClone,
			Text:    "hi",
			Consent: true,
		})
		if err == nil {
			t.Fatal("expected error without --ref-audio")
		}
	})

	t.Run("voice clone reads reference file", func(t *testing.T) {
		samples := make([]float32, audio.DefaultSampleRate/10)
		wav, err := audio.EncodeWAV(samples, audio.DefaultSampleRate)
		if err != nil {
			t.Fatalf("encode reference: %v", err)
		}
		path := filepath.Join(t.TempDir(), "ref.wav")
		if err := os.WriteFile(path, wav, 0o644); err != nil {
			t.Fatalf("write reference: %v", err)
		}

		spec, err := buildSynthSpec(norm, synthInput{
			Mode:     request.ModeVoiceClone,
			Text:     "hi",
			RefAudio: path,
			Consent:  true,
		})
		if err != nil {
			t.Fatalf("buildSynthSpec returned error: %v", err)
		}
		if spec.VoiceClone == nil || len(spec.VoiceClone.RefAudio) == 0 {
			t.Fatal("expected reference audio on spec")
		}
	})

	t.Run("unsupported mode", func(t *testing.T) {
		_, err := buildSynthSpec(norm, synthInput{Mode: "humming", Text: "hi"})
		if err == nil {
			t.Fatal("expected error for unsupported mode")
		}
	})
}
