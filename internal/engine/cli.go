package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"

	"github.com/example/go-tts-studio/internal/audio"
	"github.com/example/go-tts-studio/internal/request"
)

// CLI runs an external TTS executable per job: the job specification is
// written to its stdin as JSON and a WAV payload is read from its stdout.
// Cancellation kills the subprocess via exec.CommandContext.
type CLI struct {
	ExecutablePath string
	ConfigPath     string
	Quiet          bool
}

func (c *CLI) Synthesize(ctx context.Context, spec *request.Spec, report Progress) (*Result, error) {
	exe := c.ExecutablePath
	if exe == "" {
		exe = "qwen3-tts"
	}

	args := []string{"synthesize", "--mode", string(spec.Mode), "--output", "-"}
	if c.ConfigPath != "" {
		args = append(args, "--config", c.ConfigPath)
	}
	if c.Quiet {
		args = append(args, "--quiet")
	}

	payload, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode spec: %w", err)
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Stdin = bytes.NewReader(payload)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = io.Discard

	if report != nil {
		report(0)
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tts subprocess: %w", err)
	}

	wav := out.Bytes()

	// The subprocess is trusted for content but not for framing; make sure
	// what came back actually decodes as WAV before handing it out.
	_, rate, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("tts subprocess produced invalid WAV: %w", err)
	}

	return &Result{WAV: wav, SampleRate: rate}, nil
}
