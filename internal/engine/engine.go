// Package engine invokes the synthesis capability that turns a job
// specification into audio bytes.
package engine

import (
	"context"
	"fmt"

	"github.com/example/go-tts-studio/internal/config"
	"github.com/example/go-tts-studio/internal/request"
)

// Progress reports a completion fraction in [0,1). It may be called from the
// synthesis goroutine at any rate, including not at all.
type Progress func(fraction float64)

// Result is a produced audio payload.
type Result struct {
	WAV        []byte
	SampleRate int
}

// Engine produces audio for a validated job specification, or fails.
// Implementations honour ctx cancellation cooperatively: a cancelled call
// returns ctx.Err() as soon as it can stop.
type Engine interface {
	Synthesize(ctx context.Context, spec *request.Spec, report Progress) (*Result, error)
}

// New constructs the Engine selected by cfg.Backend.
func New(cfg config.EngineConfig) (Engine, error) {
	backend, err := config.NormalizeBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case config.BackendMock:
		return NewMock(), nil
	case config.BackendCLI:
		return &CLI{
			ExecutablePath: cfg.CLIPath,
			ConfigPath:     cfg.CLIConfigPath,
			Quiet:          cfg.Quiet,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}
}
