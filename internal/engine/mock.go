package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/example/go-tts-studio/internal/audio"
	"github.com/example/go-tts-studio/internal/request"
)

const mockProgressSteps = 10

// Mock synthesizes a sine tone instead of speech. It simulates inference
// latency in small cancellable steps and reports progress after each one,
// which makes it usable both for local development and as the engine under
// test for the orchestrator.
type Mock struct {
	// Delay is the total simulated inference time.
	Delay time.Duration
	// Tone frequency in Hz.
	Frequency float64
}

func NewMock() *Mock {
	return &Mock{Delay: 200 * time.Millisecond, Frequency: 440}
}

func (m *Mock) Synthesize(ctx context.Context, spec *request.Spec, report Progress) (*Result, error) {
	seconds, err := mockDuration(spec)
	if err != nil {
		return nil, err
	}

	step := m.Delay / mockProgressSteps
	for i := range mockProgressSteps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(step):
		}
		if report != nil {
			report(float64(i+1) / (mockProgressSteps + 1))
		}
	}

	samples := make([]float32, int(seconds*float64(audio.DefaultSampleRate)))
	for i := range samples {
		samples[i] = 0.3 * float32(math.Sin(2*math.Pi*m.Frequency*float64(i)/float64(audio.DefaultSampleRate)))
	}

	wav, err := audio.EncodeWAV(samples, audio.DefaultSampleRate)
	if err != nil {
		return nil, fmt.Errorf("encode mock audio: %w", err)
	}

	return &Result{WAV: wav, SampleRate: audio.DefaultSampleRate}, nil
}

// mockDuration mirrors the audio lengths the real models typically produce
// per mode.
func mockDuration(spec *request.Spec) (float64, error) {
	switch spec.Mode {
	case request.ModeCustomVoice, request.ModeVoiceDesign:
		return 2.0, nil
	case request.ModeVoiceClone:
		return 2.5, nil
	case request.ModeVoiceDesignClone:
		if spec.DesignClone == nil {
			return 0, fmt.Errorf("spec missing design_clone payload")
		}
		return float64(len(spec.DesignClone.CloneTexts)) * 1.5, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", spec.Mode)
	}
}
