package request

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/example/go-tts-studio/internal/audio"
	"github.com/example/go-tts-studio/internal/config"
)

// Normalization failure kinds. Callers map these onto distinct HTTP statuses,
// so ErrConsentRequired, ErrPayloadTooLarge, and ErrUnsupportedMedia must not
// collapse into plain ErrValidation.
var (
	ErrValidation       = errors.New("validation failed")
	ErrConsentRequired  = errors.New("voice cloning requires explicit consent")
	ErrPayloadTooLarge  = errors.New("reference audio exceeds size limit")
	ErrUnsupportedMedia = errors.New("unsupported reference audio format")
)

// SpeakerChecker reports whether a speaker name is a known catalog entry.
type SpeakerChecker interface {
	HasSpeaker(name string) bool
}

// Normalizer validates raw requests against configured limits and the
// speaker catalog. It is pure: it never creates jobs or touches shared state.
type Normalizer struct {
	limits   config.LimitsConfig
	speakers SpeakerChecker
}

func NewNormalizer(limits config.LimitsConfig, speakers SpeakerChecker) *Normalizer {
	return &Normalizer{limits: limits, speakers: speakers}
}

// CustomVoice validates a preset-speaker request.
func (n *Normalizer) CustomVoice(req CustomVoiceRequest) (*Spec, error) {
	if err := n.checkText("text", req.Text); err != nil {
		return nil, err
	}
	if err := n.checkInstruct(req.Instruct); err != nil {
		return nil, err
	}
	if req.Speaker == "" {
		return nil, fmt.Errorf("%w: speaker is required", ErrValidation)
	}
	if !n.speakers.HasSpeaker(req.Speaker) {
		return nil, fmt.Errorf("%w: unknown speaker %q", ErrValidation, req.Speaker)
	}

	return &Spec{
		Mode: ModeCustomVoice,
		CustomVoice: &CustomVoiceSpec{
			Text:     req.Text,
			Language: defaultLanguage(req.Language),
			Speaker:  req.Speaker,
			Instruct: req.Instruct,
		},
	}, nil
}

// VoiceDesign validates a natural-language voice description request.
func (n *Normalizer) VoiceDesign(req VoiceDesignRequest) (*Spec, error) {
	if err := n.checkText("text", req.Text); err != nil {
		return nil, err
	}
	if req.Instruct == "" {
		return nil, fmt.Errorf("%w: instruct is required", ErrValidation)
	}
	if err := n.checkInstruct(req.Instruct); err != nil {
		return nil, err
	}

	return &Spec{
		Mode: ModeVoiceDesign,
		VoiceDesign: &VoiceDesignSpec{
			Text:     req.Text,
			Language: defaultLanguage(req.Language),
			Instruct: req.Instruct,
		},
	}, nil
}

// VoiceClone validates a cloning request together with its reference audio
// payload. Consent must be acknowledged explicitly.
func (n *Normalizer) VoiceClone(req VoiceCloneRequest, refAudio []byte) (*Spec, error) {
	if !req.ConsentAcknowledged {
		return nil, ErrConsentRequired
	}
	if err := n.checkText("text", req.Text); err != nil {
		return nil, err
	}
	if err := n.checkInstruct(req.Instruct); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(req.RefText) > n.limits.MaxRefTextLen {
		return nil, fmt.Errorf("%w: ref_text exceeds %d characters", ErrValidation, n.limits.MaxRefTextLen)
	}
	if len(refAudio) == 0 {
		return nil, fmt.Errorf("%w: reference audio is empty", ErrValidation)
	}
	if len(refAudio) > n.limits.MaxAudioUploadBytes() {
		return nil, fmt.Errorf("%w: %dMB cap", ErrPayloadTooLarge, n.limits.MaxAudioUploadMB)
	}
	if _, err := audio.Sniff(refAudio); err != nil {
		return nil, fmt.Errorf("%w: want WAV, MP3, FLAC, or OGG", ErrUnsupportedMedia)
	}

	return &Spec{
		Mode: ModeVoiceClone,
		VoiceClone: &VoiceCloneSpec{
			Text:        req.Text,
			Language:    defaultLanguage(req.Language),
			RefText:     req.RefText,
			Instruct:    req.Instruct,
			XVectorOnly: req.XVectorOnly,
			RefAudio:    refAudio,
		},
	}, nil
}

// VoiceDesignClone validates the design-then-clone composite request.
func (n *Normalizer) VoiceDesignClone(req VoiceDesignCloneRequest) (*Spec, error) {
	if err := n.checkText("design_text", req.DesignText); err != nil {
		return nil, err
	}
	if req.DesignInstruct == "" {
		return nil, fmt.Errorf("%w: design_instruct is required", ErrValidation)
	}
	if err := n.checkInstruct(req.DesignInstruct); err != nil {
		return nil, err
	}
	if len(req.CloneTexts) == 0 {
		return nil, fmt.Errorf("%w: clone_texts must not be empty", ErrValidation)
	}
	if len(req.CloneTexts) != len(req.CloneLanguages) {
		return nil, fmt.Errorf("%w: clone_texts and clone_languages must have the same length", ErrValidation)
	}
	if len(req.CloneTexts) > n.limits.MaxCloneTexts {
		return nil, fmt.Errorf("%w: at most %d clone texts", ErrValidation, n.limits.MaxCloneTexts)
	}
	for i, text := range req.CloneTexts {
		if err := n.checkText(fmt.Sprintf("clone_texts[%d]", i), text); err != nil {
			return nil, err
		}
	}

	languages := make([]string, len(req.CloneLanguages))
	for i, lang := range req.CloneLanguages {
		languages[i] = defaultLanguage(lang)
	}

	return &Spec{
		Mode: ModeVoiceDesignClone,
		DesignClone: &DesignCloneSpec{
			DesignText:     req.DesignText,
			DesignLanguage: defaultLanguage(req.DesignLanguage),
			DesignInstruct: req.DesignInstruct,
			CloneTexts:     append([]string(nil), req.CloneTexts...),
			CloneLanguages: languages,
		},
	}, nil
}

func (n *Normalizer) checkText(field, text string) error {
	if text == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	}
	if utf8.RuneCountInString(text) > n.limits.MaxTextLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrValidation, field, n.limits.MaxTextLength)
	}
	return nil
}

func (n *Normalizer) checkInstruct(instruct string) error {
	if utf8.RuneCountInString(instruct) > n.limits.MaxInstructLen {
		return fmt.Errorf("%w: instruct exceeds %d characters", ErrValidation, n.limits.MaxInstructLen)
	}
	return nil
}

func defaultLanguage(lang string) string {
	if lang == "" {
		return "Auto"
	}
	return lang
}
