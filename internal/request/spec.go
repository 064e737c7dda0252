// Package request validates raw synthesis requests and converts them into
// a uniform job specification.
package request

// Mode identifies one of the four synthesis request shapes.
type Mode string

const (
	ModeCustomVoice      Mode = "custom_voice"
	ModeVoiceDesign      Mode = "voice_design"
	ModeVoiceClone       Mode = "voice_clone"
	ModeVoiceDesignClone Mode = "voice_design_clone"
)

// Spec is a normalized job specification. It is a tagged union: exactly one
// of the payload fields is non-nil, matching Mode. Immutable once built.
type Spec struct {
	Mode        Mode             `json:"mode"`
	CustomVoice *CustomVoiceSpec `json:"custom_voice,omitempty"`
	VoiceDesign *VoiceDesignSpec `json:"voice_design,omitempty"`
	VoiceClone  *VoiceCloneSpec  `json:"voice_clone,omitempty"`
	DesignClone *DesignCloneSpec `json:"design_clone,omitempty"`
}

// CustomVoiceSpec carries validated parameters for preset-speaker synthesis.
type CustomVoiceSpec struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Speaker  string `json:"speaker"`
	Instruct string `json:"instruct,omitempty"`
}

// VoiceDesignSpec carries validated parameters for natural-language voice design.
type VoiceDesignSpec struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Instruct string `json:"instruct"`
}

// VoiceCloneSpec carries validated parameters for cloning from reference audio.
// RefAudio holds the raw upload; its container has already been checked.
type VoiceCloneSpec struct {
	Text        string `json:"text"`
	Language    string `json:"language"`
	RefText     string `json:"ref_text,omitempty"`
	Instruct    string `json:"instruct,omitempty"`
	XVectorOnly bool   `json:"x_vector_only_mode"`
	RefAudio    []byte `json:"-"`
}

// DesignCloneSpec carries validated parameters for the design-then-clone
// composite. CloneTexts and CloneLanguages are parallel and equal-length.
type DesignCloneSpec struct {
	DesignText     string   `json:"design_text"`
	DesignLanguage string   `json:"design_language"`
	DesignInstruct string   `json:"design_instruct"`
	CloneTexts     []string `json:"clone_texts"`
	CloneLanguages []string `json:"clone_languages"`
}

// CustomVoiceRequest is the raw input for preset-speaker synthesis.
type CustomVoiceRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Speaker  string `json:"speaker"`
	Instruct string `json:"instruct"`
}

// VoiceDesignRequest is the raw input for natural-language voice design.
type VoiceDesignRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Instruct string `json:"instruct"`
}

// VoiceCloneRequest is the raw input for voice cloning. The reference audio
// payload travels out of band (multipart file or binary frame).
type VoiceCloneRequest struct {
	Text                string `json:"text"`
	Language            string `json:"language"`
	RefText             string `json:"ref_text"`
	Instruct            string `json:"instruct"`
	XVectorOnly         bool   `json:"x_vector_only_mode"`
	ConsentAcknowledged bool   `json:"consent_acknowledged"`
}

// VoiceDesignCloneRequest is the raw input for the design-then-clone composite.
type VoiceDesignCloneRequest struct {
	DesignText     string   `json:"design_text"`
	DesignLanguage string   `json:"design_language"`
	DesignInstruct string   `json:"design_instruct"`
	CloneTexts     []string `json:"clone_texts"`
	CloneLanguages []string `json:"clone_languages"`
}
