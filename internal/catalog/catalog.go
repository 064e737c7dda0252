// Package catalog provides read-only speaker, language, and model metadata.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type Speaker struct {
	Name        string   `json:"name"`
	Languages   []string `json:"languages"`
	Description string   `json:"description"`
}

type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Model struct {
	Name        string `json:"name"`
	Variant     string `json:"variant"`
	Description string `json:"description"`
}

type speakerManifest struct {
	Speakers []Speaker `json:"speakers"`
}

// Catalog serves the metadata consumed for validation and by the metadata
// endpoints. The speaker set may be overridden by a JSON manifest file; the
// language and model lists are fixed.
type Catalog struct {
	speakers []Speaker
	byName   map[string]Speaker
}

// New returns a Catalog backed by the built-in speaker set.
func New() *Catalog {
	return newCatalog(defaultSpeakers())
}

// Load reads a speaker manifest from path and returns a Catalog backed by it.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return nil, errors.New("manifest path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read speaker manifest: %w", err)
	}

	var manifest speakerManifest

	err = json.Unmarshal(data, &manifest)
	if err != nil {
		return nil, fmt.Errorf("decode speaker manifest: %w", err)
	}

	if len(manifest.Speakers) == 0 {
		return nil, errors.New("speaker manifest contains no speakers")
	}

	for _, s := range manifest.Speakers {
		if s.Name == "" {
			return nil, errors.New("speaker manifest contains empty name")
		}
	}

	return newCatalog(manifest.Speakers), nil
}

func newCatalog(speakers []Speaker) *Catalog {
	c := &Catalog{
		speakers: append([]Speaker(nil), speakers...),
		byName:   make(map[string]Speaker, len(speakers)),
	}
	for _, s := range speakers {
		c.byName[s.Name] = s
	}
	return c
}

// Speakers returns the speaker list in manifest order.
func (c *Catalog) Speakers() []Speaker {
	return append([]Speaker(nil), c.speakers...)
}

// HasSpeaker reports whether name is a known preset speaker.
func (c *Catalog) HasSpeaker(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Languages returns the supported language list.
func (c *Catalog) Languages() []Language {
	return append([]Language(nil), supportedLanguages...)
}

// Models returns the model variants behind the four synthesis modes.
func (c *Catalog) Models() []Model {
	return append([]Model(nil), modelVariants...)
}

var supportedLanguages = []Language{
	{Code: "zh", Name: "Chinese"},
	{Code: "en", Name: "English"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "de", Name: "German"},
	{Code: "fr", Name: "French"},
	{Code: "ru", Name: "Russian"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "es", Name: "Spanish"},
	{Code: "it", Name: "Italian"},
}

var modelVariants = []Model{
	{
		Name:        "Qwen3-TTS-12Hz-1.7B-CustomVoice",
		Variant:     "custom_voice",
		Description: "Preset speaker voices with optional instruction control.",
	},
	{
		Name:        "Qwen3-TTS-12Hz-1.7B-VoiceDesign",
		Variant:     "voice_design",
		Description: "Natural-language voice design.",
	},
	{
		Name:        "Qwen3-TTS-12Hz-1.7B-Base",
		Variant:     "base",
		Description: "Voice cloning from reference audio.",
	},
	{
		Name:        "Qwen3-TTS-Tokenizer-12Hz",
		Variant:     "tokenizer",
		Description: "Audio tokenizer for encode/decode operations.",
	},
}

func defaultSpeakers() []Speaker {
	return []Speaker{
		{Name: "Vivian", Languages: []string{"Chinese", "English"}, Description: "Female, warm and expressive. Native Chinese, fluent English."},
		{Name: "Ryan", Languages: []string{"English", "Chinese"}, Description: "Male, clear and confident voice. Native English speaker."},
		{Name: "Aria", Languages: []string{"English"}, Description: "Female, professional and calm tone. Great for narration."},
		{Name: "Oliver", Languages: []string{"English"}, Description: "Male, friendly and conversational voice."},
		{Name: "Bella", Languages: []string{"Chinese"}, Description: "Female, youthful and energetic voice. Native Chinese speaker."},
		{Name: "Ethan", Languages: []string{"Chinese", "English"}, Description: "Male, deep and authoritative voice."},
		{Name: "Claire", Languages: []string{"English", "French"}, Description: "Female, elegant and articulate voice."},
		{Name: "Lucas", Languages: []string{"English", "German"}, Description: "Male, warm and steady voice."},
		{Name: "Sophia", Languages: []string{"Japanese", "English"}, Description: "Female, gentle and melodic voice."},
		{Name: "Leo", Languages: []string{"Korean", "English"}, Description: "Male, dynamic and expressive voice."},
	}
}
