package catalog

import (
	"fmt"
	"strings"
)

type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
)

type Mode string

const (
	ModeSpeaking  Mode = "Speaking"
	ModeListening Mode = "Listening"
)

type Language string

const (
	LangFR Language = "FR"
	LangEN Language = "EN"
	LangDE Language = "DE"
)

// Section is one paper of exam content. Immutable once seeded.
type Section struct {
	ID            string   `json:"id"`
	Level         Level    `json:"level"`
	Mode          Mode     `json:"mode"`
	Language      Language `json:"language"`
	SequenceIndex int      `json:"sequence_index"`
	Title         string   `json:"title"`
	ContentRef    string   `json:"content_ref,omitempty"`
}

// Ref returns the blob key of the section body, falling back to the
// conventional <level>/<mode>/<id>.json layout.
func (s Section) Ref() string {
	if s.ContentRef != "" {
		return s.ContentRef
	}
	return DefaultContentRef(s.Level, s.Mode, s.ID)
}

func DefaultContentRef(level Level, mode Mode, id string) string {
	return fmt.Sprintf("%s/%s/%s.json", strings.ToLower(string(level)), strings.ToLower(string(mode)), id)
}

func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelA1:
		return LevelA1, nil
	case LevelA2:
		return LevelA2, nil
	case LevelB1:
		return LevelB1, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "speaking":
		return ModeSpeaking, nil
	case "listening":
		return ModeListening, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

func ParseLanguage(s string) (Language, error) {
	switch Language(strings.ToUpper(strings.TrimSpace(s))) {
	case LangFR:
		return LangFR, nil
	case LangEN:
		return LangEN, nil
	case LangDE:
		return LangDE, nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}
