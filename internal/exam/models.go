package exam

import (
	"encoding/json"
	"time"

	"github.com/fideprep/fideprep-api/internal/catalog"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Path is the branch taken after A2. The zero value means undecided and
// serializes as null.
type Path string

const (
	PathNone Path = ""
	PathA1   Path = "A1"
	PathB1   Path = "B1"
)

func (p Path) MarshalJSON() ([]byte, error) {
	if p == PathNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// Level maps the branch onto the catalog level it selects.
func (p Path) Level() catalog.Level { return catalog.Level(p) }

// Session is one user's mock exam ("MockExam"). Empty section references
// mean unassigned.
type Session struct {
	ID           int64            `json:"id"`
	UserID       string           `json:"userId"`
	Status       Status           `json:"status"`
	Attempt      int              `json:"attempt"`
	SelectedPath Path             `json:"selectedPath"`
	Language     catalog.Language `json:"language"`

	SpeakingA1  string `json:"speakingA1Id,omitempty"`
	SpeakingA2  string `json:"speakingA2Id,omitempty"`
	SpeakingB1  string `json:"speakingB1Id,omitempty"`
	ListeningA1 string `json:"listeningA1Id,omitempty"`
	ListeningA2 string `json:"listeningA2Id,omitempty"`
	ListeningB1 string `json:"listeningB1Id,omitempty"`

	B1Option1 string `json:"speakingB1Option1Id,omitempty"`
	B1Option2 string `json:"speakingB1Option2Id,omitempty"`

	Version   int       `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SectionRef returns the section assigned for level/mode, or "".
func (s Session) SectionRef(level catalog.Level, mode catalog.Mode) string {
	if p := s.refField(level, mode); p != nil {
		return *p
	}
	return ""
}

func (s *Session) setSectionRef(level catalog.Level, mode catalog.Mode, id string) {
	if p := s.refField(level, mode); p != nil {
		*p = id
	}
}

func (s *Session) refField(level catalog.Level, mode catalog.Mode) *string {
	switch mode {
	case catalog.ModeSpeaking:
		switch level {
		case catalog.LevelA1:
			return &s.SpeakingA1
		case catalog.LevelA2:
			return &s.SpeakingA2
		case catalog.LevelB1:
			return &s.SpeakingB1
		}
	case catalog.ModeListening:
		switch level {
		case catalog.LevelA1:
			return &s.ListeningA1
		case catalog.LevelA2:
			return &s.ListeningA2
		case catalog.LevelB1:
			return &s.ListeningB1
		}
	}
	return nil
}

// hasOptions reports whether both B1 topic options are persisted.
func (s Session) hasOptions() bool {
	return s.B1Option1 != "" && s.B1Option2 != ""
}

// Answer is one submission. Rows are never updated in place.
type Answer struct {
	ID            int64         `json:"id"`
	ExamID        int64         `json:"examId"`
	AttemptNumber int           `json:"attemptNumber"`
	UserID        string        `json:"-"`
	Level         catalog.Level `json:"sectionType"`
	Mode          catalog.Mode  `json:"mode"`
	SectionID     string        `json:"sectionId"`
	QuestionID    string        `json:"questionId"`
	AnswerText    string        `json:"answerText"`
	AudioRef      string        `json:"audioUrl,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// AttributedAnswer is the authoritative answer for one question.
type AttributedAnswer struct {
	Answer
	Stale bool `json:"isOldAttempt"`
}
