package exam

import "github.com/fideprep/fideprep-api/internal/catalog"

// SectionBundle pairs a section body with where it sits in the exam.
type SectionBundle struct {
	Level   catalog.Level   `json:"level"`
	Mode    catalog.Mode    `json:"type"`
	Section catalog.Content `json:"section"`
}

type StartResult struct {
	ExamID       int64              `json:"examId"`
	Attempt      int                `json:"attempt"`
	Resumed      bool               `json:"resumed,omitempty"`
	AlreadySeen  bool               `json:"alreadySeen"`
	SelectedPath Path               `json:"selectedPath"`
	Sections     []SectionBundle    `json:"sections"`
	Answers      []AttributedAnswer `json:"answers,omitempty"`
}

type TopicOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type TopicSelection struct {
	Title   string        `json:"title"`
	Options []TopicOption `json:"options"`
}

type DecisionResult struct {
	ExamID         int64           `json:"examId"`
	Section        catalog.Level   `json:"section"`
	SelectedPath   Path            `json:"selectedPath"`
	Sections       []SectionBundle `json:"sections,omitempty"`
	TopicSelection *TopicSelection `json:"topicSelection,omitempty"`
}

// Detail is a session with its sections and authoritative answers.
type Detail struct {
	Exam     Session            `json:"exam"`
	Sections []SectionBundle    `json:"sections"`
	Answers  []AttributedAnswer `json:"answers"`
}
