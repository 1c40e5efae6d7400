package exam

import (
	"sort"
	"strings"

	"github.com/fideprep/fideprep-api/internal/catalog"
)

// NormalizeQuestionID strips a redundant "<LEVEL>_" prefix, case-insensitively.
func NormalizeQuestionID(raw string, level catalog.Level) string {
	if level == "" {
		return raw
	}
	prefix := string(level) + "_"
	if len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		return raw[len(prefix):]
	}
	return raw
}

// QuestionIDCandidates lists every stored form a question id may have taken.
func QuestionIDCandidates(raw string, level catalog.Level) []string {
	norm := NormalizeQuestionID(raw, level)
	out := []string{raw}
	for _, c := range []string{norm, string(level) + "_" + norm} {
		dup := false
		for _, o := range out {
			if o == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// LatestAnswers keeps the newest submission per (level, mode, question) and
// flags winners from an earlier attempt as stale.
func LatestAnswers(answers []Answer, currentAttempt int) []AttributedAnswer {
	type key struct {
		level catalog.Level
		mode  catalog.Mode
		qid   string
	}
	latest := make(map[key]Answer, len(answers))
	for _, a := range answers {
		a.QuestionID = NormalizeQuestionID(a.QuestionID, a.Level)
		k := key{a.Level, a.Mode, a.QuestionID}
		cur, ok := latest[k]
		if !ok || newer(a, cur) {
			latest[k] = a
		}
	}

	out := make([]AttributedAnswer, 0, len(latest))
	for _, a := range latest {
		out = append(out, AttributedAnswer{Answer: a, Stale: a.AttemptNumber != currentAttempt})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Mode != b.Mode {
			return a.Mode > b.Mode // Speaking before Listening
		}
		if a.Level != b.Level {
			return levelRank(a.Level) < levelRank(b.Level)
		}
		return a.QuestionID < b.QuestionID
	})
	return out
}

// newer orders by submission time; ids break ties for same-instant rows.
func newer(a, b Answer) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// levelRank orders sections the way the exam runs: A2 first, then the branch.
func levelRank(l catalog.Level) int {
	switch l {
	case catalog.LevelA2:
		return 0
	case catalog.LevelA1:
		return 1
	case catalog.LevelB1:
		return 2
	}
	return 3
}
