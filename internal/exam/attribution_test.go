package exam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fideprep/fideprep-api/internal/catalog"
)

func TestNormalizeQuestionID(t *testing.T) {
	assert.Equal(t, "q1", NormalizeQuestionID("A2_q1", catalog.LevelA2))
	assert.Equal(t, "q1", NormalizeQuestionID("a2_q1", catalog.LevelA2))
	assert.Equal(t, "A1_q1", NormalizeQuestionID("A1_q1", catalog.LevelA2))
	assert.Equal(t, "q1", NormalizeQuestionID("q1", catalog.LevelB1))
	assert.Equal(t, "A2_", NormalizeQuestionID("A2_", ""))

	assert.Equal(t, []string{"A2_q1", "q1"}, QuestionIDCandidates("A2_q1", catalog.LevelA2))
	assert.Equal(t, []string{"q1", "A2_q1"}, QuestionIDCandidates("q1", catalog.LevelA2))
	assert.Equal(t, []string{"a2_q1", "q1", "A2_q1"}, QuestionIDCandidates("a2_q1", catalog.LevelA2))
}

func TestLatestAnswersPicksNewestAndFlagsStale(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	answers := []Answer{
		{ID: 1, AttemptNumber: 1, Level: catalog.LevelA2, Mode: catalog.ModeSpeaking, QuestionID: "q1", AnswerText: "old", CreatedAt: t0},
		{ID: 2, AttemptNumber: 2, Level: catalog.LevelA2, Mode: catalog.ModeSpeaking, QuestionID: "A2_q1", AnswerText: "new", CreatedAt: t0.Add(time.Minute)},
		{ID: 3, AttemptNumber: 1, Level: catalog.LevelA2, Mode: catalog.ModeSpeaking, QuestionID: "q2", AnswerText: "kept", CreatedAt: t0},
		{ID: 4, AttemptNumber: 2, Level: catalog.LevelA2, Mode: catalog.ModeListening, QuestionID: "q1", AnswerText: "listen", CreatedAt: t0},
		// same instant: the later row wins
		{ID: 5, AttemptNumber: 2, Level: catalog.LevelA1, Mode: catalog.ModeSpeaking, QuestionID: "q1", AnswerText: "a", CreatedAt: t0},
		{ID: 6, AttemptNumber: 2, Level: catalog.LevelA1, Mode: catalog.ModeSpeaking, QuestionID: "q1", AnswerText: "b", CreatedAt: t0},
	}
	got := LatestAnswers(answers, 2)
	require.Len(t, got, 4)

	assert.Equal(t, "new", got[0].AnswerText)
	assert.Equal(t, "q1", got[0].QuestionID)
	assert.False(t, got[0].Stale)

	assert.Equal(t, "kept", got[1].AnswerText)
	assert.True(t, got[1].Stale)

	assert.Equal(t, "b", got[2].AnswerText)
	assert.Equal(t, catalog.LevelA1, got[2].Level)

	assert.Equal(t, "listen", got[3].AnswerText)
	assert.Equal(t, catalog.ModeListening, got[3].Mode)
}

func TestPathMarshalsUndecidedAsNull(t *testing.T) {
	b, err := PathNone.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
	b, err = PathB1.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"B1"`, string(b))
}
