package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeStatusMovesForwardOnly(t *testing.T) {
	r := &Resume{ID: "r1", Status: ResumeUploaded}
	now := time.Now()

	require.NoError(t, r.Advance(ResumeParsing, now))
	require.NoError(t, r.Advance(ResumeParsed, now))
	require.NoError(t, r.Advance(ResumeAnalyzing, now))

	err := r.Advance(ResumeParsed, now)
	assert.True(t, IsKind(err, ErrInvalidState))
	err = r.Advance(ResumeAnalyzing, now)
	assert.True(t, IsKind(err, ErrInvalidState), "same status is not a forward move")

	require.NoError(t, r.Advance(ResumeAnalyzed, now))
	assert.Equal(t, ResumeAnalyzed, r.Status)
}

func TestResumeErrorReachableFromAnyStateAndFinal(t *testing.T) {
	for _, from := range []ResumeStatus{ResumeUploaded, ResumeParsing, ResumeParsed, ResumeAnalyzing, ResumeAnalyzed} {
		assert.True(t, from.CanAdvanceTo(ResumeError), "from %s", from)
	}
	assert.False(t, ResumeError.CanAdvanceTo(ResumeParsed))
	assert.False(t, ResumeError.CanAdvanceTo(ResumeError))
	assert.False(t, ResumeParsed.CanAdvanceTo("archived"))
}

func TestNewTailoredVersionClampsScore(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	v := NewTailoredVersion("generic", TailoredContent{MatchScore: 140, OptimizedText: "text"}, now)
	assert.Equal(t, 100.0, v.MatchScore)
	assert.Equal(t, 100.0, v.TailoredContent.MatchScore)
	assert.Equal(t, "text", v.OptimizedText)
	assert.NotNil(t, v.Suggestions)
	assert.Equal(t, now, v.CreatedAt)

	v = NewTailoredVersion("generic", TailoredContent{MatchScore: -3}, now)
	assert.Zero(t, v.MatchScore)
}
