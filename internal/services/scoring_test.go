package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/stretchr/testify/assert"
)

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name            string
		obtained, total float64
		passing         float64
		wantPercentage  float64
		wantPassed      bool
	}{
		{"half", 5, 10, 6, 50, false},
		{"exact threshold", 6, 10, 6, 60, true},
		{"rounds down", 1, 3, 1, 33.33, true},
		{"rounds up", 2, 3, 3, 66.67, false},
		{"zero", 0, 7, 1, 0, false},
		{"full", 7.5, 7.5, 7.5, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := computeScore(tt.obtained, tt.total, tt.passing)
			assert.Equal(t, tt.wantPercentage, sc.Percentage)
			assert.Equal(t, tt.wantPassed, sc.Passed)
			assert.Equal(t, tt.obtained, sc.Obtained)
			assert.Equal(t, tt.total, sc.Total)
		})
	}
}

func TestElapsedSeconds(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 90, elapsedSeconds(start, start.Add(90*time.Second+999*time.Millisecond)))
	assert.Equal(t, 0, elapsedSeconds(start, start.Add(-time.Minute)))
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{ErrSubmissionNotFound, KindNotFound},
		{fmt.Errorf("wrapped: %w", ErrAttemptLimitExceeded), KindAttemptsExceeded},
		{NewPermissionError("u", 1, "submission", "submit", ErrSubmissionNotOwned), KindForbidden},
		{ValidationErrors{*NewValidationError("title", "is required", nil)}, KindValidation},
		{fmt.Errorf("lock: %w", cache.ErrLockTimeout), KindUnavailable},
		{errors.New("connection reset"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}
