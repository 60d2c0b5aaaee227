package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeExtraction(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"not found", NewNotFoundError("Area revision", "rev-42"), ErrCodeNotFound},
		{"empty input", NewEmptyInputError("rev-42"), ErrCodeEmptyInput},
		{"io", NewIOError("upload script", fmt.Errorf("conn reset")), ErrCodeIO},
		{"conflict", NewDefinitionConflictError("CaseStudyXrefActivity"), ErrCodeDefinitionConflict},
		{"job failed", NewJobFailedError("failedInstructions", "ERROR: x"), ErrCodeJobFailed},
		{"poll timeout", NewPollTimeoutError(300, 10*time.Minute), ErrCodePollTimeout},
		{"relocation", NewRelocationFailedError(fmt.Errorf("quota")), ErrCodeRelocationFailed},
		{"run locked", NewRunLockedError("acct-1"), ErrCodeRunLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.True(t, IsCode(tt.err, tt.code))
		})
	}
}

func TestCodeOf_PlainAndWrappedErrors(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, CodeOf(fmt.Errorf("plain")))

	wrapped := fmt.Errorf("context: %w", NewJobFailedError("failed", ""))
	assert.Equal(t, ErrCodeJobFailed, CodeOf(wrapped))
}

func TestCodeOf_Nil(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.False(t, IsCode(nil, ErrCodeNotFound))
	assert.Nil(t, Normalize(nil))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(NewRelocationFailedError(fmt.Errorf("quota"))))
	assert.True(t, IsFatal(NewJobFailedError("failed", "")))
	assert.True(t, IsFatal(fmt.Errorf("plain")))
}

func TestJobFailedError_CarriesExcerpt(t *testing.T) {
	err := NewJobFailedError("failedInstructions", "ERROR: cannot resolve xref")
	assert.Contains(t, err.Error(), "failedInstructions")
	assert.Contains(t, err.Error(), "cannot resolve xref")
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "INPUT", GetErrorCategory(ErrCodeEmptyInput))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeRelocationFailed))
	assert.Equal(t, "ENGINE", GetErrorCategory(ErrCodePollTimeout))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeAuthentication))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeRunLocked))
}
