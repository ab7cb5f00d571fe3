package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	// Test without cause
	err := New(CodeFFmpegFailed, "Test error")
	assert.Equal(t, "[1101] Test error", err.Error())

	// Test with cause
	cause := errors.New("underlying error")
	errWithCause := Wrap(CodeFFmpegFailed, "Test error", cause)
	assert.Contains(t, errWithCause.Error(), "underlying error")
	assert.Contains(t, errWithCause.Error(), "1101")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(CodeRecognitionFailed, "Recognition failed", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestAppError_IsMatchesSentinelByCode(t *testing.T) {
	err := fmt.Errorf("detect: %w", Wrap(CodeNoStaticIntervals, "no freeze", nil))

	assert.True(t, errors.Is(err, ErrNoStaticIntervals))
	assert.False(t, errors.Is(err, ErrEmptyFrames))
}

func TestIs(t *testing.T) {
	err := New(CodeRateLimited, "slow down")

	assert.True(t, Is(err, CodeRateLimited))
	assert.False(t, Is(err, CodeFFmpegFailed))

	regularErr := errors.New("regular error")
	assert.False(t, Is(regularErr, CodeRateLimited))
}

func TestGetCode(t *testing.T) {
	appErr := New(CodeMatchFailed, "match failed")
	assert.Equal(t, CodeMatchFailed, GetCode(appErr))

	regularErr := errors.New("regular error")
	assert.Equal(t, CodeUnknown, GetCode(regularErr))
}

func TestGetMessage(t *testing.T) {
	appErr := New(CodeFileNotFound, "文件不存在 File not found")
	assert.Equal(t, "文件不存在 File not found", GetMessage(appErr))

	regularErr := errors.New("regular error message")
	assert.Equal(t, "regular error message", GetMessage(regularErr))
}

func TestWrapWithDetail(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapWithDetail(CodeBackendUnavailable, "Backend down", "endpoint: http://localhost:11434", cause)

	assert.Equal(t, CodeBackendUnavailable, err.Code)
	assert.Equal(t, "Backend down", err.Message)
	assert.Equal(t, "endpoint: http://localhost:11434", err.Detail)
	assert.Equal(t, cause, err.Cause)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Wrap(CodeRateLimited, "429", nil)))
	assert.True(t, IsTransient(Wrap(CodeMalformedResponse, "bad json", nil)))
	assert.True(t, IsTransient(errors.New("connection reset")))
	assert.False(t, IsTransient(ErrNoStaticIntervals))
	assert.False(t, IsTransient(ErrUnknownProvider))
}

func TestPredefinedErrors(t *testing.T) {
	assert.Equal(t, CodeInvalidParams, ErrInvalidParams.Code)
	assert.Equal(t, CodeNoStaticIntervals, ErrNoStaticIntervals.Code)
	assert.Equal(t, CodeEmptyFrames, ErrEmptyFrames.Code)
	assert.Equal(t, CodeRetriesExhausted, ErrRetriesExhausted.Code)
	assert.Equal(t, CodeDBError, ErrDBError.Code)
}

func TestGetDetail(t *testing.T) {
	err := fmt.Errorf("read: %w", WrapWithDetail(CodeHintFailed, "tesseract failed", "Failed loading language 'jpn'", errors.New("exit status 1")))

	assert.Equal(t, "Failed loading language 'jpn'", GetDetail(err))
	assert.NotContains(t, err.Error(), "Failed loading language")
	assert.Empty(t, GetDetail(errors.New("plain")))
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(ErrNoStaticIntervals))
	assert.True(t, IsInputError(fmt.Errorf("detect: %w", Wrap(CodeVideoNotFound, "missing", nil))))
	assert.True(t, IsInputError(ErrEmptyFrames))
	assert.False(t, IsInputError(ErrRateLimited))
	assert.False(t, IsInputError(errors.New("plain")))
}
