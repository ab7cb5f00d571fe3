// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeCanceled      = 1003

	// Video/frame errors (1100-1199)
	CodeVideoNotFound     = 1100
	CodeFFmpegFailed      = 1101
	CodeNoStaticIntervals = 1102
	CodeEmptyFrames       = 1103
	CodeFrameDecode       = 1104

	// Recognition errors (1200-1299)
	CodeRecognitionFailed  = 1200
	CodeMalformedResponse  = 1201
	CodeRateLimited        = 1202
	CodeBackendUnavailable = 1203
	CodeRetriesExhausted   = 1204
	CodeUnknownProvider    = 1205

	// Matching errors (1300-1399)
	CodeMatchFailed = 1300

	// Local hint errors (1400-1499)
	CodeHintEngineMissing = 1400
	CodeHintFailed        = 1401

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match two AppErrors by code, so wrapped
// sentinels compare equal to the predefined values below.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// IsTransient reports whether a failure is worth another attempt against the
// same backend.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case CodeRateLimited, CodeBackendUnavailable, CodeMalformedResponse, CodeRecognitionFailed, CodeUnknown:
		return true
	}
	return false
}

// IsInputError reports whether err means a video cannot yield frames at
// all. Such errors end that video's track and are never retried.
func IsInputError(err error) bool {
	switch GetCode(err) {
	case CodeVideoNotFound, CodeFFmpegFailed, CodeNoStaticIntervals, CodeEmptyFrames:
		return true
	}
	return false
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "参数错误 Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "资源不存在 Resource not found")

	// Video/frames
	ErrVideoNotFound     = New(CodeVideoNotFound, "视频不存在 Video not found")
	ErrFFmpegFailed      = New(CodeFFmpegFailed, "ffmpeg执行失败 ffmpeg failed")
	ErrNoStaticIntervals = New(CodeNoStaticIntervals, "未检测到静止画面 No static intervals detected")
	ErrEmptyFrames       = New(CodeEmptyFrames, "没有可处理的帧 No frames to process")

	// Recognition
	ErrMalformedResponse  = New(CodeMalformedResponse, "响应格式错误 Malformed backend response")
	ErrRateLimited        = New(CodeRateLimited, "请求频率限制 Rate limited")
	ErrBackendUnavailable = New(CodeBackendUnavailable, "识别服务不可用 Backend unavailable")
	ErrRetriesExhausted   = New(CodeRetriesExhausted, "超过最大重试次数 Retries exhausted")
	ErrUnknownProvider    = New(CodeUnknownProvider, "未知的识别服务 Unknown recognition provider")

	// Hint
	ErrHintEngineMissing = New(CodeHintEngineMissing, "本地OCR引擎不可用 Local OCR engine unavailable")

	// Storage
	ErrDBError      = New(CodeDBError, "数据库错误 Database error")
	ErrFileNotFound = New(CodeFileNotFound, "文件不存在 File not found")
)

// GetDetail extracts the detail of the outermost AppError, or "".
func GetDetail(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return ""
}
