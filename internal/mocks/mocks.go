// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"skillscan/internal/types"
)

// MockCompleter is a mock implementation of types.Completer
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// MockIntervalDetector is a mock implementation of types.IntervalDetector
type MockIntervalDetector struct {
	mock.Mock
}

func (m *MockIntervalDetector) Detect(ctx context.Context, videoPath string) ([]types.Interval, error) {
	args := m.Called(ctx, videoPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Interval), args.Error(1)
}

func (m *MockIntervalDetector) ExtractFrames(ctx context.Context, videoPath string, intervals []types.Interval, outDir string) ([]types.Frame, error) {
	args := m.Called(ctx, videoPath, intervals, outDir)
	if fn, ok := args.Get(0).(func(context.Context, string, []types.Interval, string) ([]types.Frame, error)); ok {
		return fn(ctx, videoPath, intervals, outDir)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Frame), args.Error(1)
}

// MockBackend is a mock implementation of types.Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) RecognizeNative(ctx context.Context, groups []types.FrameGroup, onlyNew bool) ([]types.ExtractedSkill, error) {
	args := m.Called(ctx, groups, onlyNew)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ExtractedSkill), args.Error(1)
}

func (m *MockBackend) RecognizeTranslated(ctx context.Context, groups []types.FrameGroup, onlyNew bool) ([]types.ExtractedSkill, error) {
	args := m.Called(ctx, groups, onlyNew)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ExtractedSkill), args.Error(1)
}

func (m *MockBackend) MatchNativeToTranslated(ctx context.Context, native, translated []types.ExtractedSkill) (types.MatchResult, error) {
	args := m.Called(ctx, native, translated)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(types.MatchResult), args.Error(1)
}

// MockHintEngine is a mock implementation of types.HintEngine
type MockHintEngine struct {
	mock.Mock
}

func (m *MockHintEngine) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockHintEngine) Read(ctx context.Context, image []byte, lang string) (string, error) {
	args := m.Called(ctx, image, lang)
	return args.String(0), args.Error(1)
}
