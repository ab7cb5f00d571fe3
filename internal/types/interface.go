package types

import "context"

type ResponseFormat int

const (
	FormatText ResponseFormat = iota
	FormatObject
	FormatArray
)

// Image is one encoded frame attached to a completion request.
type Image struct {
	Name string
	MIME string
	Data []byte
}

type CompletionRequest struct {
	System    string
	Prompt    string
	Images    []Image
	Format    ResponseFormat
	Schema    map[string]any // JSON schema for transports that support constrained decoding
	MaxTokens int
}

// Completer is a single model call: text plus optional images in, text out.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Backend turns frame groups into skill records and reconciles both tracks.
// The returned error is reserved for cancellation; per-group failures are
// reported as synthetic error records.
type Backend interface {
	RecognizeNative(ctx context.Context, groups []FrameGroup, onlyNew bool) ([]ExtractedSkill, error)
	RecognizeTranslated(ctx context.Context, groups []FrameGroup, onlyNew bool) ([]ExtractedSkill, error)
	MatchNativeToTranslated(ctx context.Context, native, translated []ExtractedSkill) (MatchResult, error)
}

// IntervalDetector finds static intervals and dumps one frame per interval.
type IntervalDetector interface {
	Detect(ctx context.Context, videoPath string) ([]Interval, error)
	ExtractFrames(ctx context.Context, videoPath string, intervals []Interval, outDir string) ([]Frame, error)
}

// Normalizer is the injected text normalisation step applied to recognised
// names and description lines.
type Normalizer func(string) string

func IdentityNormalizer(s string) string { return s }

// HintEngine is a local text recogniser used for the optional hint pre-pass.
// image is an encoded PNG; lang is an ISO 639-1 code such as "ja" or "en".
type HintEngine interface {
	Name() string
	Read(ctx context.Context, image []byte, lang string) (string, error)
}
