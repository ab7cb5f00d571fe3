package types

import "fmt"

// Track identifies which language video a frame or skill came from.
type Track string

const (
	TrackNative     Track = "native"
	TrackTranslated Track = "translated"
)

// VideoSource is one language track handed to the pipeline.
type VideoSource struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Track    Track  `json:"track"`
}

// Interval is a static stretch of video, in seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (i Interval) Midpoint() float64 {
	return (i.Start + i.End) / 2
}

func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// Frame is one still dumped from a static interval. Ordinal is the index of
// that interval within the video.
type Frame struct {
	Path    string  `json:"path"`
	Ordinal int     `json:"ordinal"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

func (f Frame) String() string {
	return fmt.Sprintf("#%d(%s)", f.Ordinal, f.Path)
}

// FrameGroup is every consecutive frame showing the same skill panel.
//
// Members holds all frames assigned to the group in temporal order.
// RecognitionFrames is the minimal scroll set sent to the recognition
// backend; it is a subset of Members and also in temporal order.
type FrameGroup struct {
	Ordinal           int     `json:"ordinal"`
	Representative    Frame   `json:"representative"`
	Members           []Frame `json:"members"`
	RecognitionFrames []Frame `json:"recognition_frames"`
	RecognitionHint   string  `json:"recognition_hint,omitempty"`
}

// SetHint records the local OCR hint. A hint is written at most once;
// later calls are ignored and report false.
func (g *FrameGroup) SetHint(hint string) bool {
	if g.RecognitionHint != "" || hint == "" {
		return false
	}
	g.RecognitionHint = hint
	return true
}

// RecognitionPaths returns the image paths to send for this group, falling
// back to the representative when no scroll set was computed.
func (g FrameGroup) RecognitionPaths() []string {
	frames := g.RecognitionFrames
	if len(frames) == 0 {
		frames = []Frame{g.Representative}
	}
	paths := make([]string, 0, len(frames))
	for _, f := range frames {
		paths = append(paths, f.Path)
	}
	return paths
}
