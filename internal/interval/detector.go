package interval

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
	"skillscan/pkg/util"
)

const framePattern = "frame_%05d.png"

type Config struct {
	FFmpegPath  string
	Noise       float64
	MinDuration float64
}

func DefaultConfig() Config {
	return Config{FFmpegPath: "ffmpeg", Noise: 0.003, MinDuration: 1.5}
}

// CommandRunner runs a compiled ffmpeg command and returns its stderr.
type CommandRunner func(ctx context.Context, cmd *exec.Cmd) ([]byte, error)

// Detector finds static intervals with ffmpeg's freezedetect filter and dumps
// the midpoint frame of each one.
type Detector struct {
	cfg Config
	run CommandRunner
}

func NewDetector(cfg Config) *Detector {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &Detector{cfg: cfg, run: runCommand}
}

// WithRunner swaps the command runner, mainly for tests.
func (d *Detector) WithRunner(run CommandRunner) *Detector {
	d.run = run
	return d
}

var (
	freezeStartRe = regexp.MustCompile(`freeze_start:\s*([\d.]+)`)
	freezeEndRe   = regexp.MustCompile(`freeze_end:\s*([\d.]+)`)
)

func (d *Detector) Detect(ctx context.Context, videoPath string) ([]types.Interval, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, apperrors.WrapWithDetail(apperrors.CodeVideoNotFound, "video not found", videoPath, err)
	}

	filter := fmt.Sprintf("freezedetect=n=%s:d=%s", formatFloat(d.cfg.Noise), formatFloat(d.cfg.MinDuration))
	cmd := d.compile(ffmpeg.Input(videoPath).
		Output("-", ffmpeg.KwArgs{"vf": filter, "f": "null"}).
		GlobalArgs("-hide_banner"))

	log.GetLogger().Info("detecting static intervals",
		zap.String("video", videoPath),
		zap.Float64("min_duration", d.cfg.MinDuration),
		zap.Float64("noise", d.cfg.Noise))

	stderr, err := d.run(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.WrapWithDetail(apperrors.CodeFFmpegFailed, "freezedetect failed", util.Truncate(string(stderr), 500), err)
	}

	intervals := ParseFreezeDetect(string(stderr))
	log.GetLogger().Info("static intervals detected",
		zap.Int("count", len(intervals)),
		zap.Float64("static_seconds", lo.SumBy(intervals, types.Interval.Duration)))
	if len(intervals) == 0 {
		return nil, apperrors.WrapWithDetail(apperrors.CodeNoStaticIntervals, "no static intervals detected", videoPath, nil)
	}
	return intervals, nil
}

// ExtractFrames writes one PNG per interval, taken at its midpoint. Frame
// ordinals are interval indexes; an interval whose dump fails is skipped.
func (d *Detector) ExtractFrames(ctx context.Context, videoPath string, intervals []types.Interval, outDir string) ([]types.Frame, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "create frames dir failed", err)
	}

	frames := make([]types.Frame, 0, len(intervals))
	for i, iv := range intervals {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outPath := filepath.Join(outDir, fmt.Sprintf(framePattern, i))
		cmd := d.compile(ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": formatFloat(iv.Midpoint())}).
			Output(outPath, ffmpeg.KwArgs{"frames:v": 1, "q:v": 2}).
			OverWriteOutput().
			GlobalArgs("-hide_banner", "-loglevel", "error"))

		stderr, err := d.run(ctx, cmd)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.GetLogger().Warn("frame dump failed, interval skipped",
				zap.Int("interval", i),
				zap.String("stderr", util.Truncate(string(stderr), 300)),
				zap.Error(err))
			continue
		}
		if _, err = os.Stat(outPath); err != nil {
			log.GetLogger().Warn("frame dump produced no file, interval skipped", zap.Int("interval", i), zap.String("path", outPath))
			continue
		}

		frames = append(frames, types.Frame{Path: outPath, Ordinal: i, Start: iv.Start, End: iv.End})
	}

	log.GetLogger().Info("frames extracted", zap.Int("count", len(frames)), zap.String("dir", outDir))
	if len(frames) == 0 {
		return nil, apperrors.WrapWithDetail(apperrors.CodeEmptyFrames, "no frames extracted", videoPath, nil)
	}
	return frames, nil
}

// ClearFrames removes previously dumped frame_*.png files.
func ClearFrames(dir string) error {
	old, err := filepath.Glob(filepath.Join(dir, "frame_*.png"))
	if err != nil {
		return err
	}
	for _, p := range old {
		if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// ParseFreezeDetect pairs freeze_start/freeze_end lines from ffmpeg stderr.
// A start with no matching end (freeze running to the end of the video) is
// dropped.
func ParseFreezeDetect(stderr string) []types.Interval {
	var intervals []types.Interval
	var start *float64

	for _, line := range strings.Split(stderr, "\n") {
		if m := freezeStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				start = &v
			}
			continue
		}
		if start == nil {
			continue
		}
		if m := freezeEndRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				intervals = append(intervals, types.Interval{Start: *start, End: v})
				start = nil
			}
		}
	}
	return intervals
}

func (d *Detector) compile(stream *ffmpeg.Stream) *exec.Cmd {
	cmd := stream.Compile()
	if d.cfg.FFmpegPath != "" && d.cfg.FFmpegPath != "ffmpeg" {
		cmd.Path = d.cfg.FFmpegPath
		if len(cmd.Args) > 0 {
			cmd.Args[0] = d.cfg.FFmpegPath
		}
	}
	return cmd
}

func runCommand(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return stderr.Bytes(), ctx.Err()
	case err := <-done:
		return stderr.Bytes(), err
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
