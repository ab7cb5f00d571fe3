package interval

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillscan/internal/types"
	apperrors "skillscan/pkg/errors"
)

const sampleStderr = `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'native.mp4':
[freezedetect @ 0x7f] lavfi.freezedetect.freeze_start: 1.2
[freezedetect @ 0x7f] lavfi.freezedetect.freeze_duration: 2.3
[freezedetect @ 0x7f] lavfi.freezedetect.freeze_end: 3.5
frame=  300 fps=0.0 q=-0.0 size=N/A time=00:00:05.00 bitrate=N/A speed=  10x
[freezedetect @ 0x7f] lavfi.freezedetect.freeze_start: 6.04
[freezedetect @ 0x7f] lavfi.freezedetect.freeze_duration: 1.96
[freezedetect @ 0x7f] lavfi.freezedetect.freeze_end: 8
[freezedetect @ 0x7f] lavfi.freezedetect.freeze_start: 12.5
`

func TestParseFreezeDetect(t *testing.T) {
	got := ParseFreezeDetect(sampleStderr)
	assert.Equal(t, []types.Interval{
		{Start: 1.2, End: 3.5},
		{Start: 6.04, End: 8},
	}, got)
}

func TestParseFreezeDetectIgnoresOrphanEnd(t *testing.T) {
	got := ParseFreezeDetect("lavfi.freezedetect.freeze_end: 2.0\nnothing here\n")
	assert.Empty(t, got)
}

func writeVideo(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "native.mp4")
	require.NoError(t, os.WriteFile(p, []byte("fake"), 0o644))
	return p
}

func pngArg(cmd *exec.Cmd) string {
	for _, a := range cmd.Args {
		if strings.HasSuffix(a, ".png") {
			return a
		}
	}
	return ""
}

func TestDetectBuildsFreezedetectCommand(t *testing.T) {
	video := writeVideo(t)
	var args []string
	d := NewDetector(Config{FFmpegPath: "/opt/ffmpeg/bin/ffmpeg", Noise: 0.003, MinDuration: 1.5}).
		WithRunner(func(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
			args = cmd.Args
			return []byte(sampleStderr), nil
		})

	got, err := d.Detect(context.Background(), video)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NotEmpty(t, args)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", args[0])
	assert.Contains(t, args, video)
	assert.Contains(t, args, "freezedetect=n=0.003:d=1.5")
	assert.Contains(t, args, "null")
}

func TestDetectNoIntervals(t *testing.T) {
	d := NewDetector(DefaultConfig()).WithRunner(func(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
		return []byte("frame=10 fps=0.0\n"), nil
	})

	_, err := d.Detect(context.Background(), writeVideo(t))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNoStaticIntervals, apperrors.GetCode(err))
}

func TestDetectMissingVideo(t *testing.T) {
	d := NewDetector(DefaultConfig())
	_, err := d.Detect(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	assert.Equal(t, apperrors.CodeVideoNotFound, apperrors.GetCode(err))
}

func TestDetectFFmpegFailure(t *testing.T) {
	d := NewDetector(DefaultConfig()).WithRunner(func(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
		return []byte("moov atom not found"), errors.New("exit status 1")
	})

	_, err := d.Detect(context.Background(), writeVideo(t))
	assert.Equal(t, apperrors.CodeFFmpegFailed, apperrors.GetCode(err))
}

func TestExtractFramesSkipsFailedDumps(t *testing.T) {
	video := writeVideo(t)
	out := filepath.Join(t.TempDir(), "frames")
	intervals := []types.Interval{{Start: 0, End: 2}, {Start: 3, End: 5}, {Start: 6, End: 10}}

	var seeks []string
	d := NewDetector(DefaultConfig()).WithRunner(func(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
		for i, a := range cmd.Args {
			if a == "-ss" && i+1 < len(cmd.Args) {
				seeks = append(seeks, cmd.Args[i+1])
			}
		}
		p := pngArg(cmd)
		if strings.HasSuffix(p, "frame_00001.png") {
			return []byte("decode error"), errors.New("exit status 1")
		}
		return nil, os.WriteFile(p, []byte("png"), 0o644)
	})

	frames, err := d.ExtractFrames(context.Background(), video, intervals, out)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, []string{"1", "4", "8"}, seeks)
	assert.Equal(t, 0, frames[0].Ordinal)
	assert.Equal(t, filepath.Join(out, "frame_00000.png"), frames[0].Path)
	assert.Equal(t, 2, frames[1].Ordinal)
	assert.Equal(t, 6.0, frames[1].Start)
	assert.Equal(t, 10.0, frames[1].End)
}

func TestExtractFramesAllFailed(t *testing.T) {
	d := NewDetector(DefaultConfig()).WithRunner(func(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
		return nil, nil
	})

	_, err := d.ExtractFrames(context.Background(), writeVideo(t), []types.Interval{{Start: 0, End: 2}}, t.TempDir())
	assert.Equal(t, apperrors.CodeEmptyFrames, apperrors.GetCode(err))
}

func TestExtractFramesHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDetector(DefaultConfig()).WithRunner(func(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
		t.Fatal("runner must not be called after cancellation")
		return nil, nil
	})
	_, err := d.ExtractFrames(ctx, writeVideo(t), []types.Interval{{Start: 0, End: 2}}, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClearFrames(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "frame_00003.png")
	keep := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(stale, nil, 0o644))
	require.NoError(t, os.WriteFile(keep, nil, 0o644))

	require.NoError(t, ClearFrames(dir))
	assert.NoFileExists(t, stale)
	assert.FileExists(t, keep)
	assert.NoError(t, ClearFrames(filepath.Join(dir, "absent")))
}
