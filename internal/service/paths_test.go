package service

import (
	"path/filepath"
	"strings"
	"testing"

	"skillscan/internal/appdirs"
	"skillscan/internal/types"
)

func pathsService(t *testing.T) (*Service, string) {
	t.Helper()
	tempDir := t.TempDir()
	return &Service{Paths: appdirs.Paths{
		WorkDir:   filepath.Join(tempDir, "work-root"),
		OutputDir: filepath.Join(tempDir, "output-root"),
	}}, tempDir
}

func TestFramesDirUsesWorkDir(t *testing.T) {
	svc, tempDir := pathsService(t)

	got, err := svc.framesDir("run-001", types.TrackTranslated)
	if err != nil {
		t.Fatalf("framesDir() returned error: %v", err)
	}

	want := filepath.Join(tempDir, "work-root", "runs", "run-001", "frames", "translated")
	if got != want {
		t.Fatalf("framesDir() = %q, want %q", got, want)
	}
}

func TestRunDirRejectsBadIDs(t *testing.T) {
	svc, _ := pathsService(t)
	for _, id := range []string{"", "  ", "..", "a/b", `a\b`} {
		if _, err := svc.runDir(id); err == nil {
			t.Fatalf("runDir(%q) returned nil error", id)
		}
	}
}

func TestOutputRelPath(t *testing.T) {
	svc, tempDir := pathsService(t)

	resultPath, err := svc.resultPath("run-001")
	if err != nil {
		t.Fatalf("resultPath() returned error: %v", err)
	}
	got, err := svc.outputRelPath(resultPath)
	if err != nil {
		t.Fatalf("outputRelPath() returned error: %v", err)
	}

	want := "run-001/skills.json"
	if got != want {
		t.Fatalf("outputRelPath() = %q, want %q", got, want)
	}

	_, err = svc.outputRelPath(filepath.Join(tempDir, "elsewhere", "skills.json"))
	if err == nil {
		t.Fatal("outputRelPath() returned nil error for path outside output root")
	}
	if !strings.Contains(err.Error(), "outside output root") {
		t.Fatalf("outputRelPath() error = %q, want containing %q", err.Error(), "outside output root")
	}
}
