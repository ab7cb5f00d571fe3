package appdirs

import (
	"path/filepath"
	"strings"
)

const (
	RunRootName    = "runs"
	FramesDirName  = "frames"
	ResultFileName = "skills.json"
	dbFileName     = "skillscan.db"
)

func RunRootFor(paths Paths) string {
	return filepath.Join(normalizeDir(paths.WorkDir, "work"), RunRootName)
}

func RunDirFor(paths Paths, runID string) string {
	return filepath.Join(RunRootFor(paths), runID)
}

// FramesDirFor is where one track's dumped frames live during a run.
func FramesDirFor(paths Paths, runID, track string) string {
	return filepath.Join(RunDirFor(paths, runID), FramesDirName, track)
}

func ResultPathFor(paths Paths, runID string) string {
	return filepath.Join(normalizeDir(paths.OutputDir, "output"), runID, ResultFileName)
}

func DBPathFor(paths Paths) string {
	return filepath.Join(normalizeDir(paths.CacheDir, "cache"), dbFileName)
}

func normalizeDir(dir, fallback string) string {
	cleaned := strings.TrimSpace(dir)
	if cleaned == "" {
		return fallback
	}
	return filepath.Clean(cleaned)
}
