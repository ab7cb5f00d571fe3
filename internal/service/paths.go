package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"skillscan/internal/appdirs"
	"skillscan/internal/types"
)

func validRunID(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("run id is empty")
	}
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return fmt.Errorf("run id %q is not a plain name", runID)
	}
	return nil
}

func (s *Service) runDir(runID string) (string, error) {
	if err := validRunID(runID); err != nil {
		return "", err
	}
	return appdirs.RunDirFor(s.Paths, runID), nil
}

func (s *Service) framesDir(runID string, track types.Track) (string, error) {
	if err := validRunID(runID); err != nil {
		return "", err
	}
	return appdirs.FramesDirFor(s.Paths, runID, string(track)), nil
}

func (s *Service) resultPath(runID string) (string, error) {
	if err := validRunID(runID); err != nil {
		return "", err
	}
	return appdirs.ResultPathFor(s.Paths, runID), nil
}

// outputRelPath returns localPath relative to the output root, slash
// separated, refusing anything outside it.
func (s *Service) outputRelPath(localPath string) (string, error) {
	outputRoot := filepath.Clean(s.Paths.OutputDir)
	relPath, err := filepath.Rel(outputRoot, filepath.Clean(localPath))
	if err != nil {
		return "", err
	}
	if relPath == "." || relPath == "" {
		return "", fmt.Errorf("result path %q is not a file path", localPath)
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("result path %q is outside output root %q", localPath, outputRoot)
	}
	return filepath.ToSlash(relPath), nil
}
