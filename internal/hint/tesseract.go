// Package hint runs a local text recogniser over each group's skill panel
// and stores the result as an unverified hint for the vision model.
package hint

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"skillscan/config"
	"skillscan/internal/deps"
	"skillscan/internal/types"
	apperrors "skillscan/pkg/errors"
	"skillscan/pkg/util"
)

var tesseractLangs = map[string]string{
	"ja": "jpn",
	"en": "eng",
}

// TesseractEngine pipes a PNG through the tesseract CLI.
type TesseractEngine struct {
	path string
	run  func(cmd *exec.Cmd) error
}

var _ types.HintEngine = (*TesseractEngine)(nil)

func NewTesseractEngine(path string) *TesseractEngine {
	if path == "" {
		path = "tesseract"
	}
	return &TesseractEngine{path: path, run: (*exec.Cmd).Run}
}

func (e *TesseractEngine) Name() string { return config.HintEngineTesseract }

func (e *TesseractEngine) Read(ctx context.Context, image []byte, lang string) (string, error) {
	code, ok := tesseractLangs[lang]
	if !ok {
		code = "jpn"
	}

	cmd := exec.CommandContext(ctx, e.path, "stdin", "stdout", "-l", code)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(image)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := e.run(cmd); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperrors.WrapWithDetail(apperrors.CodeHintFailed, "tesseract failed",
			util.Truncate(strings.TrimSpace(stderr.String()), 512), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// ResolveEngine maps the configured engine name to an implementation. A nil
// engine with a nil error means the pre-pass is off: either "none", or "auto"
// without a usable tesseract binary.
func ResolveEngine(engine, tesseractPath string, resolver deps.PathResolver) (types.HintEngine, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", config.HintEngineNone:
		return nil, nil
	case config.HintEngineAuto, config.HintEngineTesseract:
	default:
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "unsupported hint engine", engine, nil)
	}

	specs := deps.BuildDependencyInventory("", tesseractPath, engine)
	var spec deps.DependencySpec
	for _, s := range specs {
		if s.ID == deps.DependencyIDTesseract {
			spec = s
		}
	}
	state := resolver.Resolve(spec)
	if state.Status != deps.DependencyStatusOK {
		if spec.Tier == deps.DependencyTierMust {
			return nil, apperrors.WrapWithDetail(apperrors.CodeHintEngineMissing, apperrors.GetMessage(apperrors.ErrHintEngineMissing),
				fmt.Sprintf("%s: %s", state.Name, state.Error), nil)
		}
		return nil, nil
	}
	return NewTesseractEngine(state.ResolvedPath), nil
}
