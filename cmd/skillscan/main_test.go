package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"

	"skillscan/config"
	"skillscan/internal/service"
	"skillscan/log"
)

func init() {
	log.InitLogger()
}

func TestApplyOverrides(t *testing.T) {
	conf := config.Config{}
	conf.Interval.MinDuration = 1.5
	conf.Hint.Engine = config.HintEngineNone
	conf.Recognition.Provider = config.ProviderOpenAI

	applyOverrides(&conf, overrides{})
	assert.Equal(t, 1.5, conf.Interval.MinDuration)
	assert.Equal(t, config.HintEngineNone, conf.Hint.Engine)

	applyOverrides(&conf, overrides{minDuration: 3, localHint: true, provider: config.ProviderOllama, model: "llava"})
	assert.Equal(t, 3.0, conf.Interval.MinDuration)
	assert.Equal(t, config.HintEngineAuto, conf.Hint.Engine)
	assert.Equal(t, config.ProviderOllama, conf.Recognition.Provider)
	assert.Equal(t, "llava", conf.Recognition.Ollama.Model)
	assert.Empty(t, conf.Recognition.OpenAI.Model)
}

func TestApplyOverridesKeepsExplicitHintEngine(t *testing.T) {
	conf := config.Config{}
	conf.Hint.Engine = config.HintEngineTesseract

	applyOverrides(&conf, overrides{localHint: true, model: "gpt-4o-mini"})

	assert.Equal(t, config.HintEngineTesseract, conf.Hint.Engine)
	assert.Equal(t, "gpt-4o-mini", conf.Recognition.OpenAI.Model)
}

func TestEmitResult(t *testing.T) {
	dir := t.TempDir()
	resultPath := filepath.Join(dir, "skills.json")
	require.NoError(t, os.WriteFile(resultPath, []byte(`[]`), 0o644))
	result := &service.ExtractResult{ResultPath: resultPath}

	var out bytes.Buffer
	cmd := &cli.Command{Writer: &out}

	require.NoError(t, emitResult(cmd, result, "-"))
	assert.Equal(t, "[]", out.String())

	out.Reset()
	target := filepath.Join(dir, "copy", "skills.json")
	require.NoError(t, emitResult(cmd, result, target))
	assert.FileExists(t, target)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out.String()), target))
}

func TestDoctorPrintsPaths(t *testing.T) {
	var out bytes.Buffer
	printDiagnose(&out)
	assert.Contains(t, out.String(), "runtime: ")
	assert.Contains(t, out.String(), "version: dev")
}

func TestExtractRequiresNativeVideo(t *testing.T) {
	app := newApp()
	app.Before = nil
	app.Writer = &bytes.Buffer{}
	app.ErrWriter = &bytes.Buffer{}
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := app.Run(context.Background(), []string{"skillscan", "extract"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "native-video")
}
