package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"skillscan/config"
	"skillscan/internal/service"
	"skillscan/internal/storage"
	"skillscan/log"
)

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Run the pipeline on one native video and an optional translated one",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "native-video", Aliases: []string{"i"}, Usage: "native-language video", Required: true},
			&cli.StringFlag{Name: "native-lang", Usage: "native language code", Value: "ja"},
			&cli.StringFlag{Name: "translated-video", Usage: "translated video to match against"},
			&cli.StringFlag{Name: "translated-lang", Usage: "translated language code", Value: "en"},
			&cli.BoolFlag{Name: "all", Usage: "recognize every skill, not only the ones marked new"},
			&cli.BoolFlag{Name: "frames-only", Usage: "stop after grouping and keep the frames"},
			&cli.BoolFlag{Name: "keep-frames", Usage: "keep extracted frames after the run"},
			&cli.Float64Flag{Name: "min-duration", Usage: "minimum static interval in seconds"},
			&cli.BoolFlag{Name: "local-hint", Usage: "read panels with tesseract before recognition"},
			&cli.StringFlag{Name: "provider", Usage: "recognition provider: openai, gemini or ollama"},
			&cli.StringFlag{Name: "model", Usage: "model name for the selected provider"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "copy skills.json here; - for stdout"},
		},
		Action: runExtract,
	}
}

func runExtract(ctx context.Context, cmd *cli.Command) error {
	if cmd.IsSet("min-duration") && cmd.Float64("min-duration") <= 0 {
		return cli.Exit("min-duration must be greater than zero", 2)
	}
	applyOverrides(&config.Conf, overrides{
		minDuration: cmd.Float64("min-duration"),
		localHint:   cmd.Bool("local-hint"),
		provider:    cmd.String("provider"),
		model:       cmd.String("model"),
	})
	if err := config.CheckConfig(); err != nil {
		return cli.Exit(fmt.Sprintf("配置错误 invalid config: %v", err), 2)
	}

	if config.Conf.Storage.Enabled {
		if err := storage.InitDB(); err != nil {
			log.GetLogger().Warn("storage disabled for this run", zap.Error(err))
		}
	}

	svc, err := service.NewService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	req := service.ExtractRequest{
		NativeVideo:     cmd.String("native-video"),
		NativeLang:      cmd.String("native-lang"),
		TranslatedVideo: cmd.String("translated-video"),
		TranslatedLang:  cmd.String("translated-lang"),
		FramesOnly:      cmd.Bool("frames-only"),
		KeepFrames:      cmd.Bool("keep-frames"),
	}
	if cmd.Bool("all") {
		onlyNew := false
		req.OnlyNew = &onlyNew
	}

	result, err := svc.Extract(ctx, req)
	if err != nil {
		return err
	}

	if req.FramesOnly {
		fmt.Fprintf(cmd.Root().Writer, "frames: %s\n", result.FramesDir)
		return nil
	}
	return emitResult(cmd, result, cmd.String("output"))
}

func emitResult(cmd *cli.Command, result *service.ExtractResult, output string) error {
	data, err := os.ReadFile(result.ResultPath)
	if err != nil {
		return fmt.Errorf("read result %s: %w", result.ResultPath, err)
	}
	switch output {
	case "":
		fmt.Fprintf(cmd.Root().Writer, "%d skills written to %s\n", len(result.Skills), result.ResultPath)
		return nil
	case "-":
		_, err = cmd.Root().Writer.Write(data)
		return err
	}
	if err = os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	if err = os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "%d skills written to %s\n", len(result.Skills), output)
	return nil
}

type overrides struct {
	minDuration float64
	localHint   bool
	provider    string
	model       string
}

// applyOverrides folds command-line flags into the loaded config. Zero
// values leave the config untouched.
func applyOverrides(conf *config.Config, o overrides) {
	if o.minDuration > 0 {
		conf.Interval.MinDuration = o.minDuration
	}
	if o.localHint && conf.Hint.Engine == config.HintEngineNone {
		conf.Hint.Engine = config.HintEngineAuto
	}
	if o.provider != "" {
		conf.Recognition.Provider = o.provider
	}
	if o.model == "" {
		return
	}
	switch conf.Recognition.Provider {
	case config.ProviderGemini:
		conf.Recognition.Gemini.Model = o.model
	case config.ProviderOllama:
		conf.Recognition.Ollama.Model = o.model
	default:
		conf.Recognition.OpenAI.Model = o.model
	}
}
