package service

import (
	"context"
	"time"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"skillscan/config"
	"skillscan/internal/appdirs"
	"skillscan/internal/deps"
	"skillscan/internal/frames"
	"skillscan/internal/hint"
	"skillscan/internal/interval"
	"skillscan/internal/matcher"
	"skillscan/internal/recognition"
	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
	"skillscan/pkg/gemini"
	"skillscan/pkg/ollama"
	"skillscan/pkg/openai"
)

// FrameFilter keeps the frames that show a skill card.
type FrameFilter interface {
	Filter(ctx context.Context, frames []types.Frame) ([]types.Frame, error)
}

// Grouper collapses consecutive frames of the same card.
type Grouper interface {
	Deduplicate(ctx context.Context, frames []types.Frame) ([]types.FrameGroup, error)
}

type Service struct {
	Detector   types.IntervalDetector
	Classifier FrameFilter
	Grouper    Grouper
	Backend    types.Backend
	HintEngine types.HintEngine
	HintPanel  frames.Rect
	Provider   string
	OnlyNew    bool
	KeepFrames bool
	Paths      appdirs.Paths

	closers []func() error
}

// NewService wires every pipeline stage from config.Conf.
func NewService(ctx context.Context) (*Service, error) {
	paths, err := appdirs.Resolve()
	if err != nil {
		return nil, err
	}

	stages, err := stageConfigs(config.Conf)
	if err != nil {
		return nil, err
	}
	analyzer := frames.NewImageAnalyzer(stages.Crops)

	normalize, err := normalizerFor(config.Conf.Recognition.Normalize)
	if err != nil {
		return nil, err
	}

	completer, closer, err := newCompleter(ctx, config.Conf.Recognition)
	if err != nil {
		return nil, err
	}
	completer = recognition.Paced(completer, config.Conf.Recognition.RequestsPerMinute)

	retry := retryPolicy(config.Conf.Recognition)
	recognizer := recognition.NewRecognizer(completer, recognition.Options{
		Profile:     config.Conf.Recognition.PromptProfile,
		Retry:       retry,
		Concurrency: config.Conf.Recognition.Concurrency,
	}, recognition.WithProgress(recordOutcome), recognition.WithNormalizer(normalize))
	match := matcher.New(completer, matcher.Config{
		SnapMaxRatio:       config.Conf.Matcher.SnapMaxRatio,
		PositionalFallback: config.Conf.Matcher.PositionalFallback,
		Retry:              retry,
	})

	engine, err := hint.ResolveEngine(config.Conf.Hint.Engine, config.Conf.Hint.TesseractPath, deps.NewPathResolver())
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}

	svc := &Service{
		Detector:   interval.NewDetector(stages.Interval),
		Classifier: frames.NewClassifier(stages.Classifier),
		Grouper:    frames.NewDeduplicator(stages.Dedup, analyzer, analyzer),
		Backend:    recognition.NewBackend(recognizer, match),
		HintEngine: engine,
		HintPanel:  stages.Crops.Panel,
		Provider:   config.Conf.Recognition.Provider,
		OnlyNew:    config.Conf.App.OnlyNew,
		KeepFrames: config.Conf.App.KeepFrames,
		Paths:      paths,
	}
	if closer != nil {
		svc.closers = append(svc.closers, closer)
	}

	log.GetLogger().Info("当前选择的识别源 recognition provider",
		zap.String("provider", svc.Provider),
		zap.String("profile", config.Conf.Recognition.PromptProfile),
		zap.Bool("local_hint", engine != nil))
	return svc, nil
}

// stageSet holds the per-stage settings derived from the config file.
type stageSet struct {
	Interval   interval.Config
	Classifier frames.ClassifierConfig
	Dedup      frames.DedupConfig
	Crops      frames.CropSet
}

func stageConfigs(conf config.Config) (stageSet, error) {
	var out stageSet
	for _, pair := range [][2]interface{}{
		{&out.Interval, &conf.Interval},
		{&out.Classifier, &conf.Frames.Classifier},
		{&out.Dedup, &conf.Frames.Dedup},
		{&out.Crops, &conf.Frames.Crop},
	} {
		if err := copier.Copy(pair[0], pair[1]); err != nil {
			return stageSet{}, apperrors.Wrap(apperrors.CodeInvalidParams, "convert config failed", err)
		}
	}
	// The classifier measures the same panel the hashes and hints crop.
	out.Classifier.Panel = out.Crops.Panel
	return out, nil
}

func normalizerFor(mode string) (types.Normalizer, error) {
	switch mode {
	case "", config.NormalizeNone:
		return types.IdentityNormalizer, nil
	case config.NormalizeNFKC:
		return norm.NFKC.String, nil
	}
	return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "unsupported normalize mode", mode, nil)
}

func newCompleter(ctx context.Context, conf config.Recognition) (types.Completer, func() error, error) {
	switch conf.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(conf.OpenAI.BaseURL, conf.OpenAI.APIKey, config.Conf.App.Proxy, conf.OpenAI.Model, conf.OpenAI.MaxTokens), nil, nil
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, conf.Gemini.APIKey, conf.Gemini.Model)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case config.ProviderOllama:
		return ollama.NewClient(conf.Ollama.BaseURL, conf.Ollama.Model, conf.Ollama.NumCtx), nil, nil
	}
	return nil, nil, apperrors.WrapWithDetail(apperrors.CodeUnknownProvider, apperrors.GetMessage(apperrors.ErrUnknownProvider), conf.Provider, nil)
}

func retryPolicy(conf config.Recognition) recognition.RetryPolicy {
	p := recognition.DefaultRetryPolicy()
	if conf.MaxRetries > 0 {
		p.MaxRetries = conf.MaxRetries
	}
	if conf.BackoffSeconds > 0 {
		p.Backoff = time.Duration(conf.BackoffSeconds * float64(time.Second))
	}
	if conf.CallTimeoutSeconds > 0 {
		p.CallTimeout = time.Duration(conf.CallTimeoutSeconds) * time.Second
	}
	return p
}

// Close releases backend clients.
func (s *Service) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
