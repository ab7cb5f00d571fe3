package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"skillscan/internal/frames"
	"skillscan/internal/hint"
	"skillscan/internal/interval"
	"skillscan/internal/recognition"
	"skillscan/internal/storage"
	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
)

const (
	defaultNativeLang     = "ja"
	defaultTranslatedLang = "en"
)

type ExtractRequest struct {
	RunId           string
	NativeVideo     string
	NativeLang      string
	TranslatedVideo string
	TranslatedLang  string
	OnlyNew         *bool
	FramesOnly      bool
	KeepFrames      bool
}

type ExtractResult struct {
	RunId            string                 `json:"run_id"`
	NativeGroups     []types.FrameGroup     `json:"native_groups"`
	TranslatedGroups []types.FrameGroup     `json:"translated_groups,omitempty"`
	Skills           []types.ExtractedSkill `json:"skills"`
	Match            types.MatchResult      `json:"match,omitempty"`
	FramesDir        string                 `json:"frames_dir,omitempty"`
	TranslatedError  string                 `json:"translated_error,omitempty"`
	ResultPath       string                 `json:"result_path,omitempty"`
}

type runIDKey struct{}

func withRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func runIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// Extract runs the whole pipeline for one native video and an optional
// translated one. The run and every finished group are persisted when the
// database is open.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	if strings.TrimSpace(req.NativeVideo) == "" {
		return nil, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, apperrors.GetMessage(apperrors.ErrInvalidParams), "native video is required", nil)
	}
	if req.RunId == "" {
		req.RunId = NewRunID()
	}
	if err := validRunID(req.RunId); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidParams, apperrors.GetMessage(apperrors.ErrInvalidParams), err)
	}
	if req.NativeLang == "" {
		req.NativeLang = defaultNativeLang
	}
	if req.TranslatedVideo != "" && req.TranslatedLang == "" {
		req.TranslatedLang = defaultTranslatedLang
	}
	onlyNew := s.OnlyNew
	if req.OnlyNew != nil {
		onlyNew = *req.OnlyNew
	}

	run := &storage.Run{
		RunId:           req.RunId,
		Status:          storage.RunStatusRunning,
		StatusMsg:       "正在提取帧 Extracting frames...",
		NativeVideo:     req.NativeVideo,
		NativeLang:      req.NativeLang,
		TranslatedVideo: req.TranslatedVideo,
		TranslatedLang:  req.TranslatedLang,
		OnlyNew:         onlyNew,
		Provider:        s.Provider,
	}
	s.saveRun(run)

	log.GetLogger().Info("extraction run start",
		zap.String("run_id", req.RunId),
		zap.String("native", req.NativeVideo),
		zap.String("translated", req.TranslatedVideo),
		zap.Bool("only_new", onlyNew))

	result, err := s.extract(withRunID(ctx, req.RunId), run, req, onlyNew)

	if !(s.KeepFrames || req.KeepFrames || req.FramesOnly) {
		s.cleanup(req.RunId)
	}

	if err != nil {
		log.GetLogger().Error("extraction run failed",
			zap.String("run_id", req.RunId),
			zap.String("detail", apperrors.GetDetail(err)),
			zap.Error(err))
		run.Status = storage.RunStatusFailed
		run.FailReason = failReason(err)
		run.StatusMsg = "运行失败 Run Failed"
		s.saveRun(run)
		return nil, err
	}

	run.Status = storage.RunStatusSucceeded
	run.StatusMsg = "运行完成 Completed"
	run.ResultPath = result.ResultPath
	s.saveRun(run)
	log.GetLogger().Info("extraction run end",
		zap.String("run_id", req.RunId),
		zap.Int("skills", len(result.Skills)),
		zap.Int("matched", run.Matched))
	return result, nil
}

func (s *Service) extract(ctx context.Context, run *storage.Run, req ExtractRequest, onlyNew bool) (*ExtractResult, error) {
	result := &ExtractResult{RunId: req.RunId}

	native := types.VideoSource{Path: req.NativeVideo, Language: req.NativeLang, Track: types.TrackNative}
	groups, err := s.prepareTrack(ctx, native)
	if err != nil {
		return nil, err
	}
	result.NativeGroups = groups
	run.NativeGroups = len(groups)

	matchTracks := req.TranslatedVideo != ""
	if matchTracks {
		translated := types.VideoSource{Path: req.TranslatedVideo, Language: req.TranslatedLang, Track: types.TrackTranslated}
		groups, err = s.prepareTrack(ctx, translated)
		switch {
		case err == nil:
			result.TranslatedGroups = groups
			run.TranslatedGroups = len(groups)
		case apperrors.IsInputError(err):
			log.GetLogger().Warn("translated video unusable, continuing without matching",
				zap.String("video", req.TranslatedVideo),
				zap.String("detail", apperrors.GetDetail(err)),
				zap.Error(err))
			result.TranslatedError = failReason(err)
			run.TranslatedError = result.TranslatedError
			matchTracks = false
		default:
			return nil, err
		}
	}

	if req.FramesOnly {
		runDir, _ := s.runDir(req.RunId)
		result.FramesDir = filepath.Join(runDir, "frames")
		log.GetLogger().Info("frames only: recognition skipped", zap.String("frames_dir", result.FramesDir))
		return result, nil
	}

	if s.HintEngine != nil && len(result.NativeGroups) > 0 {
		s.setStatus(run, "正在生成本地OCR提示 Generating local hints...")
		n, err := hint.Annotate(ctx, result.NativeGroups, s.HintEngine, native.Language, s.HintPanel)
		if err != nil {
			return nil, err
		}
		log.GetLogger().Info("local hints attached", zap.Int("groups", n), zap.String("engine", s.HintEngine.Name()))
	}

	s.setStatus(run, "正在识别原文技能 Recognizing native skills...")
	nativeSkills, err := s.Backend.RecognizeNative(ctx, result.NativeGroups, onlyNew)
	if err != nil {
		return nil, err
	}

	if matchTracks {
		s.setStatus(run, "正在识别译文技能 Recognizing translated skills...")
		translatedSkills, err := s.Backend.RecognizeTranslated(ctx, result.TranslatedGroups, onlyNew)
		if err != nil {
			return nil, err
		}

		s.setStatus(run, "正在匹配技能名 Matching skill names...")
		match, err := s.Backend.MatchNativeToTranslated(ctx, nativeSkills, translatedSkills)
		if err != nil {
			return nil, err
		}
		result.Match = match
		nativeSkills = applyMatch(nativeSkills, match)
		run.Matched = match.Matched()
		log.GetLogger().Info("matching result",
			zap.Int("matched", run.Matched),
			zap.Int("native", len(lo.Filter(nativeSkills, func(s types.ExtractedSkill, _ int) bool { return !s.IsError() }))))
	}
	result.Skills = nativeSkills

	if result.ResultPath, err = s.writeResult(req.RunId, nativeSkills); err != nil {
		return nil, err
	}
	if storage.DB != nil {
		if err = storage.SaveSkills(req.RunId, nativeSkills); err != nil {
			log.GetLogger().Warn("save skills failed", zap.String("run_id", req.RunId), zap.Error(err))
		}
	}
	return result, nil
}

// prepareTrack turns one video into frame groups. No skill screens at all is
// a valid, empty result.
func (s *Service) prepareTrack(ctx context.Context, src types.VideoSource) ([]types.FrameGroup, error) {
	dir, err := s.framesDir(runIDFrom(ctx), src.Track)
	if err != nil {
		return nil, err
	}
	if err = interval.ClearFrames(dir); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeFileWriteError, "clear frames failed", err)
	}

	intervals, err := s.Detector.Detect(ctx, src.Path)
	if err != nil {
		return nil, err
	}
	log.GetLogger().Info("static intervals detected",
		zap.String("track", string(src.Track)),
		zap.Int("intervals", len(intervals)),
		zap.Float64("static_seconds", lo.SumBy(intervals, types.Interval.Duration)))
	dumped, err := s.Detector.ExtractFrames(ctx, src.Path, intervals, dir)
	if err != nil {
		return nil, err
	}

	accepted, err := s.Classifier.Filter(ctx, dumped)
	if err != nil {
		return nil, err
	}
	log.GetLogger().Info("skill screens classified",
		zap.String("track", string(src.Track)),
		zap.Int("frames", len(dumped)),
		zap.Int("skill_screens", len(accepted)))

	groups, err := s.Grouper.Deduplicate(ctx, accepted)
	if frames.IsEmptyInput(err) {
		log.GetLogger().Warn("no skill screens found", zap.String("video", src.Path))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.GetLogger().Info("frame groups built",
		zap.String("track", string(src.Track)),
		zap.Int("groups", len(groups)))
	return groups, nil
}

// failReason is the error text plus its detail, when the detail carries
// something the message does not.
func failReason(err error) string {
	reason := err.Error()
	if detail := apperrors.GetDetail(err); detail != "" && !strings.Contains(reason, detail) {
		reason += " (" + detail + ")"
	}
	return reason
}

func applyMatch(skills []types.ExtractedSkill, match types.MatchResult) []types.ExtractedSkill {
	return lo.Map(skills, func(s types.ExtractedSkill, _ int) types.ExtractedSkill {
		if name, ok := match.Lookup(s.NativeName); ok {
			s.TranslatedName = name
		}
		return s
	})
}

func (s *Service) writeResult(runID string, skills []types.ExtractedSkill) (string, error) {
	path, err := s.resultPath(runID)
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "create output dir failed", err)
	}
	if skills == nil {
		skills = []types.ExtractedSkill{}
	}
	data, err := json.MarshalIndent(skills, "", "  ")
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "encode result failed", err)
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return "", apperrors.Wrap(apperrors.CodeFileWriteError, "write result failed", err)
	}
	return path, nil
}

func (s *Service) cleanup(runID string) {
	dir, err := s.runDir(runID)
	if err != nil {
		return
	}
	if err = os.RemoveAll(dir); err != nil {
		log.GetLogger().Warn("remove run dir failed", zap.String("dir", dir), zap.Error(err))
	}
}

func (s *Service) setStatus(run *storage.Run, msg string) {
	run.StatusMsg = msg
	s.saveRun(run)
}

func (s *Service) saveRun(run *storage.Run) {
	if storage.DB == nil {
		return
	}
	if err := storage.SaveRun(run); err != nil {
		log.GetLogger().Warn("save run failed", zap.String("run_id", run.RunId), zap.Error(err))
	}
}

// recordOutcome is the recogniser's progress hook: it logs each finished
// group and persists it under the run found on ctx.
func recordOutcome(ctx context.Context, o recognition.GroupOutcome) {
	log.GetLogger().Info("recognition progress",
		zap.String("track", string(o.Track)),
		zap.Int("done", o.Index),
		zap.Int("total", o.Total),
		zap.Int("group", o.Group.Ordinal),
		zap.Int("skills", len(o.Skills)),
		zap.Bool("failed", o.Err != nil))

	runID := runIDFrom(ctx)
	if runID == "" || storage.DB == nil {
		return
	}
	rec := storage.NewGroupRecord(runID, o.Track, o.Group, o.Skills, o.Err)
	if err := storage.SaveGroupRecord(&rec); err != nil {
		log.GetLogger().Warn("save group outcome failed", zap.String("run_id", runID), zap.Error(err))
	}
}
