package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"skillscan/config"
	"skillscan/internal/appdirs"
	"skillscan/internal/deps"
	"skillscan/internal/dto"
	"skillscan/internal/response"
	"skillscan/internal/service"
	"skillscan/internal/storage"
	"skillscan/internal/taskrunner"
	"skillscan/internal/types"
	"skillscan/log"
	apperrors "skillscan/pkg/errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

func (h Handler) StartRun(c *gin.Context) {
	var req dto.StartRunReq
	if err := c.ShouldBindJSON(&req); err != nil {
		log.GetLogger().Error("StartRun ShouldBindJSON err", zap.Error(err))
		response.InvalidParams(c, err)
		return
	}
	log.GetLogger().Info("StartRun received request", zap.Any("req", req))

	var extractReq service.ExtractRequest
	if err := copier.Copy(&extractReq, &req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	runID, err := h.Runner.Submit(extractReq)
	if err != nil {
		if errors.Is(err, taskrunner.ErrQueueFull) || errors.Is(err, taskrunner.ErrRunnerStopped) {
			response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeBackendUnavailable, "队列不可用 Run queue unavailable", err))
			return
		}
		response.InvalidParams(c, err)
		return
	}
	response.RunAccepted(c, runID)
}

func (h Handler) GetRun(c *gin.Context) {
	var req dto.GetRunReq
	if err := c.ShouldBindUri(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}

	run, err := storage.GetRun(req.RunId)
	if err != nil {
		response.ErrorResponse(c, err)
		return
	}

	var data dto.GetRunResData
	_ = copier.Copy(&data, run)
	data.Status = run.Status.String()
	data.Outcomes = lo.Map(run.Groups, func(g storage.GroupRecord, _ int) dto.GroupOutcome {
		return dto.GroupOutcome{
			Track:      g.Track,
			Ordinal:    g.Ordinal,
			Frames:     splitLines(g.Frames),
			Hint:       g.Hint,
			SkillNames: splitLines(g.SkillNames),
			Error:      g.Error,
		}
	})
	data.Results = lo.Map(run.Skills, func(s storage.SkillRecord, _ int) types.ExtractedSkill { return s.Skill() })
	response.Success(c, data)
}

func (h Handler) ListRuns(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.ErrorResponse(c, apperrors.WrapWithDetail(apperrors.CodeInvalidParams, "参数错误 Invalid parameters", "limit must be a positive integer", err))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := storage.GetRunHistory(limit)
	if err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeDBError, "获取历史记录失败 Failed to load history", err))
		return
	}
	response.Success(c, lo.Map(runs, func(r storage.Run, _ int) dto.RunSummary {
		var s dto.RunSummary
		_ = copier.Copy(&s, &r)
		s.Status = r.Status.String()
		return s
	}))
}

func (h Handler) DeleteRun(c *gin.Context) {
	var req dto.GetRunReq
	if err := c.ShouldBindUri(&req); err != nil {
		response.InvalidParams(c, err)
		return
	}
	resultPath, ok := resolveResultPath(req.RunId)
	if !ok {
		response.InvalidParams(c, nil)
		return
	}

	if err := os.RemoveAll(filepath.Dir(resultPath)); err != nil {
		log.GetLogger().Error("DeleteRun RemoveAll err", zap.String("path", resultPath), zap.Error(err))
	}
	if err := storage.DeleteRun(req.RunId); err != nil {
		response.ErrorResponse(c, apperrors.Wrap(apperrors.CodeDBError, "删除记录失败 Failed to delete run", err))
		return
	}
	response.Success(c, nil)
}

// DownloadResult serves the skills.json written for a finished run.
func (h Handler) DownloadResult(c *gin.Context) {
	resultPath, ok := resolveResultPath(c.Param("runId"))
	if !ok {
		response.ErrorWithStatus(c, http.StatusForbidden, apperrors.New(apperrors.CodeInvalidParams, "非法路径 Invalid path"))
		return
	}
	if _, err := os.Stat(resultPath); err != nil {
		response.ErrorWithStatus(c, http.StatusNotFound, apperrors.ErrFileNotFound)
		return
	}
	c.FileAttachment(resultPath, appdirs.ResultFileName)
}

func (h Handler) Doctor(c *gin.Context) {
	states := deps.ResolveDependencyInventory(config.Conf.Interval.FFmpegPath, config.Conf.Hint.TesseractPath, config.Conf.Hint.Engine)
	response.Success(c, gin.H{
		"usable":       deps.Usable(states) == nil,
		"dependencies": states,
	})
}

func resolveResultPath(runID string) (string, bool) {
	runID = strings.TrimSpace(runID)
	if runID == "" || hasParentTraversal(runID) || strings.ContainsAny(runID, `/\`) {
		return "", false
	}
	dirs, err := appDirsResolver()
	if err != nil {
		return "", false
	}
	path := appdirs.ResultPathFor(dirs, runID)
	if !isPathWithinRoot(filepath.Dir(filepath.Dir(path)), path) {
		return "", false
	}
	return path, true
}

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

func isPathWithinRoot(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func hasParentTraversal(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
