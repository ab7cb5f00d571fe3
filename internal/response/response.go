package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skillscan/internal/dto"
	apperrors "skillscan/pkg/errors"
)

const (
	msgSuccess       = "成功 Success"
	msgInvalidParams = "参数错误 Invalid parameters"
)

// Response is the envelope every run endpoint answers with. Error is 0 on
// success, otherwise an apperrors code.
type Response struct {
	Error  int32  `json:"error"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Msg: msgSuccess, Data: data})
}

// RunAccepted answers a submission with the id the run was queued under.
func RunAccepted(c *gin.Context, runID string) {
	c.JSON(http.StatusOK, Response{Msg: "已提交 Run queued", Data: dto.StartRunResData{RunId: runID}})
}

// FromError maps err to an envelope. Wrapped AppErrors keep their code and
// detail; anything else becomes CodeUnknown.
func FromError(err error) Response {
	if err == nil {
		return Response{Msg: msgSuccess}
	}
	return Response{
		Error:  int32(apperrors.GetCode(err)),
		Msg:    apperrors.GetMessage(err),
		Detail: apperrors.GetDetail(err),
	}
}

// ErrorResponse keeps HTTP 200 and carries the failure in the envelope.
func ErrorResponse(c *gin.Context, err error) {
	c.JSON(http.StatusOK, FromError(err))
}

// ErrorWithStatus is for endpoints that serve files, where clients rely on
// the HTTP status rather than the envelope.
func ErrorWithStatus(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, FromError(err))
}

// InvalidParams reports a request that failed binding or validation.
func InvalidParams(c *gin.Context, err error) {
	ErrorResponse(c, apperrors.Wrap(apperrors.CodeInvalidParams, msgInvalidParams, err))
}
