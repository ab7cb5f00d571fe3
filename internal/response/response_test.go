package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "skillscan/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func record(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	fn(c)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestFromErrorKeepsDetailOfWrappedAppError(t *testing.T) {
	inner := apperrors.WrapWithDetail(apperrors.CodeNoStaticIntervals, "no static intervals", "en.mp4: 0 freezes", nil)

	resp := FromError(fmt.Errorf("translated track: %w", inner))

	assert.Equal(t, int32(apperrors.CodeNoStaticIntervals), resp.Error)
	assert.Equal(t, "no static intervals", resp.Msg)
	assert.Equal(t, "en.mp4: 0 freezes", resp.Detail)
}

func TestFromErrorPlainError(t *testing.T) {
	resp := FromError(errors.New("boom"))
	assert.Equal(t, int32(apperrors.CodeUnknown), resp.Error)
	assert.Equal(t, "boom", resp.Msg)
	assert.Empty(t, resp.Detail)

	assert.Equal(t, int32(0), FromError(nil).Error)
}

func TestRunAccepted(t *testing.T) {
	rec, body := record(t, func(c *gin.Context) { RunAccepted(c, "run-42") })

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["error"])
	assert.Equal(t, map[string]any{"run_id": "run-42"}, body["data"])
}

func TestErrorWithStatusAborts(t *testing.T) {
	var c *gin.Context
	rec, body := record(t, func(ctx *gin.Context) {
		c = ctx
		ErrorWithStatus(ctx, http.StatusNotFound, apperrors.ErrFileNotFound)
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, c.IsAborted())
	assert.EqualValues(t, apperrors.CodeFileNotFound, body["error"])
}

func TestInvalidParams(t *testing.T) {
	rec, body := record(t, func(c *gin.Context) { InvalidParams(c, errors.New("missing native_video")) })

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, apperrors.CodeInvalidParams, body["error"])
	assert.Equal(t, msgInvalidParams, body["msg"])
}
