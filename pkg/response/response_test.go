package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/Aliagaaaaaa/horarios-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestJSONWithMeta(t *testing.T) {
	c, w := newContext()
	JSON(c, http.StatusOK, map[string]int{"blocks": 4}, nil, map[string]interface{}{"status": "COMPLETE"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"data":{"blocks":4},"meta":{"status":"COMPLETE"}}`, w.Body.String())
}

func TestErrorMapsUnknownErrorsToInternal(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var env struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, appErrors.ErrInternal.Code, env.Error.Code)
}

func TestErrorKeepsDomainStatus(t *testing.T) {
	c, w := newContext()
	Error(c, appErrors.Clone(appErrors.ErrScheduleExpired, "schedule expired"))

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), "SCHEDULE_EXPIRED")
}

func TestAcceptedAndAttachment(t *testing.T) {
	c, w := newContext()
	Accepted(c, map[string]string{"id": "export-1"})
	assert.Equal(t, http.StatusAccepted, w.Code)

	c, w = newContext()
	Attachment(c, "horario.csv", "text/csv; charset=utf-8", 6, strings.NewReader("a,b,c\n"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="horario.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b,c\n", w.Body.String())
}
