package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func TestJSONWritesEnvelope(t *testing.T) {
	c, rec := newContext()

	JSON(c, http.StatusOK, map[string]int{"total": 3}, map[string]interface{}{"cache_hit": true})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body["data"]["total"])
	assert.Equal(t, true, body["meta"]["cache_hit"])
}

func TestErrorMapsStatus(t *testing.T) {
	c, rec := newContext()

	Error(c, appErrors.Clone(appErrors.ErrNotFound, "user not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["error"]["code"])
	assert.Equal(t, "user not found", body["error"]["message"])
}

func TestErrorFallsBackToInternal(t *testing.T) {
	c, rec := newContext()

	Error(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAttachment(t *testing.T) {
	c, rec := newContext()

	Attachment(c, "age_report.csv", "text/csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="age_report.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}
