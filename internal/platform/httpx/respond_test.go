package httpx

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProblemShape(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, 409, "Record Locked", "record already approved")

	require.Equal(t, 409, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Record Locked", body.Title)
	require.Equal(t, 409, body.Status)
	require.Equal(t, "record already approved", body.Detail)
}

func TestRespondErrorUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, ErrUnauthorized)
	require.Equal(t, 401, rec.Code)

	rec = httptest.NewRecorder()
	RespondError(rec, errors.New("boom"))
	require.Equal(t, 500, rec.Code)
}

func TestDecodeJSONIgnoresUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"notes":"ok","surprise":true}`))
	var target struct {
		Notes string `json:"notes"`
	}
	require.NoError(t, DecodeJSON(req, &target))
	require.Equal(t, "ok", target.Notes)
}

func TestDecodeJSONCapsBody(t *testing.T) {
	huge := `{"notes":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(huge))
	var target struct {
		Notes string `json:"notes"`
	}
	require.Error(t, DecodeJSON(req, &target))
}
