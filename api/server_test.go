package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lookbusy1344/minilang/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *api.Server {
	return api.NewServer(0)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCreateSessionAndGetStatus(t *testing.T) {
	s := newTestServer()

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/session",
		bytes.NewBufferString(`{"source": "program { int a; a = 1 + 1; write(a); }"}`))
	createRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created api.SessionCreateResponse
	require.Nil(t, json.Unmarshal(createRec.Body.Bytes(), &created))
	require.NotEmpty(t, created.SessionID)

	// Give the run goroutine a moment to finish; the program is tiny.
	time.Sleep(20 * time.Millisecond)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/v1/session/"+created.SessionID, nil)
	statusRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(statusRec, statusReq)
	require.Equal(t, http.StatusOK, statusRec.Code)

	var status api.SessionStatusResponse
	require.Nil(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	assert.Equal(t, "completed", status.Status)
}

func TestCreateSessionWithCompileErrorIsBadRequest(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session",
		bytes.NewBufferString(`{"source": "program { x = 1; }"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownSessionIsNotFound(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDestroySession(t *testing.T) {
	s := newTestServer()

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/session",
		bytes.NewBufferString(`{"source": "program { write(1); }"}`))
	createRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created api.SessionCreateResponse
	require.Nil(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/session/"+created.SessionID, nil)
	delRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(delRec, delReq)
	assert.Equal(t, http.StatusOK, delRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/session/"+created.SessionID, nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestSendInputToWaitingSession(t *testing.T) {
	s := newTestServer()

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/session",
		bytes.NewBufferString(`{"source": "program { int x; read(x); write(x); }"}`))
	createRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	var created api.SessionCreateResponse
	require.Nil(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	inputReq := httptest.NewRequest(http.MethodPost, "/api/v1/session/"+created.SessionID+"/input",
		bytes.NewBufferString(`{"text": "7"}`))
	inputRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(inputRec, inputReq)
	assert.Equal(t, http.StatusOK, inputRec.Code)

	time.Sleep(20 * time.Millisecond)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/v1/session/"+created.SessionID, nil)
	statusRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(statusRec, statusReq)

	var status api.SessionStatusResponse
	require.Nil(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	assert.Equal(t, "completed", status.Status)
}

func TestCORSHeadersOnlyForAllowedOrigin(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.Header.Set("Origin", "https://evil.example.com")
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)
	assert.Empty(t, rec2.Header().Get("Access-Control-Allow-Origin"))
}
