package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lookbusy1344/minilang/service"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	maxSteps := req.MaxSteps
	if maxSteps == 0 {
		maxSteps = 10_000_000
	}

	session, compileErr := s.sessions.CreateSession(req.Source, maxSteps)
	if compileErr != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "compile error",
			Message: compileErr.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	writeJSON(w, http.StatusCreated, SessionCreateResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.sessions.ListSessions(),
	})
}

func (s *Server) handleGetSessionStatus(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	status, runErr := session.Runner.Status()
	resp := SessionStatusResponse{
		SessionID: sessionID,
		Status:    string(status),
	}
	if runErr != nil {
		resp.Error = runErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.sessions.DestroySession(sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to destroy session: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) handleSendInput(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req InputRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, _ := session.Runner.Status()
	if status != service.StatusRunning {
		writeError(w, http.StatusConflict, "Session is not running")
		return
	}

	if err := session.Runner.ProvideInput(req.Text); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to deliver input: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}
