package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	interrors "github.com/halvax/qrcheckin/internal/errors"
	"github.com/halvax/qrcheckin/onetime"
)

type startLoginResponse struct {
	SessionID string `json:"sessionId"`
}

type statusResponse struct {
	State   string `json:"state"`
	Message string `json:"message"`
}

type checkinResponse struct {
	LoginRequired  bool   `json:"loginRequired"`
	Classification string `json:"classification,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// StartLoginHandler begins a fresh login attempt and returns its session
// id. Outside of DEV the request must carry a one-time reference minted by
// the orchestrator; the reference is consumed on use.
func (s *Server) StartLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref := r.URL.Query().Get("ref")
		if ref == "" && s.env != "DEV" {
			writeJSONError(w, http.StatusUnauthorized, "login reference required")
			return
		}
		if ref != "" {
			purpose, err := s.references.Validate(r.Context(), ref)
			if err != nil || purpose != onetime.PurposeLogin {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired login reference")
				return
			}
		}

		sessionID, err := s.login.Start(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, startLoginResponse{SessionID: sessionID})
	}
}

// ChallengeHandler serves the scannable QR image for a pending session.
func (s *Server) ChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := s.sessionIDFromPath(w, r)
		if !ok {
			return
		}

		image, err := s.login.Challenge(r.Context(), sessionID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(image)
	}
}

// StatusHandler advances the session one tick and reports where it ended
// up. Clients poll this until the state is terminal.
func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := s.sessionIDFromPath(w, r)
		if !ok {
			return
		}

		state, message, err := s.login.Status(r.Context(), sessionID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{State: string(state), Message: message})
	}
}

// RunCheckinHandler runs one check-in evaluation on demand. The manual
// trigger and the scheduler share the same orchestrator path.
func (s *Server) RunCheckinHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.checkin.RunTick(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}

		resp := checkinResponse{LoginRequired: result.LoginRequired}
		if result.Outcome != nil {
			resp.Classification = string(result.Outcome.Classification)
			resp.Detail = result.Outcome.Detail
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": s.config.GetAppName(),
		})
	}
}

func (s *Server) sessionIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := r.PathValue("sessionID")
	if _, err := uuid.Parse(sessionID); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid session id")
		return "", false
	}
	return sessionID, true
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Anything
// unrecognized is an internal failure and its detail stays out of the
// response.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case interrors.Is(err, interrors.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case interrors.Is(err, interrors.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "session not found")
	case interrors.Is(err, interrors.ErrExpired):
		writeJSONError(w, http.StatusGone, "session can no longer complete")
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
