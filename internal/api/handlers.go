package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Running:       s.dispatcher.Running(),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleStatus handles GET /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Running:         s.dispatcher.Running(),
		StopRequested:   s.dispatcher.StopRequested(),
		CurrentDateTime: s.dispatcher.CurrentDateTime(),
		Subjects:        len(s.dispatcher.Subjects()),
		LastEventID:     s.hub.LastID(),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleSubjects handles GET /v1/subjects.
func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	subjects := s.dispatcher.Subjects()
	resp := SubjectsResponse{Subjects: make([]SubjectInfo, 0, len(subjects))}
	for _, sub := range subjects {
		resp.Subjects = append(resp.Subjects, SubjectInfo{
			Name:         subjectName(sub),
			Priority:     int(sub.DispatchPriority()),
			Eof:          sub.Eof(),
			PeekDateTime: sub.PeekDateTime(),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleStop handles POST /v1/stop. The dispatcher winds down on its next
// step, so the response only acknowledges the request.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.dispatcher.Stop()
	s.logger.Info("stop requested via API")
	s.writeJSON(w, http.StatusAccepted, StopResponse{Status: "stopping"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

func subjectName(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", v)
}
