package api

import "time"

// HealthzResponse is returned by GET /healthz.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Running       bool   `json:"running"`
}

// StatusResponse is returned by GET /v1/status.
type StatusResponse struct {
	Running         bool       `json:"running"`
	StopRequested   bool       `json:"stop_requested"`
	CurrentDateTime *time.Time `json:"current_datetime,omitempty"`
	Subjects        int        `json:"subjects"`
	LastEventID     int64      `json:"last_event_id"`
}

// SubjectInfo describes one registered subject in GET /v1/subjects.
type SubjectInfo struct {
	Name         string     `json:"name"`
	Priority     int        `json:"priority"`
	Eof          bool       `json:"eof"`
	PeekDateTime *time.Time `json:"peek_datetime,omitempty"`
}

// SubjectsResponse is returned by GET /v1/subjects, in dispatch order.
type SubjectsResponse struct {
	Subjects []SubjectInfo `json:"subjects"`
}

// StopResponse is returned by POST /v1/stop.
type StopResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
