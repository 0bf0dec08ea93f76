package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/baseball-sim/matchup-engine/models"
)

// APIError is the body of every error response
type APIError struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, APIError{Error: message, Code: code})
}

// contextWithTimeout bounds handlers that do not run a full report
func contextWithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 30*time.Second)
}

// parseIntParam returns defaultValue when param is empty or not an integer
func parseIntParam(param string, defaultValue int) int {
	if param == "" {
		return defaultValue
	}
	if val, err := strconv.Atoi(param); err == nil {
		return val
	}
	return defaultValue
}

// parseBoolParam accepts 1/true/yes/on in any case
func parseBoolParam(param string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(param)) {
	case "":
		return defaultValue
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// pathID reads a positive integer path variable
func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	return id, err == nil && id > 0
}

// resolveDate maps "" and "today" onto the current date in the server zone
func (s *Server) resolveDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" || strings.EqualFold(date, "today") {
		return s.now().In(s.loc).Format(models.DateLayout)
	}
	return date
}

// seasonFor returns the configured season or the one containing day
func (s *Server) seasonFor(day time.Time) int {
	if s.season > 0 {
		return s.season
	}
	return models.SeasonOf(day)
}
