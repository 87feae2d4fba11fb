package server

import (
	"encoding/json"
	"net/http"

	"github.com/conneroisu/sitepack/internal/errors"
)

// Status is the body of the status endpoint.
type Status struct {
	Passes int    `json:"passes"`
	OK     bool   `json:"ok"`
	PassID string `json:"pass_id,omitempty"`
	Files  int    `json:"files,omitempty"`
	Error  string `json:"error,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (s *Server) status() Status {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()

	st := Status{Passes: s.passes, OK: s.passes > 0 && s.lastErr == nil}
	if s.lastReport != nil {
		st.PassID = s.lastReport.PassID
		st.Files = s.lastReport.Files
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
		st.File, st.Line, st.Column = errors.ExtractLocation(s.lastErr)
	}
	return st
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(s.status()); err != nil {
		s.logger.Warn(r.Context(), err, "failed to write status")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// fileServer serves the output directory without caching, since every pass
// may replace any file.
func (s *Server) fileServer() http.Handler {
	files := http.FileServer(http.Dir(s.outputDir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		files.ServeHTTP(w, r)
	})
}
