package api

import (
	"io"
	"net/http"

	"github.com/banshee-data/twin.report/internal/httputil"
	"github.com/banshee-data/twin.report/internal/serialmux"
)

// handleIngest accepts the same JSON report the gateway sends on its serial
// line: {"device_id": ..., "<channel>": value, ...}.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.BadRequest(w, "failed to read body")
		return
	}
	p, err := serialmux.ParsePayload(body)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.Ingest(r.Context(), p); err != nil {
		writeStoreError(w, err, "Reading")
		return
	}
	httputil.WriteOK(w, nil)
}
