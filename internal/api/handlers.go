package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/export"
	"github.com/sells-group/finmetrics/internal/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// financialsRequest is the POST /api/financials body.
type financialsRequest struct {
	Token string `json:"token,omitempty"`
	model.Query
}

// financialsResponse is the POST /api/financials reply.
type financialsResponse struct {
	Summary       string            `json:"summary"`
	Columns       []model.Column    `json:"columns"`
	Table         []model.MetricRow `json:"table"`
	DownloadToken string            `json:"download_token,omitempty"`
	RunID         string            `json:"run_id,omitempty"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleFinancials(w http.ResponseWriter, r *http.Request) {
	var req financialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := model.ValidateStruct(struct {
		Token string `validate:"omitempty,min=32,max=64"`
	}{req.Token}); err != nil {
		writeError(w, err)
		return
	}

	p := s.pipeline
	if req.Token != "" && req.Token != s.token {
		if s.newSource == nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "per-request tokens are not accepted"})
			return
		}
		p = p.WithSource(s.newSource(req.Token))
	} else if s.token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a Tushare token is required"})
		return
	}

	res, err := p.Run(r.Context(), req.Query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, financialsResponse{
		Summary:       res.Summary,
		Columns:       res.Table.Columns,
		Table:         res.Table.Rows,
		DownloadToken: res.ExportFile,
		RunID:         res.RunID,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "token")
	path, err := s.exports.Path(name)
	switch {
	case errors.Is(err, export.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid download token"})
		return
	case errors.Is(err, fs.ErrNotExist):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "file does not exist or has expired"})
		return
	case err != nil:
		writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close() //nolint:errcheck
	info, err := f.Stat()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func writeError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	var nf *model.NotFoundError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Problems: ve.Problems})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error()})
	default:
		zap.L().Error("api: request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
