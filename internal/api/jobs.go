package api

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/company-intel-crawler/internal/crawler"
	"github.com/JakeFAU/company-intel-crawler/internal/job"
	"github.com/JakeFAU/company-intel-crawler/internal/metrics"
	"github.com/JakeFAU/company-intel-crawler/internal/progress"
	"github.com/JakeFAU/company-intel-crawler/internal/tabular"
)

// DownloadName is the attachment name of the result workbook.
const DownloadName = "sales_intelligence_output.xlsx"

//go:embed static/index.html
var staticFS embed.FS

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "index page missing")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(page); err != nil {
		s.logger.Debug("write index failed", zap.Error(err))
	}
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if s.jobs.Snapshot().Status == job.StatusRunning {
		metrics.ObserveUpload("conflict")
		writeError(w, http.StatusConflict, "A job is already running.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.ObserveUpload("rejected")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	if !tabular.SupportedExtension(filename) {
		metrics.ObserveUpload("rejected")
		writeError(w, http.StatusBadRequest, "File must be .xlsx, .xls, or .csv")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		metrics.ObserveUpload("rejected")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Could not read file: %v", err))
		return
	}

	targets, err := tabular.ReadTargets(bytes.NewReader(data), filename)
	if err != nil {
		metrics.ObserveUpload("rejected")
		writeError(w, http.StatusBadRequest, uploadErrorMessage(err))
		return
	}

	ticket, err := s.jobs.Start(r.Context(), targets)
	if err != nil {
		if errors.Is(err, job.ErrConflict) {
			metrics.ObserveUpload("conflict")
			writeError(w, http.StatusConflict, "A job is already running.")
			return
		}
		metrics.ObserveUpload("error")
		s.logger.Error("start job failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not start job.")
		return
	}
	metrics.ObserveUpload("accepted")
	s.archiveUpload(r.Context(), ticket.JobID, filename, header.Header.Get("Content-Type"), data)

	writeJSON(w, http.StatusOK, map[string]string{
		"job_id":  ticket.JobID,
		"message": "Scraping started.",
	})
}

func uploadErrorMessage(err error) string {
	var (
		schemaErr *tabular.SchemaError
		rowsErr   *tabular.ValidationError
	)
	switch {
	case errors.As(err, &schemaErr):
		return schemaErr.Error()
	case errors.As(err, &rowsErr):
		return rowsErr.Error()
	default:
		return fmt.Sprintf("Could not read file: %v", err)
	}
}

// archiveUpload keeps a copy of the accepted input. Failures are logged only.
func (s *Server) archiveUpload(ctx context.Context, jobID, filename, contentType string, data []byte) {
	if s.blobs == nil {
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := path.Join(s.opts.UploadPrefix, jobID+"_"+filename)
	uri, err := s.blobs.PutObject(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("archive upload failed", zap.String("job_id", jobID), zap.String("key", key), zap.Error(err))
		return
	}
	s.logger.Info("upload archived", zap.String("job_id", jobID), zap.String("uri", uri))
}

// progress streams events as SSE frames until the run is finished and every
// event has been sent, or the client goes away.
func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	cursor, err := parseFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		// Status is read before events: the terminal event is appended in
		// the same step that sets a terminal status.
		finished := s.jobs.Snapshot().Status.Terminal()
		events, next := s.jobs.Events(cursor)
		for _, evt := range events {
			payload, err := json.Marshal(evt)
			if err != nil {
				s.logger.Error("marshal event failed", zap.Int("seq", evt.Seq), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
		}
		if len(events) > 0 {
			flusher.Flush()
		}
		cursor = next
		if finished {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	from, err := parseFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, next := s.jobs.Events(from)
	if events == nil {
		events = []progress.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "next": next})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.Snapshot())
}

func (s *Server) results(w http.ResponseWriter, _ *http.Request) {
	results := s.jobs.Results()
	if results == nil {
		results = []crawler.CompanyResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	if s.blobs == nil {
		writeError(w, http.StatusNotFound, "No output file yet.")
		return
	}
	data, err := s.blobs.GetObject(r.Context(), s.opts.OutputKey)
	if err != nil {
		if errors.Is(err, crawler.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No output file yet.")
			return
		}
		s.logger.Error("read output failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not read output file.")
		return
	}
	w.Header().Set("Content-Type", tabular.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("write download failed", zap.Error(err))
	}
}

func parseFrom(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("from"))
	if raw == "" {
		return 0, nil
	}
	from, err := strconv.Atoi(raw)
	if err != nil || from < 0 {
		return 0, errors.New("invalid from")
	}
	return from, nil
}
