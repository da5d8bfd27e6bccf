package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olaria/ddlconv/pkg/batch"
	"github.com/olaria/ddlconv/pkg/metrics"
)

var allowedExtensions = map[string]bool{
	".txt": true,
	".ddl": true,
}

type uploadResponse struct {
	Staged     []string       `json:"staged"`
	Duplicates []string       `json:"duplicates"`
	Rejected   []rejectedFile `json:"rejected"`
}

type rejectedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// handleUpload stages DDL files for the next processing run. Files whose
// content was already processed in this session are reported as duplicates
// and not staged.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files in request")
		return
	}

	resp := uploadResponse{Staged: []string{}, Duplicates: []string{}, Rejected: []rejectedFile{}}
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if !allowedExtensions[strings.ToLower(filepath.Ext(name))] {
			resp.Rejected = append(resp.Rejected, rejectedFile{File: name, Reason: "only .txt and .ddl files are accepted"})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			resp.Rejected = append(resp.Rejected, rejectedFile{File: name, Reason: "unreadable file part"})
			continue
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			resp.Rejected = append(resp.Rejected, rejectedFile{File: name, Reason: "unreadable file part"})
			continue
		}

		if s.dedup.ShouldSkip(data) {
			metrics.DuplicateUploadsTotal.Inc()
			resp.Duplicates = append(resp.Duplicates, name)
			continue
		}

		s.stage(batch.File{Name: name, Data: data})
		resp.Staged = append(resp.Staged, name)
	}

	s.log.Info("server: upload received",
		"staged", len(resp.Staged), "duplicates", len(resp.Duplicates), "rejected", len(resp.Rejected))
	s.writeJSON(w, http.StatusOK, resp)
}

// stage queues a file for the next process call. A re-upload under the same
// name replaces the staged copy.
func (s *Server) stage(f batch.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byName[f.Name] {
		for i := range s.staged {
			if s.staged[i].Name == f.Name {
				s.staged[i] = f
				return
			}
		}
	}
	s.byName[f.Name] = true
	s.staged = append(s.staged, f)
}

func (s *Server) takeStaged() []batch.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.staged
	s.staged = nil
	s.byName = make(map[string]bool)
	return files
}

// handleProcess submits all staged files as one batch job and returns its ID
// for polling.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	files := s.takeStaged()
	if len(files) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}
	jobID := s.registry.Submit(files)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, ok := s.registry.Status(jobID)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown job %s", jobID))
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rc, err := s.artifacts.Open(name)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("artifact %s not found", name))
		return
	}
	defer rc.Close()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		w.Header().Set("Content-Type", "application/json")
	case ".csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Error("server: download failed", "artifact", name, "error", err)
	}
}

func (s *Server) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	names, err := s.artifacts.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "cannot list artifacts")
		return
	}
	if len(names) == 0 {
		s.writeError(w, http.StatusNotFound, "no artifacts generated yet")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="ddlconv_artifacts.zip"`)
	if err := s.artifacts.WriteZip(w); err != nil {
		s.log.Error("server: archive failed", "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"history": s.history.List()})
}

// handleClearCache resets all session state: dedup fingerprints, staged
// uploads, generated artifacts, and history.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.takeStaged()
	s.dedup.Clear()
	s.history.Reset()
	if err := s.artifacts.Clear(); err != nil {
		s.writeError(w, http.StatusInternalServerError, "cannot clear artifacts")
		return
	}
	s.log.Info("server: cache cleared")
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("server: failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
