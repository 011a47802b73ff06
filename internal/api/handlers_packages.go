package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgrange/loanpipe/internal/pipeline"
	"github.com/dgrange/loanpipe/internal/textract"
	"github.com/go-chi/chi/v5"
)

type submitRequest struct {
	// Inputs are server-local files or directories to process.
	Inputs []string `json:"inputs"`
}

// handleSubmitPackage queues a document package for processing. The
// request is either a JSON body naming server-local paths or a
// multipart form with one or more uploaded files.
func (s *Server) handleSubmitPackage(w http.ResponseWriter, r *http.Request) {
	var inputs []string

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "multipart/form-data"):
		dir, err := s.saveUploads(w, r)
		if err != nil {
			return // saveUploads already wrote the error response
		}
		inputs = []string{dir}
	default:
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		inputs = req.Inputs
	}

	if len(inputs) == 0 {
		jsonError(w, "at least one input is required", http.StatusBadRequest)
		return
	}

	job := pipeline.NewJob(inputs)
	if err := s.svc.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/packages/%s", snap.ID),
	})
}

// saveUploads writes the multipart files into a fresh temp directory
// and returns its path. On failure it writes the error response itself
// and returns a non-nil error.
func (s *Server) saveUploads(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize*10+10*1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return "", err
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return "", fmt.Errorf("no files")
	}

	dir, err := os.MkdirTemp("", "loanpipe-pkg-")
	if err != nil {
		jsonError(w, "failed to stage uploads", http.StatusInternalServerError)
		return "", err
	}

	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !textract.IsSupportedExtension(filename) {
			os.RemoveAll(dir)
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return "", fmt.Errorf("unsupported file type")
		}

		f, err := fh.Open()
		if err != nil {
			os.RemoveAll(dir)
			jsonError(w, "failed to open uploaded file", http.StatusInternalServerError)
			return "", err
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxFileSize+1))
		f.Close()
		if err != nil {
			os.RemoveAll(dir)
			jsonError(w, "failed to read uploaded file", http.StatusInternalServerError)
			return "", err
		}
		if int64(len(data)) > s.cfg.MaxFileSize {
			os.RemoveAll(dir)
			jsonError(w, fmt.Sprintf("file %s exceeds max size (%d bytes)", filename, s.cfg.MaxFileSize), http.StatusRequestEntityTooLarge)
			return "", fmt.Errorf("file too large")
		}

		if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
			os.RemoveAll(dir)
			jsonError(w, "failed to stage uploaded file", http.StatusInternalServerError)
			return "", err
		}
	}

	return dir, nil
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.svc.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.svc.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	snap := job.Snapshot()
	summary := job.Summary()
	if summary == nil {
		if snap.Status == pipeline.JobFailed {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"job_id": snap.ID,
				"status": snap.Status,
				"errors": snap.Errors,
			})
			return
		}
		jsonError(w, fmt.Sprintf("job %s is %s", snap.ID, snap.Status), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
