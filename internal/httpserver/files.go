package httpserver

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"printdesk/internal/storagefs"
)

const maxUploadSize = 25 << 20 // 25 MiB

func (s *Server) handleFileTree(w http.ResponseWriter, r *http.Request) {
	// The local metadata table is the fast path; ?source=remote forces
	// a listing straight from the storage service.
	if r.URL.Query().Get("source") == "remote" {
		force, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
		files, err := s.deps.Messaging.StorageTree(r.Context(), force)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": files})
		return
	}

	files := s.deps.Store.Files.Snapshot()
	tree := storagefs.BuildTree(files)
	writeJSON(w, http.StatusOK, map[string]any{
		"tree":       tree.Children,
		"file_count": storagefs.CountFiles(tree),
	})
}

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	dir := strings.Trim(r.FormValue("path"), "/")
	name := path.Base(header.Filename)
	if name == "" || name == "." || name == "/" {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	fullPath := name
	if dir != "" {
		fullPath = dir + "/" + name
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed reading upload")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if err := s.deps.Messaging.UploadFile(r.Context(), fullPath, name, mimeType, content); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "path": fullPath})
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "missing path")
		return
	}

	if err := s.deps.Messaging.DeleteFile(r.Context(), req.Path); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err := s.deps.Repository.DeleteFileMetadata(r.Context(), req.Path); err != nil {
		s.logger.Warn("failed removing file metadata", "path", req.Path, "error", err)
	}
	writeJSON(w, http.StatusOK, mutationResponse{Status: "success"})
}
