package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gyoansoft/gyoan-backend/api/responses"
	pkgerrors "github.com/gyoansoft/gyoan-backend/pkg/errors"
	"github.com/gyoansoft/gyoan-backend/pkg/logger"
	"github.com/gyoansoft/gyoan-backend/pkg/storage/local"
)

// FileDownload streams a stored blob as an attachment.
func FileDownload(store *local.Store, logg *logger.Logger) http.HandlerFunc {
	return serveBlob(store, logg, true)
}

// FilePreview streams a stored blob inline so browsers can render it.
func FilePreview(store *local.Store, logg *logger.Logger) http.HandlerFunc {
	return serveBlob(store, logg, false)
}

func serveBlob(store *local.Store, logg *logger.Logger, attachment bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "file storage unavailable"))
			return
		}

		relPath := strings.TrimSpace(r.URL.Query().Get("path"))
		if relPath == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "path is required"))
			return
		}

		f, err := store.Open(relPath)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, blobError(err))
			return
		}
		defer f.Close()

		name := path.Base(relPath)
		contentType := mime.TypeByExtension(path.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		if attachment {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		} else {
			w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
		}

		if _, err := io.Copy(w, f); err != nil && logg != nil {
			logg.Warn(r.Context(), "file stream interrupted: "+err.Error())
		}
	}
}

func blobError(err error) error {
	switch {
	case errors.Is(err, local.ErrInvalidPath):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file path")
	case errors.Is(err, local.ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "file not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "file storage read failed")
	}
}
