// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/logging"
)

// multipartMemory is how much of an upload ParseMultipartForm keeps in memory.
const multipartMemory = 32 << 20

// ListMedia returns all uploaded media.
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	media, err := h.svc.ListMedia(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, media, start)
}

// UploadMedia accepts a multipart upload in the "file" field.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, r, apperr.Wrap(apperr.ErrValidation, err, "expected a multipart upload"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to remove multipart temp files")
			}
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, apperr.Wrap(apperr.ErrValidation, err, "file field is required"))
		return
	}
	defer func() { _ = file.Close() }()

	m, err := h.svc.UploadMedia(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, m, start)
}
