package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/footwear-triage/internal/intake"
)

// Multipart framing and the text fields ride on top of the image bytes.
const (
	multipartOverhead = 64 << 10
	multipartMemory   = 32 << 20
)

// handleAnalyze accepts a multipart upload with the image in "img" and
// optional user_email, brand and model_name fields.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, &intake.UploadError{Kind: intake.UploadTooLarge, Reason: "request body exceeds upload limit"})
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, _, err := r.FormFile("img")
	if err != nil {
		s.writeError(w, r, &intake.UploadError{Kind: intake.UploadMissing, Reason: "img file is required"})
		return
	}
	defer file.Close()

	// Read one byte past the limit so the size check can see the overflow.
	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "failed to read image: "+err.Error())
		return
	}

	resp, err := s.analyzer.Analyze(r.Context(), &intake.Request{
		Image:   data,
		Contact: r.FormValue("user_email"),
		Brand:   r.FormValue("brand"),
		Model:   r.FormValue("model_name"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, resp)
}
