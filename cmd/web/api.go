package main

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"unicode/utf8"

	"legal-docs/internal/app"
	"legal-docs/internal/httputil"
	"legal-docs/internal/tasks"
)

const (
	defaultSearchK = 4
	maxSearchK     = 20
	multipartMem   = 32 << 20
)

type draftRequest struct {
	Query string `json:"query" validate:"required,min=3,max=2000"`
}

// uploadHandler accepts one or more PDFs as multipart fields "file" or
// "files" and makes them the session's contract.
func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxSize {
			httputil.FailJSON(deps.Log, w, fmt.Sprintf("upload too large (max %d bytes)", maxSize), nil, http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		if err := r.ParseMultipartForm(multipartMem); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			httputil.FailJSON(deps.Log, w, "invalid multipart upload", err, statusOr(err, http.StatusBadRequest))
			return
		}

		var files []*multipart.FileHeader
		if r.MultipartForm != nil {
			files = append(files, r.MultipartForm.File["file"]...)
			files = append(files, r.MultipartForm.File["files"]...)
		}

		id := ensureSession(deps, w, r)
		state, err := processUploads(r.Context(), deps, id, files)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}

		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"session_id": id,
			"files":      state.Files,
			"pages":      state.Pages,
			"characters": utf8.RuneCountInString(state.ContractText),
			"chunks":     len(state.Chunks),
		})
	}
}

func clausesHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, state, err := loadContract(r.Context(), deps, r)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}
		raw, err := deps.Tasks.Clauses.Extract(r.Context(), state.Chunks)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"raw":     raw,
			"clauses": tasks.ParseClauses(raw),
		})
	}
}

func summaryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, state, err := loadContract(r.Context(), deps, r)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}
		lines, err := deps.Tasks.Summary.Summarize(r.Context(), state.Chunks)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"lines": lines})
	}
}

func draftHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req draftRequest
		if err := httputil.DecodeAndValidate(r, &req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		_, state, err := loadContract(r.Context(), deps, r)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}
		lines, err := deps.Tasks.Draft.Draft(r.Context(), req.Query, state.Chunks)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"lines": lines})
	}
}

// indexBuildHandler embeds the session's chunks into the vector index.
func indexBuildHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Index == nil {
			httputil.FailJSON(deps.Log, w, "vector index is disabled", nil, http.StatusNotFound)
			return
		}
		id, state, err := loadContract(r.Context(), deps, r)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}
		n, err := deps.Index.Build(r.Context(), id, state.Chunks)
		if err != nil {
			httputil.FailJSON(deps.Log, w, "failed to build index", err, http.StatusBadGateway)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"session_id": id,
			"indexed":    n,
		})
	}
}

// indexSearchHandler searches the caller's session, or every session when
// the request carries none.
func indexSearchHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Index == nil {
			httputil.FailJSON(deps.Log, w, "vector index is disabled", nil, http.StatusNotFound)
			return
		}
		q := r.URL.Query().Get("q")
		k := defaultSearchK
		if raw := r.URL.Query().Get("k"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxSearchK {
				httputil.FailJSON(deps.Log, w, fmt.Sprintf("k must be between 1 and %d", maxSearchK), err, http.StatusBadRequest)
				return
			}
			k = n
		}

		hits, err := deps.Index.Search(r.Context(), sessionID(r), q, k)
		if err != nil {
			httputil.FailJSON(deps.Log, w, err.Error(), err, statusOr(err, http.StatusBadGateway))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"hits": hits})
	}
}

// statusOr is statusFor with a different fallback for unclassified errors.
func statusOr(err error, fallback int) int {
	if s := statusFor(err); s != http.StatusInternalServerError {
		return s
	}
	return fallback
}
