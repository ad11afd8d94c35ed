package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"legal-docs/internal/app"
	"legal-docs/internal/chunker"
	"legal-docs/internal/document"
	"legal-docs/internal/index"
	"legal-docs/internal/llm"
	"legal-docs/internal/prompt"
	"legal-docs/internal/session"
)

const (
	sessionCookie = "session_id"
	sessionHeader = "X-Session-ID"
)

// sessionID returns the caller's session id from the header or cookie, or ""
// when none is present or it is malformed.
func sessionID(r *http.Request) string {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		if c, err := r.Cookie(sessionCookie); err == nil {
			id = c.Value
		}
	}
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}

// ensureSession returns the caller's session id, starting a new session and
// setting the cookie when there is none.
func ensureSession(deps app.Deps, w http.ResponseWriter, r *http.Request) string {
	id := sessionID(r)
	if id == "" {
		id = uuid.NewString()
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   deps.Config.SessionTTL,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(sessionHeader, id)
	return id
}

// loadContract returns the processed contract of the caller's session, or
// document.ErrAwaitingInput when nothing has been uploaded yet.
func loadContract(ctx context.Context, deps app.Deps, r *http.Request) (string, session.State, error) {
	id := sessionID(r)
	if id == "" {
		return "", session.State{}, document.ErrAwaitingInput
	}
	state, err := deps.Sessions.Get(ctx, id)
	if errors.Is(err, session.ErrNotFound) || (err == nil && !state.Ready()) {
		return id, session.State{}, document.ErrAwaitingInput
	}
	if err != nil {
		return id, session.State{}, fmt.Errorf("load session: %w", err)
	}
	return id, state, nil
}

// processUploads extracts the uploaded files and stores the result as the
// session's current contract, replacing any previous one.
func processUploads(ctx context.Context, deps app.Deps, id string, files []*multipart.FileHeader) (session.State, error) {
	uploads, err := readUploads(files)
	if err != nil {
		return session.State{}, err
	}
	res, err := deps.Processor.Process(ctx, uploads)
	if err != nil {
		return session.State{}, err
	}
	// PDFs without extractable text leave nothing to work on; drop any
	// earlier contract instead of keeping it around.
	if len(res.Chunks) == 0 {
		if err := deps.Sessions.Delete(ctx, id); err != nil {
			return session.State{}, fmt.Errorf("clear session: %w", err)
		}
		return session.State{}, document.ErrAwaitingInput
	}
	state := session.State{
		Files:        res.Files,
		Pages:        res.Pages,
		ContractText: res.ContractText,
		Chunks:       chunker.Texts(res.Chunks),
	}
	if err := deps.Sessions.Save(ctx, id, state); err != nil {
		return session.State{}, fmt.Errorf("save session: %w", err)
	}
	return state, nil
}

func readUploads(files []*multipart.FileHeader) ([]document.Upload, error) {
	uploads := make([]document.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, &document.InputError{Filename: fh.Filename, Reason: "cannot open upload", Err: err}
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, &document.InputError{Filename: fh.Filename, Reason: "cannot read upload", Err: err}
		}
		uploads = append(uploads, document.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}
	return uploads, nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var inputErr *document.InputError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, document.ErrAwaitingInput):
		return http.StatusConflict
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &inputErr), errors.Is(err, prompt.ErrMissingVariable), errors.Is(err, index.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrGeneration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
