package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime/multipart"
	"net/http"

	"legal-docs/internal/app"
	"legal-docs/internal/document"
	"legal-docs/internal/httputil"
	"legal-docs/internal/session"
	"legal-docs/internal/tasks"
)

const (
	appTitle = "Legal Document Automation App"

	tabClauses = "clauses"
	tabSummary = "summary"
	tabDraft   = "draft"

	msgNoFiles    = "No files were uploaded."
	msgNeedQuery  = "Please enter a query to generate a draft."
	msgUploadedOK = "File '%s' uploaded successfully!"
)

//go:embed templates/index.html
var indexHTML string

var pageTmpl = template.Must(template.New("index").Parse(indexHTML))

// pageData is everything the single UI page can show.
type pageData struct {
	Title    string
	Files    []string
	Pages    int
	Chunks   int
	Notices  []string
	Warnings []string
	Error    string
	Awaiting bool

	Tab       string
	ClauseRaw string
	Clauses   []tasks.Clause
	Lines     []string
	Query     string
}

func newPage(state session.State) *pageData {
	return &pageData{
		Title:    appTitle,
		Files:    state.Files,
		Pages:    state.Pages,
		Chunks:   len(state.Chunks),
		Awaiting: !state.Ready(),
		Tab:      tabClauses,
	}
}

func render(log *slog.Logger, w http.ResponseWriter, status int, data *pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		log.Error("render page", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// currentPage loads whatever the session holds. Missing sessions render as
// awaiting input.
func currentPage(ctx context.Context, deps app.Deps, r *http.Request) (*pageData, session.State, error) {
	_, state, err := loadContract(ctx, deps, r)
	if errors.Is(err, document.ErrAwaitingInput) {
		return newPage(session.State{}), session.State{}, nil
	}
	if err != nil {
		return nil, session.State{}, err
	}
	return newPage(state), state, nil
}

func pageHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _, err := currentPage(r.Context(), deps, r)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load session", err, http.StatusInternalServerError)
			return
		}
		render(deps.Log, w, http.StatusOK, page)
	}
}

func uploadPageHandler(deps app.Deps) http.HandlerFunc {
	maxSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
		if err := r.ParseMultipartForm(multipartMem); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			page, _, loadErr := currentPage(r.Context(), deps, r)
			if loadErr != nil {
				page = newPage(session.State{})
			}
			page.Error = fmt.Sprintf("Upload failed: %v", err)
			deps.Log.Warn("upload rejected", "err", err)
			render(deps.Log, w, statusOr(err, http.StatusBadRequest), page)
			return
		}

		var files []*multipart.FileHeader
		if r.MultipartForm != nil {
			files = r.MultipartForm.File["files"]
		}
		if len(files) == 0 {
			page, _, err := currentPage(r.Context(), deps, r)
			if err != nil {
				httputil.Fail(deps.Log, w, "failed to load session", err, http.StatusInternalServerError)
				return
			}
			page.Warnings = append(page.Warnings, msgNoFiles)
			render(deps.Log, w, http.StatusOK, page)
			return
		}

		id := ensureSession(deps, w, r)
		state, err := processUploads(r.Context(), deps, id, files)
		if err != nil {
			page, _, loadErr := currentPage(r.Context(), deps, r)
			if loadErr != nil {
				page = newPage(session.State{})
			}
			page.Error = err.Error()
			deps.Log.Warn("upload failed", "session", id, "err", err)
			render(deps.Log, w, statusFor(err), page)
			return
		}

		page := newPage(state)
		for _, name := range state.Files {
			page.Notices = append(page.Notices, fmt.Sprintf(msgUploadedOK, name))
		}
		render(deps.Log, w, http.StatusOK, page)
	}
}

func extractPageHandler(deps app.Deps) http.HandlerFunc {
	return taskPage(deps, tabClauses, func(ctx context.Context, r *http.Request, state session.State, page *pageData) error {
		raw, err := deps.Tasks.Clauses.Extract(ctx, state.Chunks)
		if err != nil {
			return err
		}
		page.ClauseRaw = raw
		page.Clauses = tasks.ParseClauses(raw)
		return nil
	})
}

func summarizePageHandler(deps app.Deps) http.HandlerFunc {
	return taskPage(deps, tabSummary, func(ctx context.Context, r *http.Request, state session.State, page *pageData) error {
		lines, err := deps.Tasks.Summary.Summarize(ctx, state.Chunks)
		if err != nil {
			return err
		}
		page.Lines = lines
		return nil
	})
}

func draftPageHandler(deps app.Deps) http.HandlerFunc {
	return taskPage(deps, tabDraft, func(ctx context.Context, r *http.Request, state session.State, page *pageData) error {
		page.Query = r.PostFormValue("query")
		lines, err := deps.Tasks.Draft.Draft(ctx, page.Query, state.Chunks)
		if err != nil {
			return err
		}
		page.Lines = lines
		return nil
	})
}

// taskPage runs one task against the session's contract and renders the
// result on the given tab. Without a contract the page shows the upload
// prompt and the task is not run.
func taskPage(deps app.Deps, tab string, run func(context.Context, *http.Request, session.State, *pageData) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, state, err := currentPage(r.Context(), deps, r)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load session", err, http.StatusInternalServerError)
			return
		}
		page.Tab = tab
		if page.Awaiting {
			render(deps.Log, w, http.StatusOK, page)
			return
		}

		err = run(r.Context(), r, state, page)
		switch {
		case err == nil:
		case tasks.DraftRequiresQuery(err):
			page.Warnings = append(page.Warnings, msgNeedQuery)
		default:
			page.Error = err.Error()
			deps.Log.Warn("task failed", "tab", tab, "err", err)
			render(deps.Log, w, statusFor(err), page)
			return
		}
		render(deps.Log, w, http.StatusOK, page)
	}
}
