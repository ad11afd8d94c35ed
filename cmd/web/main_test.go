package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"legal-docs/internal/app"
	"legal-docs/internal/config"
	"legal-docs/internal/document"
	"legal-docs/internal/document/documenttest"
	"legal-docs/internal/embeddings"
	"legal-docs/internal/index"
	"legal-docs/internal/llm"
	"legal-docs/internal/session"
	"legal-docs/internal/tasks"
)

const contractText = "Effective Date: Jan 1 2024. Service Provider: Acme Corp."

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDeps(gw llm.Gateway) app.Deps {
	log := quietLog()
	return app.Deps{
		Config: config.Config{
			MaxUploadSize: 1024 * 1024, // 1MB for tests
			SessionTTL:    3600,
		},
		Log:       log,
		Gateway:   gw,
		Tasks:     tasks.NewSuite(gw, log),
		Processor: document.NewProcessor(log),
		Sessions:  session.NewMemoryStore(time.Hour),
	}
}

// echoGateway answers each prompt by listing the sentences of the contract
// it was given, one per line.
func echoGateway(calls *int) llm.GatewayFunc {
	return func(_ context.Context, p string) (string, error) {
		*calls++
		if !strings.Contains(p, contractText) {
			return "", errors.New("prompt does not carry the contract")
		}
		return strings.Join(strings.Split(strings.TrimSuffix(contractText, "."), ". "), "\n"), nil
	}
}

type testFile struct {
	field       string
	name        string
	contentType string
	content     []byte
}

func multipartRequest(t *testing.T, target string, files ...testFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(deps app.Deps, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	routes(deps).ServeHTTP(rec, req)
	return rec
}

func uploadContract(t *testing.T, deps app.Deps) string {
	t.Helper()
	rec := serve(deps, multipartRequest(t, "/api/documents", testFile{
		field: "file", name: "contract.pdf", contentType: "application/pdf",
		content: documenttest.PDF(contractText),
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func jsonRequest(method, target, sessionID, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	return req
}

func TestUploadThenExtractClauses(t *testing.T) {
	calls := 0
	deps := newTestDeps(echoGateway(&calls))

	rec := serve(deps, multipartRequest(t, "/api/documents", testFile{
		field: "file", name: "contract.pdf", contentType: "application/pdf",
		content: documenttest.PDF(contractText),
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var upload struct {
		SessionID string   `json:"session_id"`
		Files     []string `json:"files"`
		Pages     int      `json:"pages"`
		Chunks    int      `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))
	assert.Equal(t, []string{"contract.pdf"}, upload.Files)
	assert.Equal(t, 1, upload.Pages)
	assert.Equal(t, 1, upload.Chunks)
	assert.Equal(t, upload.SessionID, rec.Header().Get(sessionHeader))

	rec = serve(deps, jsonRequest(http.MethodPost, "/api/clauses", upload.SessionID, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var clauses struct {
		Raw     string         `json:"raw"`
		Clauses []tasks.Clause `json:"clauses"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clauses))
	assert.Contains(t, clauses.Raw, "Effective Date: Jan 1 2024")
	assert.Contains(t, clauses.Raw, "Service Provider: Acme Corp")
	assert.Equal(t, []tasks.Clause{
		{Name: "Effective Date", Value: "Jan 1 2024"},
		{Name: "Service Provider", Value: "Acme Corp"},
	}, clauses.Clauses)
	assert.Equal(t, 1, calls)
}

func TestTasksAwaitInputWithoutUpload(t *testing.T) {
	gw := new(llm.MockGateway)
	deps := newTestDeps(gw)

	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"clauses", "/api/clauses", ""},
		{"summary", "/api/summary", ""},
		{"draft", "/api/draft", `{"query":"Draft an NDA"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(deps, jsonRequest(http.MethodPost, tt.target, "", tt.body))
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Contains(t, rec.Body.String(), "please upload a PDF file to proceed")
		})
	}
	gw.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestEmptyUploadAwaitsInput(t *testing.T) {
	gw := new(llm.MockGateway)
	deps := newTestDeps(gw)

	rec := serve(deps, multipartRequest(t, "/api/documents"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	gw.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	deps := newTestDeps(new(llm.MockGateway))

	rec := serve(deps, multipartRequest(t, "/api/documents", testFile{
		field: "file", name: "notes.txt", contentType: "text/plain", content: []byte("hello"),
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only PDF allowed")
}

func TestUploadTooLarge(t *testing.T) {
	deps := newTestDeps(new(llm.MockGateway))
	deps.Config.MaxUploadSize = 64

	rec := serve(deps, multipartRequest(t, "/api/documents", testFile{
		field: "file", name: "contract.pdf", contentType: "application/pdf",
		content: documenttest.PDF(contractText),
	}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSummaryGenerationFailure(t *testing.T) {
	gw := new(llm.MockGateway)
	deps := newTestDeps(gw)
	id := uploadContract(t, deps)

	gw.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()

	rec := serve(deps, jsonRequest(http.MethodPost, "/api/summary", id, ""))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "error generating content: quota exceeded")
	gw.AssertExpectations(t)
}

func TestSummaryLines(t *testing.T) {
	gw := new(llm.MockGateway)
	deps := newTestDeps(gw)
	id := uploadContract(t, deps)

	gw.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, contractText)
	})).Return("Parties: Acme Corp\n\nStarts Jan 1 2024", nil).Once()

	rec := serve(deps, jsonRequest(http.MethodPost, "/api/summary", id, ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Lines []string `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"Parties: Acme Corp", "", "Starts Jan 1 2024"}, body.Lines)
	gw.AssertExpectations(t)
}

func TestDraftHandler(t *testing.T) {
	gw := new(llm.MockGateway)
	deps := newTestDeps(gw)
	id := uploadContract(t, deps)

	gw.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Draft a termination notice") && strings.Contains(p, contractText)
	})).Return("NOTICE OF TERMINATION\nAcme Corp", nil).Once()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid query", `{"query":"Draft a termination notice"}`, http.StatusOK},
		{"missing query", `{}`, http.StatusBadRequest},
		{"too short", `{"query":"no"}`, http.StatusBadRequest},
		{"malformed", `{"query":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(deps, jsonRequest(http.MethodPost, "/api/draft", id, tt.body))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
	gw.AssertExpectations(t)
}

func TestIndexDisabled(t *testing.T) {
	deps := newTestDeps(new(llm.MockGateway))

	rec := serve(deps, jsonRequest(http.MethodPost, "/api/index", "", ""))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(deps, httptest.NewRequest(http.MethodGet, "/api/index/search?q=payment", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexBuildAndSearch(t *testing.T) {
	deps := newTestDeps(new(llm.MockGateway))
	embedder := embeddings.Func(func(_ context.Context, text string) (embeddings.Vector, error) {
		v := embeddings.Vector{0.1, 0.1}
		if strings.Contains(strings.ToLower(text), "acme") {
			v[0] = 1
		}
		return v, nil
	})
	ix, err := index.Open(t.TempDir(), "contract-chunks", embedder, quietLog())
	require.NoError(t, err)
	deps.Index = ix

	id := uploadContract(t, deps)

	rec := serve(deps, jsonRequest(http.MethodPost, "/api/index", id, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"indexed": 1`)

	req := httptest.NewRequest(http.MethodGet, "/api/index/search?q=who+is+acme&k=3", nil)
	req.Header.Set(sessionHeader, id)
	rec = serve(deps, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Hits []index.Hit `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Hits, 1)
	assert.Contains(t, body.Hits[0].Content, "Acme Corp")

	rec = serve(deps, httptest.NewRequest(http.MethodGet, "/api/index/search?q=acme&k=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(deps, httptest.NewRequest(http.MethodGet, "/api/index/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPageFlow(t *testing.T) {
	calls := 0
	deps := newTestDeps(echoGateway(&calls))

	rec := serve(deps, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Legal Document Automation App")
	assert.Contains(t, rec.Body.String(), "Please upload a PDF file to proceed.")

	rec = serve(deps, multipartRequest(t, "/upload"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No files were uploaded.")

	rec = serve(deps, multipartRequest(t, "/upload",
		testFile{field: "files", name: "contract.pdf", contentType: "application/pdf", content: documenttest.PDF(contractText)},
		testFile{field: "files", name: "annex.pdf", contentType: "application/pdf", content: documenttest.PDF("Annex A")},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := html.UnescapeString(rec.Body.String())
	assert.Contains(t, page, "File 'contract.pdf' uploaded successfully!")
	assert.Contains(t, page, "File 'annex.pdf' uploaded successfully!")

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	withSession := func(req *http.Request) *http.Request {
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return req
	}

	rec = serve(deps, withSession(httptest.NewRequest(http.MethodPost, "/extract", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	page = html.UnescapeString(rec.Body.String())
	assert.Contains(t, page, "Effective Date")
	assert.Contains(t, page, "Acme Corp")
	assert.Equal(t, 1, calls)

	draft := httptest.NewRequest(http.MethodPost, "/draft", strings.NewReader("query="))
	draft.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = serve(deps, withSession(draft))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a query to generate a draft.")
	assert.Equal(t, 1, calls)
}

func TestExtractPageWithoutUpload(t *testing.T) {
	gw := new(llm.MockGateway)
	deps := newTestDeps(gw)

	rec := serve(deps, httptest.NewRequest(http.MethodPost, "/extract", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please upload a PDF file to proceed.")
	gw.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"awaiting input", document.ErrAwaitingInput, http.StatusConflict},
		{"input error", &document.InputError{Filename: "a.txt", Reason: "bad"}, http.StatusBadRequest},
		{"generation", &llm.GenerationError{Err: errors.New("x")}, http.StatusBadGateway},
		{"too large", &http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestHealthz(t *testing.T) {
	rec := serve(newTestDeps(new(llm.MockGateway)), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionStoreFailures(t *testing.T) {
	id := "7f9c2ba4-e88f-4c3b-9a5d-0d3f0f6c1a2e"
	storeErr := errors.New("redis: connection refused")

	tests := []struct {
		name    string
		setup   func(*session.MockStore)
		request func(t *testing.T) *http.Request
	}{
		{
			name: "clauses with unreadable session",
			setup: func(s *session.MockStore) {
				s.On("Get", mock.Anything, id).Return(session.State{}, storeErr).Once()
			},
			request: func(*testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/api/clauses", id, "")
			},
		},
		{
			name: "page with unreadable session",
			setup: func(s *session.MockStore) {
				s.On("Get", mock.Anything, id).Return(session.State{}, storeErr).Once()
			},
			request: func(*testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.Header.Set(sessionHeader, id)
				return req
			},
		},
		{
			name: "upload with failing save",
			setup: func(s *session.MockStore) {
				s.On("Save", mock.Anything, id, mock.MatchedBy(func(st session.State) bool {
					return st.Ready() && st.Files[0] == "contract.pdf"
				})).Return(storeErr).Once()
			},
			request: func(t *testing.T) *http.Request {
				req := multipartRequest(t, "/api/documents", testFile{
					field: "file", name: "contract.pdf", contentType: "application/pdf",
					content: documenttest.PDF(contractText),
				})
				req.Header.Set(sessionHeader, id)
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(llm.MockGateway)
			store := new(session.MockStore)
			tt.setup(store)
			deps := newTestDeps(gw)
			deps.Sessions = store

			rec := serve(deps, tt.request(t))
			assert.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
			store.AssertExpectations(t)
			gw.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		})
	}
}

func TestUploadWithoutTextClearsSession(t *testing.T) {
	id := "7f9c2ba4-e88f-4c3b-9a5d-0d3f0f6c1a2e"
	store := new(session.MockStore)
	store.On("Delete", mock.Anything, id).Return(nil).Once()
	deps := newTestDeps(new(llm.MockGateway))
	deps.Sessions = store

	req := multipartRequest(t, "/api/documents", testFile{
		field: "file", name: "scan.pdf", contentType: "application/pdf", content: documenttest.PDF(""),
	})
	req.Header.Set(sessionHeader, id)
	rec := serve(deps, req)

	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadWithoutTextDropsPreviousContract(t *testing.T) {
	calls := 0
	deps := newTestDeps(echoGateway(&calls))
	id := uploadContract(t, deps)

	req := multipartRequest(t, "/api/documents", testFile{
		field: "file", name: "scan.pdf", contentType: "application/pdf", content: documenttest.PDF(""),
	})
	req.Header.Set(sessionHeader, id)
	rec := serve(deps, req)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = serve(deps, jsonRequest(http.MethodPost, "/api/clauses", id, ""))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, calls)

	_, err := deps.Sessions.Get(context.Background(), id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
