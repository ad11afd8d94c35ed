package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"legal-docs/internal/chunker"
)

// Fixed chunking for contract text.
const (
	ChunkSize    = 1000
	ChunkOverlap = 200
)

// ErrAwaitingInput means nothing was uploaded yet. It is a state, not a failure.
var ErrAwaitingInput = errors.New("please upload a PDF file to proceed")

// InputError reports an upload that cannot be processed.
type InputError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

func (e *InputError) Unwrap() error { return e.Err }

// Upload is one uploaded file held in memory for a single processing cycle.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Result is the extracted contract text and its chunks.
type Result struct {
	Files        []string
	Pages        int
	ContractText string
	Chunks       []chunker.Chunk
}

// Processor turns uploaded PDFs into contract text and chunks.
type Processor struct {
	log *slog.Logger
}

func NewProcessor(log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{log: log}
}

// Process extracts every upload in order and chunks the combined text.
func (p *Processor) Process(ctx context.Context, uploads []Upload) (Result, error) {
	if len(uploads) == 0 {
		return Result{}, ErrAwaitingInput
	}

	var res Result
	texts := make([]string, 0, len(uploads))
	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if !IsPDF(u.Filename, u.ContentType) {
			return Result{}, &InputError{Filename: u.Filename, Reason: "unsupported file type (only PDF allowed)"}
		}
		text, pages, err := ExtractText(u.Content)
		if err != nil {
			return Result{}, &InputError{Filename: u.Filename, Reason: "unreadable PDF", Err: err}
		}
		p.log.Info("extracted pdf", "filename", u.Filename, "pages", pages, "chars", len(text))
		res.Files = append(res.Files, u.Filename)
		res.Pages += pages
		texts = append(texts, text)
	}

	res.ContractText = strings.Join(texts, "\n\n")
	res.Chunks = chunker.Split(res.ContractText, chunker.Options{MaxChars: ChunkSize, Overlap: ChunkOverlap})
	p.log.Info("document processed", "files", len(res.Files), "pages", res.Pages, "chunks", len(res.Chunks))
	return res, nil
}

// IsPDF accepts application/pdf, or a .pdf name when the content type is
// missing or generic.
func IsPDF(filename, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "application/pdf", "application/x-pdf":
		return true
	case "", "application/octet-stream":
		return strings.EqualFold(filepath.Ext(filename), ".pdf")
	default:
		return false
	}
}

// ExtractText returns the plain text of every page joined by newlines, and
// the page count. Pages without content or that fail to extract count as empty.
func ExtractText(content []byte) (text string, numPages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, numPages, err = "", 0, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, int64(len(content)))
	if err != nil {
		return "", 0, err
	}

	numPages = pdfReader.NumPage()
	pages := make([]string, 0, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		pages = append(pages, pageText(pdfReader, pageNum))
	}
	return strings.Join(pages, "\n"), numPages, nil
}

func pageText(r *pdf.Reader, num int) (text string) {
	// The pdf package panics on some malformed page trees.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
		}
	}()
	page := r.Page(num)
	if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}
