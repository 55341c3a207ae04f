// Package pipeline drives one PDF → AI → document conversion.
//
// A Pipeline is a small explicit state machine:
//
//	idle → reading_pdf → ai_processing → completed
//	completed → generating_output → completed
//	any step → error;  error/completed → idle (reset)
//	error → idle, file kept (retry)
//
// It only talks to its collaborators through the TextExtractor,
// TextReformatter and DocumentRenderer contracts, so tests swap them for fakes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
)

// Status is the current stage of a pipeline.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusReadingPDF       Status = "reading_pdf"
	StatusAIProcessing     Status = "ai_processing"
	StatusGeneratingOutput Status = "generating_output"
	StatusCompleted        Status = "completed"
	StatusError            Status = "error"
)

// Busy reports whether a step is running in this status.
func (s Status) Busy() bool {
	return s == StatusReadingPDF || s == StatusAIProcessing || s == StatusGeneratingOutput
}

// PDFMimeType is the only content type Upload accepts.
const PDFMimeType = "application/pdf"

// previewChars bounds the raw text preview exposed in snapshots.
const previewChars = 1000

var (
	// ErrNotPDF is returned by Upload for anything that isn't application/pdf.
	ErrNotPDF = errors.New("only application/pdf uploads are accepted")
	// ErrNoFile is returned by Start when nothing has been uploaded.
	ErrNoFile = errors.New("no file uploaded")
	// ErrInvalidTransition is returned when an action is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid pipeline transition")
	// ErrUnsupportedContent is wrapped by renderers when the requested format
	// cannot carry the text (e.g. a script the PDF font lacks). The
	// conversion itself is fine, so Download leaves it completed.
	ErrUnsupportedContent = errors.New("content not supported by this format")
)

// SourceDocument is the uploaded PDF. It is never modified.
type SourceDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExtractedContent is the page-delimited text pulled out of a SourceDocument.
type ExtractedContent struct {
	RawText   string
	PageCount int
}

// Format selects the output container for Download.
type Format string

const (
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// Document is a rendered, downloadable file.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TextExtractor turns PDF bytes into page-delimited text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (*ExtractedContent, error)
}

// TextReformatter cleans raw extracted text into Markdown-annotated text.
type TextReformatter interface {
	Reformat(ctx context.Context, rawText string) (string, error)
}

// DocumentRenderer serializes formatted text into a downloadable file.
type DocumentRenderer interface {
	Render(ctx context.Context, formatted, originalName string, format Format) (*Document, error)
}

// Recorder receives the outcome of every conversion attempt. Optional.
type Recorder interface {
	Record(ctx context.Context, o Outcome)
}

// Outcome summarizes a finished conversion attempt.
type Outcome struct {
	SessionID      string
	Filename       string
	SizeBytes      int
	PageCount      int
	RawChars       int
	FormattedChars int
	Status         Status
	Error          string
}

// messageKeyer is implemented by collaborator errors that map to a
// user-facing message.
type messageKeyer interface {
	MessageKey() i18n.Key
}

// Snapshot is a read-only copy of a pipeline's state.
type Snapshot struct {
	Status        Status    `json:"status"`
	Filename      string    `json:"filename,omitempty"`
	SizeBytes     int       `json:"size_bytes,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
	RawPreview    string    `json:"raw_preview,omitempty"`
	RawChars      int       `json:"raw_chars,omitempty"`
	FormattedText string    `json:"formatted_text,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	ErrorDetail   string    `json:"error_detail,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Deps bundles a pipeline's collaborators.
type Deps struct {
	Extractor   TextExtractor
	Reformatter TextReformatter
	Renderer    DocumentRenderer
	Recorder    Recorder
	Logger      *zap.Logger
}

// Pipeline holds the state of a single session's conversion.
//
// The mutex only guards state; collaborator calls run without it so that
// status reads stay responsive while a step is in flight. Each transition
// checks its start state under the lock, which is what keeps two requests
// from driving the same pipeline at once.
type Pipeline struct {
	id       string
	deps     Deps
	messages i18n.Catalog
	logger   *zap.Logger

	// Go Pattern: RWMutex lets many pollers read a snapshot at once while a
	// worker goroutine holds the write lock for each state change.
	mu        sync.RWMutex
	status    Status
	file      *SourceDocument
	content   *ExtractedContent
	formatted string
	errMsg    string
	errDetail string
	updatedAt time.Time
}

// New creates an idle pipeline.
func New(id string, deps Deps, messages i18n.Catalog) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		id:        id,
		deps:      deps,
		messages:  messages,
		logger:    logger.With(zap.String("session_id", id)),
		status:    StatusIdle,
		updatedAt: time.Now(),
	}
}

// ID returns the pipeline's session ID.
func (p *Pipeline) ID() string { return p.id }

// Status returns the current status.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// UpdatedAt returns the time of the last state change.
func (p *Pipeline) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// Upload records a new source document, discarding everything derived from
// the previous one. Non-PDF content types are rejected with a localized error
// message and leave the status and recorded file untouched.
func (p *Pipeline) Upload(doc SourceDocument) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status.Busy() {
		return fmt.Errorf("%w: upload while %s", ErrInvalidTransition, p.status)
	}

	if !isPDF(doc.ContentType) {
		p.errMsg = p.messages.Text(i18n.MsgNotPDF)
		p.errDetail = fmt.Sprintf("content type %q", doc.ContentType)
		p.touch()
		p.logger.Warn("⚠️  Rejected non-PDF upload",
			zap.String("filename", doc.Filename), zap.String("content_type", doc.ContentType))
		return ErrNotPDF
	}

	p.file = &doc
	p.content = nil
	p.formatted = ""
	p.errMsg = ""
	p.errDetail = ""
	p.status = StatusIdle
	p.touch()

	p.logger.Info("📄 PDF uploaded", zap.String("filename", doc.Filename), zap.Int("size", len(doc.Data)))
	return nil
}

// Begin moves an idle pipeline with a file into reading_pdf. It is split from
// Run so HTTP handlers can reject bad requests synchronously and leave the
// slow part to a worker.
func (p *Pipeline) Begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusIdle {
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, p.status)
	}
	if p.file == nil {
		return ErrNoFile
	}

	p.content = nil
	p.formatted = ""
	p.errMsg = ""
	p.errDetail = ""
	p.status = StatusReadingPDF
	p.touch()
	return nil
}

// Run executes extraction and reformatting for a pipeline already moved to
// reading_pdf by Begin. It returns the error that sent the pipeline to the
// error state, if any.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	p.mu.RLock()
	status, file := p.status, p.file
	p.mu.RUnlock()

	if status != StatusReadingPDF || file == nil {
		return fmt.Errorf("%w: run while %s", ErrInvalidTransition, status)
	}

	// A panicking collaborator must not leave the pipeline busy forever.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversion panicked: %v", r)
			p.fail(err)
			p.record(ctx)
		}
	}()

	started := time.Now()
	p.logger.Info("📖 Extracting text", zap.String("filename", file.Filename))

	content, err := p.deps.Extractor.Extract(ctx, file.Data)
	if err != nil {
		p.fail(err)
		p.record(ctx)
		return err
	}

	p.mu.Lock()
	p.content = content
	p.status = StatusAIProcessing
	p.touch()
	p.mu.Unlock()

	p.logger.Info("🤖 Reformatting text",
		zap.Int("pages", content.PageCount), zap.Int("raw_chars", len([]rune(content.RawText))))

	formatted, err := p.deps.Reformatter.Reformat(ctx, content.RawText)
	if err != nil {
		p.fail(err)
		p.record(ctx)
		return err
	}

	p.mu.Lock()
	p.formatted = formatted
	p.status = StatusCompleted
	p.touch()
	p.mu.Unlock()

	p.logger.Info("✅ Conversion completed", zap.Duration("elapsed", time.Since(started)))
	p.record(ctx)
	return nil
}

// Start runs the whole conversion synchronously: Begin followed by Run.
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.Begin(); err != nil {
		return err
	}
	return p.Run(ctx)
}

// Cancel returns a pipeline that was begun but never run to idle, keeping
// the uploaded file. Used when the work could not be scheduled.
func (p *Pipeline) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusReadingPDF {
		return fmt.Errorf("%w: cancel while %s", ErrInvalidTransition, p.status)
	}
	p.status = StatusIdle
	p.touch()
	return nil
}

// Download renders the formatted text. The pipeline passes through
// generating_output and returns to completed on success.
//
// Rendering is not cancelled with ctx: a client that goes away mid-download
// must not push a completed conversion into error.
func (p *Pipeline) Download(ctx context.Context, format Format) (*Document, error) {
	ctx = context.WithoutCancel(ctx)

	p.mu.Lock()
	if p.status != StatusCompleted || p.file == nil || p.formatted == "" {
		status := p.status
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: download while %s", ErrInvalidTransition, status)
	}
	p.status = StatusGeneratingOutput
	p.touch()
	formatted, filename := p.formatted, p.file.Filename
	p.mu.Unlock()

	doc, err := p.deps.Renderer.Render(ctx, formatted, filename, format)
	if errors.Is(err, ErrUnsupportedContent) {
		p.mu.Lock()
		p.status = StatusCompleted
		p.touch()
		p.mu.Unlock()
		p.logger.Warn("⚠️  Format cannot carry this text", zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}
	if err != nil {
		p.mu.Lock()
		p.status = StatusError
		p.errMsg = p.messages.Text(i18n.MsgRenderFailed)
		p.errDetail = err.Error()
		p.touch()
		p.mu.Unlock()
		p.logger.Error("❌ Document generation failed", zap.String("format", string(format)), zap.Error(err))
		return nil, err
	}

	p.mu.Lock()
	p.status = StatusCompleted
	p.touch()
	p.mu.Unlock()

	p.logger.Info("💾 Document generated",
		zap.String("format", string(format)), zap.String("output", doc.Filename), zap.Int("bytes", len(doc.Data)))
	return doc, nil
}

// Reset returns the pipeline to idle and drops the file, both texts and the
// error message. Not allowed while a step is running.
func (p *Pipeline) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status.Busy() {
		return fmt.Errorf("%w: reset while %s", ErrInvalidTransition, p.status)
	}

	p.status = StatusIdle
	p.file = nil
	p.content = nil
	p.formatted = ""
	p.errMsg = ""
	p.errDetail = ""
	p.touch()
	return nil
}

// Retry returns a failed pipeline to idle so the same file can be converted
// again. Extracted and formatted text and the error are cleared; the file
// stays. Only allowed from error.
func (p *Pipeline) Retry() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != StatusError {
		return fmt.Errorf("%w: retry while %s", ErrInvalidTransition, p.status)
	}

	p.status = StatusIdle
	p.content = nil
	p.formatted = ""
	p.errMsg = ""
	p.errDetail = ""
	p.touch()
	return nil
}

// RawText returns the extracted text, if any.
func (p *Pipeline) RawText() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.content == nil {
		return ""
	}
	return p.content.RawText
}

// FormattedText returns the reformatted text, if any.
func (p *Pipeline) FormattedText() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.formatted
}

// HasFile reports whether a source document is recorded.
func (p *Pipeline) HasFile() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.file != nil
}

// Snapshot returns a copy of the current state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		Status:        p.status,
		FormattedText: p.formatted,
		ErrorMessage:  p.errMsg,
		ErrorDetail:   p.errDetail,
		UpdatedAt:     p.updatedAt,
	}
	if p.file != nil {
		s.Filename = p.file.Filename
		s.SizeBytes = len(p.file.Data)
	}
	if p.content != nil {
		raw := []rune(p.content.RawText)
		s.PageCount = p.content.PageCount
		s.RawChars = len(raw)
		if len(raw) > previewChars {
			raw = raw[:previewChars]
		}
		s.RawPreview = string(raw)
	}
	return s
}

// fail moves the pipeline to the error state. Extracted text, if any, is
// kept so it stays inspectable until reset.
func (p *Pipeline) fail(err error) {
	key := i18n.MsgUnexpected
	var keyed messageKeyer
	if errors.As(err, &keyed) {
		key = keyed.MessageKey()
	}

	p.mu.Lock()
	stage := p.status
	p.status = StatusError
	p.errMsg = p.messages.Text(key)
	p.errDetail = err.Error()
	p.touch()
	p.mu.Unlock()

	p.logger.Error("❌ Conversion failed", zap.String("stage", string(stage)), zap.Error(err))
}

func (p *Pipeline) record(ctx context.Context) {
	if p.deps.Recorder == nil {
		return
	}

	p.mu.RLock()
	o := Outcome{
		SessionID:      p.id,
		Status:         p.status,
		FormattedChars: len([]rune(p.formatted)),
		Error:          p.errDetail,
	}
	if p.file != nil {
		o.Filename = p.file.Filename
		o.SizeBytes = len(p.file.Data)
	}
	if p.content != nil {
		o.PageCount = p.content.PageCount
		o.RawChars = len([]rune(p.content.RawText))
	}
	p.mu.RUnlock()

	p.deps.Recorder.Record(ctx, o)
}

// touch must be called with mu held.
func (p *Pipeline) touch() {
	p.updatedAt = time.Now()
}

func isPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == PDFMimeType
}
