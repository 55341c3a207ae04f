package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/pdf-reformatter-api/internal/i18n"
)

// --- fakes ---

type fakeExtractor struct {
	content *ExtractedContent
	err     error
	calls   int
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (*ExtractedContent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

type fakeReformatter struct {
	out   string
	err   error
	input string
}

func (f *fakeReformatter) Reformat(_ context.Context, raw string) (string, error) {
	f.input = raw
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(_ context.Context, formatted, name string, format Format) (*Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Document{
		Filename:    strings.TrimSuffix(name, ".pdf") + "." + string(format),
		ContentType: "application/octet-stream",
		Data:        []byte(formatted),
	}, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (f *fakeRecorder) Record(_ context.Context, o Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
}

// keyedErr mimics the collaborator error types that carry a message key.
type keyedErr struct{ key i18n.Key }

func (e *keyedErr) Error() string        { return "keyed failure" }
func (e *keyedErr) MessageKey() i18n.Key { return e.key }

func newTestPipeline(ext *fakeExtractor, ref *fakeReformatter, ren *fakeRenderer, rec *fakeRecorder) *Pipeline {
	deps := Deps{Extractor: ext, Reformatter: ref, Renderer: ren}
	if rec != nil {
		deps.Recorder = rec
	}
	return New("session-1", deps, i18n.Match("en"))
}

func newHappyPipeline() *Pipeline {
	ext, ref, ren := happyDeps()
	return newTestPipeline(ext, ref, ren, nil)
}

func pdfDoc() SourceDocument {
	return SourceDocument{Filename: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4 fake")}
}

func happyDeps() (*fakeExtractor, *fakeReformatter, *fakeRenderer) {
	return &fakeExtractor{content: &ExtractedContent{RawText: "--- Page 1 ---\nhello\n\n", PageCount: 1}},
		&fakeReformatter{out: "# Title\n\nBody line."},
		&fakeRenderer{}
}

// --- tests ---

func TestUploadRejectsNonPDF(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"plain text", "text/plain"},
		{"word document", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"empty", ""},
		{"malformed", ";;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newHappyPipeline()
			err := p.Upload(SourceDocument{Filename: "x", ContentType: tt.contentType, Data: []byte("x")})

			require.ErrorIs(t, err, ErrNotPDF)
			snap := p.Snapshot()
			assert.Equal(t, StatusIdle, snap.Status)
			assert.Equal(t, "Please upload a PDF file only", snap.ErrorMessage)
			assert.False(t, p.HasFile())
		})
	}
}

func TestUploadAcceptsPDFWithParameters(t *testing.T) {
	p := newHappyPipeline()
	require.NoError(t, p.Upload(SourceDocument{Filename: "a.pdf", ContentType: "application/pdf; charset=binary"}))
	assert.True(t, p.HasFile())
}

func TestUploadClearsPreviousRejection(t *testing.T) {
	p := newHappyPipeline()
	require.ErrorIs(t, p.Upload(SourceDocument{ContentType: "image/png"}), ErrNotPDF)
	require.NoError(t, p.Upload(pdfDoc()))
	assert.Empty(t, p.Snapshot().ErrorMessage)
}

func TestStartHappyPath(t *testing.T) {
	ext, ref, ren := happyDeps()
	rec := &fakeRecorder{}
	p := newTestPipeline(ext, ref, ren, rec)

	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))

	snap := p.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, "# Title\n\nBody line.", snap.FormattedText)
	assert.Equal(t, 1, snap.PageCount)
	assert.Equal(t, ext.content.RawText, ref.input)

	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, StatusCompleted, rec.outcomes[0].Status)
	assert.Equal(t, "report.pdf", rec.outcomes[0].Filename)
}

func TestStartWithoutFile(t *testing.T) {
	p := newHappyPipeline()
	assert.ErrorIs(t, p.Start(context.Background()), ErrNoFile)
	assert.Equal(t, StatusIdle, p.Status())
}

func TestStartTwiceIsInvalid(t *testing.T) {
	p := newHappyPipeline()
	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Begin())
	assert.ErrorIs(t, p.Begin(), ErrInvalidTransition)
	assert.ErrorIs(t, p.Upload(pdfDoc()), ErrInvalidTransition)
	assert.ErrorIs(t, p.Reset(), ErrInvalidTransition)
}

func TestExtractionFailure(t *testing.T) {
	ext, ref, ren := happyDeps()
	ext.err = &keyedErr{key: i18n.MsgExtractionFailed}
	p := newTestPipeline(ext, ref, ren, nil)

	require.NoError(t, p.Upload(pdfDoc()))
	err := p.Start(context.Background())
	require.Error(t, err)

	snap := p.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "The PDF file could not be read", snap.ErrorMessage)
	assert.Equal(t, "keyed failure", snap.ErrorDetail)
	assert.Empty(t, ref.input, "reformatter must not run after extraction fails")
}

func TestReformatFailureKeepsRawText(t *testing.T) {
	ext, ref, ren := happyDeps()
	ref.err = &keyedErr{key: i18n.MsgFormattingFailed}
	rec := &fakeRecorder{}
	p := newTestPipeline(ext, ref, ren, rec)

	require.NoError(t, p.Upload(pdfDoc()))
	require.Error(t, p.Start(context.Background()))

	assert.Equal(t, StatusError, p.Status())
	assert.Equal(t, ext.content.RawText, p.RawText())
	assert.Empty(t, p.FormattedText())
	assert.Equal(t, "Failed to process the text with AI", p.Snapshot().ErrorMessage)

	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, StatusError, rec.outcomes[0].Status)

	require.NoError(t, p.Reset())
	assert.Empty(t, p.RawText())
	assert.Equal(t, StatusIdle, p.Status())
}

func TestUnkeyedFailureUsesDefaultMessage(t *testing.T) {
	ext, ref, ren := happyDeps()
	ref.err = errors.New("boom")
	p := newTestPipeline(ext, ref, ren, nil)

	require.NoError(t, p.Upload(pdfDoc()))
	require.Error(t, p.Start(context.Background()))
	assert.Equal(t, "An unexpected error occurred during processing", p.Snapshot().ErrorMessage)
}

func TestDownload(t *testing.T) {
	p := newHappyPipeline()

	_, err := p.Download(context.Background(), FormatDOCX)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))

	doc, err := p.Download(context.Background(), FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "report.docx", doc.Filename)
	assert.Equal(t, StatusCompleted, p.Status())
}

func TestDownloadFailure(t *testing.T) {
	ext, ref, ren := happyDeps()
	ren.err = errors.New("zip failed")
	p := newTestPipeline(ext, ref, ren, nil)

	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))

	_, err := p.Download(context.Background(), FormatDOCX)
	require.Error(t, err)

	snap := p.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "Failed to create the Word file", snap.ErrorMessage)
}

func TestResetClearsEverything(t *testing.T) {
	p := newHappyPipeline()
	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Reset())

	snap := p.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Filename)
	assert.Empty(t, snap.FormattedText)
	assert.Empty(t, snap.RawPreview)
	assert.Empty(t, snap.ErrorMessage)
	assert.False(t, p.HasFile())
}

func TestNewUploadDiscardsPreviousResults(t *testing.T) {
	p := newHappyPipeline()
	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.Upload(SourceDocument{Filename: "next.pdf", ContentType: PDFMimeType, Data: []byte("%PDF-")}))

	snap := p.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, "next.pdf", snap.Filename)
	assert.Empty(t, snap.FormattedText)
	assert.Empty(t, p.RawText())
}

func TestSnapshotPreviewIsBounded(t *testing.T) {
	ext, ref, ren := happyDeps()
	ext.content = &ExtractedContent{RawText: strings.Repeat("ب", 5000), PageCount: 3}
	p := newTestPipeline(ext, ref, ren, nil)

	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))

	snap := p.Snapshot()
	assert.Equal(t, 5000, snap.RawChars)
	assert.Len(t, []rune(snap.RawPreview), previewChars)
}

func TestRunRequiresBegin(t *testing.T) {
	p := newHappyPipeline()
	require.NoError(t, p.Upload(pdfDoc()))
	assert.ErrorIs(t, p.Run(context.Background()), ErrInvalidTransition)
}

func TestCancelUndoesBegin(t *testing.T) {
	p := newHappyPipeline()
	require.NoError(t, p.Upload(pdfDoc()))

	require.ErrorIs(t, p.Cancel(), ErrInvalidTransition)

	require.NoError(t, p.Begin())
	require.NoError(t, p.Cancel())
	assert.Equal(t, StatusIdle, p.Status())
	assert.True(t, p.HasFile())

	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, StatusCompleted, p.Status())
}

type panickingReformatter struct{}

func (panickingReformatter) Reformat(context.Context, string) (string, error) {
	panic("provider blew up")
}

func TestRunRecoversFromPanic(t *testing.T) {
	ext, _, ren := happyDeps()
	rec := &fakeRecorder{}
	p := New("session-1", Deps{Extractor: ext, Reformatter: panickingReformatter{}, Renderer: ren, Recorder: rec}, i18n.Match("en"))

	require.NoError(t, p.Upload(pdfDoc()))
	err := p.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider blew up")

	snap := p.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "An unexpected error occurred during processing", snap.ErrorMessage)
	assert.NotEmpty(t, snap.RawPreview)
	require.Len(t, rec.outcomes, 1)
	assert.Equal(t, StatusError, rec.outcomes[0].Status)

	require.NoError(t, p.Reset())
}

// ctxRenderer fails the way a context-aware encoder does.
type ctxRenderer struct{}

func (ctxRenderer) Render(ctx context.Context, formatted, name string, format Format) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Document{Filename: "report." + string(format), Data: []byte(formatted)}, nil
}

func TestDownloadIgnoresCancelledRequest(t *testing.T) {
	ext, ref, _ := happyDeps()
	p := New("session-1", Deps{Extractor: ext, Reformatter: ref, Renderer: ctxRenderer{}}, i18n.Match("en"))
	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := p.Download(ctx, FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nBody line.", string(doc.Data))
	assert.Equal(t, StatusCompleted, p.Status())

	_, err = p.Download(context.Background(), FormatMarkdown)
	assert.NoError(t, err, "a second download still works")
}

func TestRetryKeepsFile(t *testing.T) {
	ext, ref, ren := happyDeps()
	ref.err = errors.New("quota exceeded")
	p := newTestPipeline(ext, ref, ren, nil)

	require.NoError(t, p.Upload(pdfDoc()))
	require.Error(t, p.Start(context.Background()))
	require.ErrorIs(t, p.Start(context.Background()), ErrInvalidTransition)

	require.NoError(t, p.Retry())
	snap := p.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, "report.pdf", snap.Filename)
	assert.Empty(t, snap.ErrorMessage)
	assert.Empty(t, snap.ErrorDetail)
	assert.Empty(t, snap.RawPreview)
	assert.True(t, p.HasFile())

	ref.err = nil
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, StatusCompleted, p.Status())
}

func TestRetryOnlyFromError(t *testing.T) {
	p := newHappyPipeline()
	assert.ErrorIs(t, p.Retry(), ErrInvalidTransition, "idle")

	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Retry(), ErrInvalidTransition, "completed")
	assert.Equal(t, StatusCompleted, p.Status())
}

func TestDownloadUnsupportedContentKeepsConversion(t *testing.T) {
	ext, ref, ren := happyDeps()
	ren.err = fmt.Errorf("render pdf: %w", ErrUnsupportedContent)
	p := newTestPipeline(ext, ref, ren, nil)
	require.NoError(t, p.Upload(pdfDoc()))
	require.NoError(t, p.Start(context.Background()))

	_, err := p.Download(context.Background(), FormatPDF)
	require.ErrorIs(t, err, ErrUnsupportedContent)

	snap := p.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Empty(t, snap.ErrorMessage)
	assert.Equal(t, "# Title\n\nBody line.", snap.FormattedText)
}
