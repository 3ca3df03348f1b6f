package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// palette is the colour set used for terminal output.
var palette = struct {
	Title, Success, Warning, Error, Muted lipgloss.Color
}{
	Title:   lipgloss.Color("#7C3AED"),
	Success: lipgloss.Color("#A6E3A1"),
	Warning: lipgloss.Color("#F9E2AF"),
	Error:   lipgloss.Color("#F38BA8"),
	Muted:   lipgloss.Color("#6C7086"),
}

// printer writes command output, styled when w is a terminal.
type printer struct {
	w      io.Writer
	styled bool

	title, label, success, warning, failure, muted lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w, styled: isTerminal(w)}
	plain := lipgloss.NewStyle()
	p.title, p.label, p.success, p.warning, p.failure, p.muted = plain, plain, plain, plain, plain, plain
	if p.styled {
		p.title = lipgloss.NewStyle().Bold(true).Foreground(palette.Title)
		p.label = lipgloss.NewStyle().Bold(true)
		p.success = lipgloss.NewStyle().Foreground(palette.Success)
		p.warning = lipgloss.NewStyle().Foreground(palette.Warning)
		p.failure = lipgloss.NewStyle().Foreground(palette.Error)
		p.muted = lipgloss.NewStyle().Foreground(palette.Muted)
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) heading(s string) {
	p.printf("%s\n\n", p.title.Render(s))
}

func (p *printer) field(name string, value any) {
	p.printf("  %s %v\n", p.label.Render(fmt.Sprintf("%-16s", name+":")), value)
}

// status colours a document status.
func (p *printer) status(s domain.DocumentStatus) string {
	switch s {
	case domain.StatusIndexed:
		return p.success.Render(string(s))
	case domain.StatusPartial:
		return p.warning.Render(string(s))
	default:
		return p.failure.Render(string(s))
	}
}

// ==================== Run summary ====================

func (p *printer) summary(s *domain.RunSummary) {
	p.heading("Ingestion summary")
	p.field("Scanned", s.Scanned)
	p.field("Unsupported", s.Unsupported)
	p.field("Selected", s.Selected)
	p.field("Skipped", s.Skipped)
	p.field("Indexed", p.success.Render(fmt.Sprint(s.Indexed)))
	p.field("Partial", p.warning.Render(fmt.Sprint(s.Partial)))
	p.field("Failed", p.failure.Render(fmt.Sprint(s.Failed)))
	p.field("Unchanged", s.Unchanged)
	p.field("Chunks inserted", s.ChunksInserted)
	p.field("OCR pages", s.OCRPages)
	p.field("Duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))

	if len(s.Outcomes) == 0 {
		return
	}
	p.printf("\n")
	for _, o := range s.Outcomes {
		label := p.status(o.Status)
		if o.Unchanged {
			label = p.muted.Render("same")
		}
		p.printf("  %-8s %s %s\n", label, o.Name, p.muted.Render("("+string(o.Reason)+")"))
		if o.Error != "" {
			p.printf("           %s\n", p.muted.Render(o.Error))
		}
	}
}

// ==================== Catalog ====================

func (p *printer) overview(o *domain.IndexOverview) {
	p.heading("Index status")
	p.field("Documents", o.Documents)
	p.field("Indexed", p.success.Render(fmt.Sprint(o.Indexed)))
	p.field("Partial", p.warning.Render(fmt.Sprint(o.Partial)))
	p.field("Failed", p.failure.Render(fmt.Sprint(o.Failed)))
	p.field("Chunks", o.Chunks)
	p.field("OCR chunks", o.OCRChunks)
	p.field("Last ingestion", formatTime(o.LastIngestedAt))
}

func (p *printer) documents(docs []domain.Document) {
	for i := range docs {
		d := &docs[i]
		p.printf("  %-8s %s\n", p.status(d.Status), d.Name)
		p.printf("           %s\n", p.muted.Render(docLocation(d)))
		if d.Error != nil && *d.Error != "" {
			p.printf("           %s\n", p.failure.Render(*d.Error))
		}
	}
	p.printf("\nTotal: %d documents\n", len(docs))
}

func (p *printer) document(d *domain.Document, chunks []domain.Chunk) {
	p.heading("Document: " + d.Name)
	p.field("ID", d.ID)
	p.field("Status", p.status(d.Status))
	p.field("Type", d.MIMEType)
	p.field("Folder", orDash(d.FolderPath))
	p.field("URL", orDash(d.URL))
	p.field("Modified", formatTime(d.ModifiedTime))
	p.field("Last ingested", formatTime(d.LastIngestedAt))
	if d.ContentHash != nil {
		p.field("Content hash", *d.ContentHash)
	}
	if d.Error != nil && *d.Error != "" {
		p.field("Error", p.failure.Render(*d.Error))
	}

	p.printf("\n  %s\n", p.label.Render(fmt.Sprintf("Chunks (%d)", len(chunks))))
	for i := range chunks {
		c := &chunks[i]
		p.printf("    %3d  %-11s %s\n", c.PageOrSlide, c.TextOrigin, preview(c.Text, 60))
	}
}

// ==================== Helpers ====================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func docLocation(d *domain.Document) string {
	if d.FolderPath == "" {
		return d.ID
	}
	return d.FolderPath + " · " + d.ID
}

// preview returns the first line of s, cut to n runes.
func preview(s string, n int) string {
	line, _, _ := strings.Cut(s, "\n")
	r := []rune(line)
	if len(r) <= n {
		return line
	}
	return string(r[:n-1]) + "…"
}
