package attach

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// ReportItem is one search hit rendered into the report.
type ReportItem struct {
	Title   string
	URL     string
	Content string
}

// ReportSection groups the hits of a single search query.
type ReportSection struct {
	Query string
	Items []ReportItem
}

// Builder writes email attachments into a working directory.
type Builder struct {
	Dir string
}

func NewBuilder(dir string) *Builder {
	return &Builder{Dir: dir}
}

// SearchReport renders all search findings for a goal into a PDF and
// returns the file path.
func (b *Builder) SearchReport(goal string, sections []ReportSection) (string, error) {
	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		return "", err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(goal, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, "Research Report: "+goal, "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, "Generated "+time.Now().Format("2006-01-02 15:04"), "", "L", false)
	pdf.Ln(4)

	for _, section := range sections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 6, "Query: "+section.Query, "", "L", false)
		pdf.Ln(1)

		for i, item := range section.Items {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.MultiCell(0, 5, fmt.Sprintf("%d. %s", i+1, item.Title), "", "L", false)
			pdf.SetFont("Helvetica", "I", 8)
			pdf.MultiCell(0, 4, item.URL, "", "L", false)
			if item.Content != "" {
				pdf.SetFont("Helvetica", "", 9)
				content := item.Content
				if len(content) > 1200 {
					content = content[:1200] + " ..."
				}
				pdf.MultiCell(0, 4, content, "", "L", false)
			}
			pdf.Ln(2)
		}
		pdf.Ln(3)
	}

	path := filepath.Join(b.Dir, fmt.Sprintf("report-%s-%d.pdf", sanitizeName(goal), time.Now().Unix()))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// sanitizeName makes a string safe for use in a file name.
func sanitizeName(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	name := strings.Trim(sb.String(), "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	if len(name) > 30 {
		name = name[:30]
	}
	return name
}
