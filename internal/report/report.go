package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ironsheep/docscan-mcp/internal/pipeline"
)

// Markdown renders a reviewer report for a.
//
// Sections: validations, scores, anomalies, pipeline errors (only when
// there are any) and statistics. A missing fusion output is reported as
// "not available" rather than as a zero score.
func Markdown(a *pipeline.Analysis) string {
	var b strings.Builder

	name := a.Source
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&b, "# Document Analysis Report\n\n")
	fmt.Fprintf(&b, "## Document: %s\n\n", name)
	if a.Width > 0 && a.Height > 0 {
		fmt.Fprintf(&b, "Page size: %d x %d px\n\n", a.Width, a.Height)
	}

	b.WriteString("### Validations\n\n")
	fmt.Fprintf(&b, "- **Signature**: %s\n", signatureState(a))
	fmt.Fprintf(&b, "- **Identity photo**: %s\n", photoState(a))
	fmt.Fprintf(&b, "- **Checkboxes**: %s\n\n", checkboxState(a))

	b.WriteString("### Scores\n\n")
	if a.Fusion == nil {
		b.WriteString("- **Global score**: not available\n\n")
	} else {
		fmt.Fprintf(&b, "- **Global score**: %.2f / 100\n\n", a.Fusion.GlobalScore)
		b.WriteString("| Component | Score |\n|---|---|\n")
		for _, c := range a.Fusion.Components() {
			fmt.Fprintf(&b, "| %s | %.2f |\n", c.Name, c.Score)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Anomalies\n\n")
	if a.Fusion == nil || len(a.Fusion.Anomalies) == 0 {
		b.WriteString("No anomalies detected\n\n")
	} else {
		for _, an := range a.Fusion.Anomalies {
			fmt.Fprintf(&b, "- %s\n", an)
		}
		b.WriteString("\n")
	}

	if len(a.Errors) > 0 {
		b.WriteString("### Pipeline errors\n\n")
		for _, e := range a.Errors {
			fmt.Fprintf(&b, "- %s\n", e.Message)
		}
		b.WriteString("\n")
	}

	b.WriteString("### Statistics\n\n")
	zones := 0
	if a.Signature != nil {
		zones = len(a.Signature.Zones)
	}
	textLen := 0
	if a.Text != nil {
		textLen = utf8.RuneCountInString(a.Text.Text)
	}
	fmt.Fprintf(&b, "- Signature zones detected: %d\n", zones)
	fmt.Fprintf(&b, "- Extracted text length: %d characters\n", textLen)
	if a.Checkboxes != nil && len(a.Checkboxes.Boxes) > 0 {
		fmt.Fprintf(&b, "- Checked boxes: %d/%d\n", a.Checkboxes.CheckedCount(), len(a.Checkboxes.Boxes))
	}

	return b.String()
}

// HTML renders the Markdown report as a standalone HTML page.
func HTML(a *pipeline.Analysis) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(a)), &body); err != nil {
		return "", eris.Wrap(err, "report: render html")
	}

	title := "Document Analysis Report"
	if a.Source != "" {
		title += " - " + a.Source
	}

	var out strings.Builder
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(title))
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.String(), nil
}

func signatureState(a *pipeline.Analysis) string {
	switch {
	case a.Signature == nil:
		return "not analysed"
	case a.Signature.Present:
		return "present"
	default:
		return "absent"
	}
}

func photoState(a *pipeline.Analysis) string {
	switch {
	case a.Photo == nil:
		return "not analysed"
	case a.Photo.Found:
		return "detected"
	default:
		return "not detected"
	}
}

func checkboxState(a *pipeline.Analysis) string {
	if a.Checkboxes == nil {
		return "not analysed"
	}
	return fmt.Sprintf("%d detected", len(a.Checkboxes.Boxes))
}
