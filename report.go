package trendtap

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

// RenderReportMarkdown formats clusters as a markdown report in the given order
func RenderReportMarkdown(clusters []*Cluster) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d keyword clusters.\n\n", len(clusters))

	for _, c := range clusters {
		fmt.Fprintf(&b, "## %s\n\n", c.ClusterName)
		fmt.Fprintf(&b, "**Primary keyword:** %s\n\n", c.PrimaryKeyword)

		b.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Keywords | %d |\n", c.ClusterSize)
		fmt.Fprintf(&b, "| Total search volume | %d |\n", c.TotalSearchVolume)
		fmt.Fprintf(&b, "| Avg difficulty | %.1f (%s) |\n", c.AvgKeywordDifficulty, c.CompetitionLevel)
		fmt.Fprintf(&b, "| Avg CPC | %.2f |\n", c.AvgCPC)
		fmt.Fprintf(&b, "| Quality score | %.1f |\n", c.ClusterQualityScore)
		fmt.Fprintf(&b, "| Content potential | %.1f |\n\n", c.ContentPotentialScore)

		writeList(&b, "Secondary keywords", c.SecondaryKeywords)
		writeList(&b, "Long-tail keywords", c.LongTailKeywords)
		writeList(&b, "Content ideas", c.ContentIdeas)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

// RenderReportHTML converts the markdown report into a standalone HTML page
func RenderReportHTML(title string, clusters []*Cluster, now time.Time) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(RenderReportMarkdown(clusters)), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
	}{
		Title: title,
		Date:  now.Format("2 January 2006"),
		Body:  template.HTML(buf.String()),
	}

	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return result.String(), nil
}
