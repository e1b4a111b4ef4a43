package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/reactionwatch/internal/reactions"
)

const (
	textPreviewLen = 200
	htmlPreviewLen = 250
	digestHeading  = "New Reactions on Your Comments"
)

// Digest is a rendered notification, ready for any transport.
type Digest struct {
	Subject string
	Text    string
	HTML    string
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

type htmlCard struct {
	Emoji   string
	Login   string
	Target  string
	When    string
	Preview template.HTML
	URL     string
}

var htmlLayout = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Helvetica, Arial, sans-serif; }
    </style>
  </head>
  <body style="padding: 20px; max-width: 600px; margin: 0 auto;">
    <h2 style="color: #24292e;">{{.Heading}}</h2>
{{- range .Cards}}
    <div style="margin-bottom: 20px; padding: 15px; border: 1px solid #e1e4e8; border-radius: 6px;">
      <div style="margin-bottom: 10px;">
        <strong>{{.Emoji}} {{.Login}}</strong> reacted to {{.Target}}{{if .When}} <span style="color: #6a737d;">{{.When}}</span>{{end}}
      </div>
      <div style="color: #586069; font-size: 14px; margin-bottom: 10px;">{{.Preview}}</div>
      <a href="{{.URL}}" style="color: #0366d6; text-decoration: none;">View comment &rarr;</a>
    </div>
{{- end}}
    <p style="color: #586069; font-size: 12px; margin-top: 30px;">This email was sent by reactionwatch.</p>
  </body>
</html>
`))

// Render builds the digest for a non-empty batch. now anchors the relative
// times shown in the HTML body.
func Render(batch *reactions.Batch, subjectPrefix string, now time.Time) (Digest, error) {
	if batch.Len() == 0 {
		return Digest{}, fmt.Errorf("cannot render an empty batch")
	}

	var d Digest
	d.Subject = subject(batch.Records)
	if subjectPrefix != "" {
		d.Subject = strings.TrimSpace(subjectPrefix) + " " + d.Subject
	}
	d.Text = textBody(batch.Records)

	html, err := htmlBody(batch.Records, now)
	if err != nil {
		return Digest{}, err
	}
	d.HTML = html
	return d, nil
}

func subject(records []reactions.NewReaction) string {
	if len(records) == 1 {
		r := records[0]
		return fmt.Sprintf("%s %s reacted to %s", r.Reaction.Content.Emoji(), r.Reaction.AuthorLogin, r.Item.Target())
	}
	return fmt.Sprintf("%d new reactions on your GitHub comments", len(records))
}

func textBody(records []reactions.NewReaction) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%s %s reacted to %s: \"%s\"\n   %s",
			r.Reaction.Content.Emoji(),
			r.Reaction.AuthorLogin,
			r.Item.Target(),
			truncate(r.Item.Body, textPreviewLen),
			r.Item.URL,
		))
	}
	return digestHeading + "\n\n" + strings.Join(lines, "\n\n")
}

func htmlBody(records []reactions.NewReaction, now time.Time) (string, error) {
	cards := make([]htmlCard, 0, len(records))
	for _, r := range records {
		preview, err := renderPreview(truncate(r.Item.Body, htmlPreviewLen))
		if err != nil {
			return "", err
		}
		card := htmlCard{
			Emoji:   r.Reaction.Content.Emoji(),
			Login:   r.Reaction.AuthorLogin,
			Target:  r.Item.Target(),
			Preview: preview,
			URL:     r.Item.URL,
		}
		if !r.Reaction.CreatedAt.IsZero() {
			card.When = humanize.RelTime(r.Reaction.CreatedAt, now, "ago", "from now")
		}
		cards = append(cards, card)
	}

	var buf bytes.Buffer
	err := htmlLayout.Execute(&buf, struct {
		Heading string
		Cards   []htmlCard
	}{Heading: digestHeading, Cards: cards})
	if err != nil {
		return "", fmt.Errorf("failed to render digest html: %w", err)
	}
	return buf.String(), nil
}

// renderPreview converts a markdown snippet to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func renderPreview(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// truncate collapses whitespace and cuts to max runes, ending in "...".
func truncate(s string, max int) string {
	cleaned := strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(cleaned) <= max {
		return cleaned
	}
	runes := []rune(cleaned)
	return string(runes[:max-3]) + "..."
}
