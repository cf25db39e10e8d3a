package email

import (
	"bytes"
	"fmt"
	"html/template"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// summaryTemplate is the HTML body of the summary email: the bullet list,
// the highlighted next step, and optionally the full transcription.
var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #667eea; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
    .content { background: #f9fafb; padding: 20px; border-radius: 0 0 8px 8px; }
    .summary-box { background: white; padding: 15px; border-radius: 6px; margin: 15px 0; border-left: 4px solid #667eea; }
    .next-step { background: #fef3c7; padding: 15px; border-radius: 6px; margin: 15px 0; border-left: 4px solid #f59e0b; }
    .transcription { background: #f3f4f6; padding: 15px; border-radius: 6px; margin: 15px 0; font-size: 0.9em; color: #6b7280; }
    ul { padding-left: 20px; }
    li { margin: 8px 0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Voice Agent Summary</h1>
    </div>
    <div class="content">
      <div class="summary-box">
        <h2>Summary</h2>
        <ul>
{{- range .Bullets}}
          <li>{{.}}</li>
{{- end}}
        </ul>
      </div>
      <div class="next-step">
        <h2>Next Step</h2>
        <p><strong>{{.NextStep}}</strong></p>
      </div>
{{- if .Transcription}}
      <div class="transcription">
        <h3>Full Transcription</h3>
        <p>{{.Transcription}}</p>
      </div>
{{- end}}
    </div>
  </div>
</body>
</html>
`))

// renderBody produces the HTML body and its plain-text alternative.
// The text part is derived from the rendered HTML rather than assembled
// separately, so the two representations can never drift apart.
func renderBody(params Params) (html string, text string, err error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, params); err != nil {
		return "", "", fmt.Errorf("rendering summary template: %w", err)
	}
	html = buf.String()

	text, err = htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", "", fmt.Errorf("deriving text body: %w", err)
	}
	return html, text, nil
}
