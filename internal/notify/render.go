package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/joseph-ayodele/gradebook-relay/internal/entity"
)

// Summary is everything a notification can say about one run.
type Summary struct {
	RunID  string
	Label  string
	Record entity.LogRecord
	Upload *entity.UploadRef
	// Note is shown above the footer, e.g. when an attachment was withheld.
	Note string
}

// Subject builds the mail subject line.
func Subject(label, identifier string) string {
	return fmt.Sprintf("Hasil Penilaian Otomatis - %s: %s", label, identifier)
}

// StatusClass picks the CSS class for the status cell.
func StatusClass(status string) string {
	s := strings.ToLower(status)
	if strings.Contains(s, "lulus") && !strings.Contains(s, "tidak") {
		return "status-lulus"
	}
	return "status-tidak-lulus"
}

var summaryTmpl = template.Must(template.New("summary").Parse(`<html>
<head>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
.container { max-width: 600px; margin: 0 auto; }
.header { background-color: #f8f9fa; padding: 20px; border-radius: 8px; }
.content { padding: 20px; }
.data-table { width: 100%; border-collapse: collapse; margin: 20px 0; }
.data-table th, .data-table td { border: 1px solid #ddd; padding: 12px; text-align: left; }
.data-table th { background-color: #f2f2f2; }
.status-lulus { color: #28a745; font-weight: bold; }
.status-tidak-lulus { color: #dc3545; font-weight: bold; }
</style>
</head>
<body>
<div class="container">
<div class="header">
<h1>Hasil Penilaian Otomatis</h1>
<p>Penilaian untuk file: <strong>{{.Filename}}</strong></p>
</div>
<div class="content">
<h2>Detail Hasil</h2>
<table class="data-table">
<tr><th>Field</th><th>Nilai</th></tr>
<tr><td>{{.Label}}</td><td>{{.Identifier}}</td></tr>
<tr><td>Skor</td><td>{{.Score}}</td></tr>
<tr><td>Status</td><td class="{{.StatusClass}}">{{.Status}}</td></tr>
<tr><td>Waktu Proses</td><td>{{.Timestamp}}</td></tr>
</table>
{{- if .Link}}
<p><a href="{{.Link}}" target="_blank">Lihat file di Google Drive</a></p>
{{- end}}
{{- if .Note}}
<p>{{.Note}}</p>
{{- end}}
<p><em>Email ini dikirim secara otomatis oleh sistem penilaian.</em></p>
</div>
</div>
</body>
</html>
`))

type summaryView struct {
	Label       string
	Identifier  string
	Score       string
	Status      string
	StatusClass string
	Timestamp   string
	Filename    string
	Link        string
	Note        string
}

// RenderHTML renders the summary email body. Values are HTML-escaped.
func RenderHTML(s Summary) (string, error) {
	view := summaryView{
		Label:       s.Label,
		Identifier:  s.Record.Identifier,
		Score:       s.Record.Score.String(),
		Status:      s.Record.Status,
		StatusClass: StatusClass(s.Record.Status),
		Timestamp:   s.Record.Timestamp,
		Filename:    s.Record.Filename,
		Note:        s.Note,
	}
	if s.Upload != nil {
		view.Link = s.Upload.Link
	}
	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}
