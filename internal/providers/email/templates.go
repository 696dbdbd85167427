package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const TemplateOverdueNotice = "overdue_notice.html"

type OverdueLine struct {
	Title    string
	DueDate  string
	DaysLate int
	Fine     string
}

type OverdueNoticeData struct {
	LibraryName  string
	LibraryEmail string
	MemberName   string
	Items        []OverdueLine
	TotalFine    string
}

// Render executes one of the embedded templates.
func Render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return body.String(), nil
}
