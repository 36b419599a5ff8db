package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	subjectLeadAssignedFmt    = "New student assigned: %s"
	subjectLeadTransferredFmt = "Student transferred to you: %s"
)

type baseEmailData struct {
	Title   string
	Heading string
}

type LeadAssignedData struct {
	baseEmailData
	CounsellorName   string
	StudentName      string
	CourseInterested string
	Method           string
}

type LeadTransferredData struct {
	baseEmailData
	StudentName string
	Reason      string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
