package onboarding

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

var (
	welcomeHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/welcome.html"))
	welcomeText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/welcome.txt"))
)

// renderWelcome returns the text and HTML bodies of the welcome mail.
func renderWelcome() (text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := welcomeText.Execute(&tb, nil); err != nil {
		return "", "", err
	}
	if err := welcomeHTML.Execute(&hb, nil); err != nil {
		return "", "", err
	}
	return tb.String(), hb.String(), nil
}
