package export

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var converter = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Fragment converts markdown to an HTML fragment. Raw HTML in the input is
// not passed through.
func Fragment(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>body{max-width:46rem;margin:2rem auto;font-family:Georgia,serif;line-height:1.5;padding:0 1rem}hr{page-break-after:always;border:0}</style>
</head>
<body>
{{ .Body }}
</body>
</html>
`))

// HTML renders markdown as a standalone UTF-8 HTML document.
func HTML(md, title string) ([]byte, error) {
	body, err := Fragment(md)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = firstHeading(md)
	}
	var buf bytes.Buffer
	if err := page.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, body}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func firstHeading(md string) string {
	for _, b := range Blocks(md) {
		if b.Kind == BlockHeading {
			return b.Text
		}
	}
	return "crewforge"
}
