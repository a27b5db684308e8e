package server

import (
	"html/template"
	"strings"
)

var funcs = template.FuncMap{
	"checked": func(list, option string) bool {
		for _, item := range strings.Split(list, ",") {
			if strings.EqualFold(strings.TrimSpace(item), option) {
				return true
			}
		}
		return false
	},
}

var pages = template.Must(template.New("layout").Funcs(funcs).Parse(`{{ define "head" }}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }} · crewforge</title>
<style>
body{max-width:52rem;margin:2rem auto;padding:0 1rem;font-family:system-ui,sans-serif;line-height:1.5}
label{display:block;font-weight:600;margin-top:1rem}
input[type=text],select,textarea{width:100%;padding:.4rem;font:inherit}
textarea{min-height:8rem}
.help{color:#555;font-size:.9rem}
.error{background:#fde8e8;border:1px solid #e0a0a0;padding:.75rem;margin:1rem 0}
.exports form{display:inline-block;margin-right:.5rem}
article{border-top:1px solid #ddd;margin-top:1.5rem;padding-top:1rem}
img{max-width:100%}
</style>
</head>
<body>
<p><a href="/">crewforge</a></p>
{{ end }}

{{ define "foot" }}</body>
</html>
{{ end }}

{{ define "index" }}{{ template "head" . }}
<h1>Crews</h1>
<ul>
{{ range .Variants }}<li><a href="/variants/{{ .Name }}">{{ .Title }}</a>: {{ .Description }}</li>
{{ end }}</ul>
{{ template "foot" . }}{{ end }}

{{ define "form" }}{{ template "head" . }}
<h1>{{ .Variant.Title }}</h1>
<p>{{ .Variant.Description }}</p>
{{ if .Error }}<div class="error">{{ .Error }}</div>{{ end }}
<form method="post" action="/variants/{{ .Variant.Name }}">
{{ $values := .Values }}
{{ range .Variant.Fields }}
  <label for="{{ .Name }}">{{ .Label }}{{ if .Required }} *{{ end }}</label>
  {{ $value := index $values .Name }}
  {{ if eq .Kind "textarea" }}
  <textarea id="{{ .Name }}" name="{{ .Name }}">{{ $value }}</textarea>
  {{ else if eq .Kind "select" }}
  <select id="{{ .Name }}" name="{{ .Name }}">
    {{ range .Options }}<option{{ if eq . $value }} selected{{ end }}>{{ . }}</option>{{ end }}
  </select>
  {{ else if eq .Kind "multi" }}
  {{ $name := .Name }}
  {{ range .Options }}<div><input type="checkbox" name="{{ $name }}" value="{{ . }}"{{ if checked $value . }} checked{{ end }}> {{ . }}</div>{{ end }}
  {{ else }}
  <input type="text" id="{{ .Name }}" name="{{ .Name }}" value="{{ $value }}">
  {{ end }}
  {{ if .Help }}<div class="help">{{ .Help }}</div>{{ end }}
{{ end }}
<p><button type="submit">Create</button></p>
</form>
{{ template "foot" . }}{{ end }}

{{ define "result" }}{{ template "head" . }}
<h1>{{ .Variant.Title }}</h1>
<p>Run {{ .RunID }}{{ if .OutputPath }} · saved to <code>{{ .OutputPath }}</code>{{ end }}</p>
{{ if .ImageError }}<div class="error">{{ .ImageError }}</div>{{ end }}
{{ if .Image }}<img alt="Generated image" src="{{ .Image }}">{{ end }}
<div class="exports">
{{ $md := .Markdown }}{{ $file := .FileName }}
{{ range .Formats }}<form method="post" action="/export/{{ . }}">
<input type="hidden" name="filename" value="{{ $file }}">
<textarea name="markdown" hidden>{{ $md }}</textarea>
<button type="submit">Download .{{ . }}</button>
</form>{{ end }}
</div>
<article>{{ .Body }}</article>
{{ template "foot" . }}{{ end }}
`))
