// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package report

import (
	"html/template"
	"io"
)

var reportTemplate = template.Must(template.New("report").Parse(`<html>
<head>
<title>{{.Title}}</title>
<style type="text/css">
td.header {text-align: center; background-color: #ccffff}
td.unit {text-align: center; font-style: italic; font-size: smaller}
</style>
</head>
<body>
<div align="center"><b>{{.Title}}</b></div>
<br>
<table align="center" border="3" cellpadding="2" cellspacing="1">
{{- range $i, $batch := .Batches}}
{{- if $i}}
<tr><td colspan="{{len $.Columns}}"><br></td></tr>
{{- end}}
{{- template "header" $}}
{{- range $batch.Cells}}
<tr>
{{- range .}}<td bgcolor="{{.Color}}">{{if .Blank}}<br>{{else}}{{.Text}}{{end}}</td>{{end -}}
</tr>
{{- end}}
{{- end}}
</table>
<br>
File system benchmarking report generated by fsbench at {{.Generated.Format "Mon Jan 2 15:04:05 2006"}}
</body>
</html>
{{define "header"}}
{{- if .Sections}}
<tr>
{{- range .Sections}}<td colspan="{{.Span}}" class="header">{{if .Title}}<b>{{.Title}}</b>{{else}}<br>{{end}}</td>{{end -}}
</tr>
{{- end}}
<tr>
{{- range .Columns}}<td align="center">{{.Header}}</td>{{end -}}
</tr>
{{- if .Units}}
<tr>
{{- range .Columns}}<td class="unit">{{if .Unit}}{{.Unit}}{{else}}<br>{{end}}</td>{{end -}}
</tr>
{{- end}}
{{- end}}`))

// Render scores r and writes it to w as an HTML document.
func Render(w io.Writer, r *Report) error {
	units := false
	for _, col := range r.Columns {
		if col.Unit != "" {
			units = true
			break
		}
	}
	return reportTemplate.Execute(w, map[string]interface{}{
		"Title":     r.Title,
		"Sections":  r.Sections,
		"Columns":   r.Columns,
		"Units":     units,
		"Batches":   r.Score(),
		"Generated": r.Generated,
	})
}
