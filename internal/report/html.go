package report

import (
	"html/template"
	"io"

	"github.com/deixis/testrig/internal/policy"
)

const (
	colorPass = "#5bff14"
	colorFail = "#ff0900"
	colorSkip = "#d0d0d0"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Test of the parser and interpreter</title>
<style>
body { font-family: sans-serif; }
h1 { text-align: center; color: red; font-size: 50px; }
.intro, .warning { text-align: center; }
.warning { font-size: 30px; font-weight: bold; }
table { text-align: center; font-size: 18px; margin-left: auto; margin-right: auto; border-collapse: collapse; border: 2px solid black; }
th { padding: 10px; border: 2px solid black; font-size: 24px; }
td { padding: 10px 10px; border: 2px solid black; }
td.name { padding-left: 100px; padding-right: 100px; }
pre { margin: 0; text-align: left; }
</style>
</head>
<body>
<h1>TESTRIG RESULTS</h1>
<div class="intro">Run {{.ID}}: {{.Summary.Total}} tests, {{.Summary.Passed}} passed, {{.Summary.Failed}} failed. Red cells signify an error, green cells signify success.</div>
{{range .Warnings}}<div class="warning">{{.}}</div>
{{end}}<br>
<table>
<tr><th>Name of the test file</th><th>Expected RC</th>{{if .Parse}}<th>RC - PARSER</th>{{end}}{{if .Interpret}}<th>RC - INTERPRET</th><th>Expected output</th><th>Actual output</th>{{end}}</tr>
{{range .Rows}}<tr>
<td class="name">{{.Source}}</td>
<td>{{.Expected}}</td>
{{if $.Parse}}<td style="background-color: {{.ParseColor}};" title="{{.ParseDetail}}">{{.ParseCell}}</td>
{{end}}{{if $.Interpret}}<td style="background-color: {{.InterpretColor}};" title="{{.InterpretDetail}}">{{.InterpretCell}}</td>
<td><pre>{{.ExpectedOutput}}</pre></td>
<td style="background-color: {{.OutputColor}};"><pre>{{.ActualOutput}}</pre></td>
{{end}}</tr>
{{end}}</table>
</body>
</html>
`))

type htmlRow struct {
	Source          string
	Expected        string
	ParseCell       string
	ParseColor      template.CSS
	ParseDetail     string
	InterpretCell   string
	InterpretColor  template.CSS
	InterpretDetail string
	ExpectedOutput  string
	ActualOutput    string
	OutputColor     template.CSS
}

type htmlPage struct {
	ID        string
	Summary   Summary
	Warnings  []string
	Parse     bool
	Interpret bool
	Rows      []htmlRow
}

type htmlRenderer struct{}

func (htmlRenderer) Render(w io.Writer, r *RunResult) error {
	plan := policy.Decide(r.Config.Mode)
	page := htmlPage{
		ID:        r.ID,
		Summary:   r.Summary(),
		Warnings:  r.Warnings,
		Parse:     plan.Parse,
		Interpret: plan.Interpret,
	}
	for i := range r.Outcomes {
		o := &r.Outcomes[i]
		row := htmlRow{
			Source:          o.Source,
			Expected:        o.ExpectedCode,
			ParseCell:       StageCell(o.Parse),
			ParseColor:      stageColor(o.Parse),
			InterpretCell:   StageCell(o.Interpret),
			InterpretColor:  stageColor(o.Interpret),
			ExpectedOutput:  o.ExpectedOutput,
			ActualOutput:    o.ActualOutput,
			OutputColor:     colorSkip,
			ParseDetail:     detail(o.Parse),
			InterpretDetail: detail(o.Interpret),
		}
		if o.Error != "" {
			row.ParseDetail = o.Error
			row.InterpretDetail = o.Error
		}
		if o.OutputChecked {
			row.OutputColor = colorFail
			if o.OutputMatch {
				row.OutputColor = colorPass
			}
		}
		page.Rows = append(page.Rows, row)
	}
	return htmlTemplate.Execute(w, page)
}

func stageColor(s *StageResult) template.CSS {
	switch {
	case s == nil:
		return colorSkip
	case s.Status == Pass:
		return colorPass
	case s.Status.Failed():
		return colorFail
	}
	return colorSkip
}

func detail(s *StageResult) string {
	if s == nil {
		return ""
	}
	return s.Detail
}
