package api

import (
	"html/template"

	"github.com/moneyrush/round-engine/internal/model"
)

type printData struct {
	Meta model.Meta
	Top  []model.ResultRow
	Rows []model.ResultRow
}

var printTemplate = template.Must(template.New("print").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Final Results</title>
<style>
body{font-family:Arial,sans-serif;padding:24px;color:#111}
h1,h2{margin:0 0 10px 0}
.meta{margin-bottom:14px;font-size:12px;color:#444}
table{width:100%;border-collapse:collapse;margin-top:12px}
th,td{border:1px solid #333;padding:8px;font-size:12px}
th{background:#f0f0f0}
.top{background:#fff7cc}
@media print{button{display:none}}
</style></head>
<body>
<button onclick="window.print()">Print or Save as PDF</button>
<h1>Final Results</h1>
<div class="meta">{{.Meta.EventName}} · {{.Meta.GameName}} · Sorted by After Tax value</div>
<h2>Top 3</h2>
<ol>{{range .Top}}<li>{{.TeamName}} : {{.AfterTax.StringFixed 2}}</li>{{end}}</ol>
<h2>Leaderboard</h2>
<table>
<thead><tr><th>Rank</th><th>Team</th><th>Final Total</th><th>Tax</th><th>After Tax</th></tr></thead>
<tbody>{{range .Rows}}<tr{{if le .Rank 3}} class="top"{{end}}><td>{{.Rank}}</td><td>{{.TeamName}}</td><td>{{.FinalTotal.StringFixed 2}}</td><td>{{.TaxTotal.StringFixed 2}}</td><td>{{.AfterTax.StringFixed 2}}</td></tr>{{end}}</tbody>
</table>
<p class="meta">{{.Meta.Copyright}}</p>
</body></html>
`))

func newPrintData(meta model.Meta, rows []model.ResultRow) printData {
	top := rows
	if len(top) > 3 {
		top = top[:3]
	}
	return printData{Meta: meta, Top: top, Rows: rows}
}
