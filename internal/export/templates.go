package export

import (
	"bytes"
	"html/template"
)

// RenderDealHTML renders the deal record template.
func RenderDealHTML(record DealRecord) (string, error) {
	var buf bytes.Buffer
	if err := dealTemplate.Execute(&buf, record); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var dealTemplate = template.Must(template.New("deal").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Deal Record</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #222; line-height: 1.5; }
        h1 { font-size: 20pt; border-bottom: 2px solid #0066cc; padding-bottom: 8px; }
        h2 { font-size: 13pt; margin-top: 24px; color: #0066cc; }
        .meta { color: #555; font-size: 10pt; }
        .badge { display: inline-block; padding: 2px 8px; border-radius: 4px; background: #e8f5e9; color: #1b5e20; font-size: 9pt; }
        .box { background: #f7f7f7; border-left: 3px solid #0066cc; padding: 10px 14px; margin: 10px 0; }
        table { width: 100%; border-collapse: collapse; font-size: 10pt; margin-top: 8px; }
        th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; }
        th { background: #f0f0f0; }
    </style>
</head>
<body>
    <h1>Deal Record</h1>
    <p class="meta">Concern {{.ConcernID}} &middot; {{.Category}} &middot; <span class="badge">{{.Status}}</span></p>

    <h2>Concern</h2>
    <div class="box">{{.Summary}}</div>
    {{if .OriginalText}}<p>{{.OriginalText}}</p>{{end}}
    <p class="meta">Raised by {{.OwnerName}}</p>

    <h2>Accepted Proposal</h2>
    <div class="box">{{.ProposalText}}</div>
    <p class="meta">{{.ProviderName}} ({{.ProviderRole}})</p>

    <h2>Verification</h2>
    <p>Verified by {{.VerifiedBy}}{{if .VerifiedAt}} on {{.VerifiedAt}}{{end}}.</p>

    {{if .Events}}
    <h2>Audit Trail</h2>
    <table>
        <tr><th>When</th><th>Action</th><th>Actor</th></tr>
        {{range .Events}}
        <tr><td>{{.When}}</td><td>{{.What}}</td><td>{{.Actor}}</td></tr>
        {{end}}
    </table>
    {{end}}
</body>
</html>`))
