package report

import (
	"fmt"
	"html/template"
	"strings"
)

var analysisTmpl = template.Must(template.New("analysis").Parse(`<div class="report">
<h2>Analysis: {{.FileName}}</h2>
<section><h3>Summary</h3><p>{{.Report.Summary}}</p></section>
<section><h3>Protocol Distribution</h3>
<table class="dist">
{{range $proto, $pct := .Report.ProtocolDistribution}}<tr><td>{{$proto}}</td><td>{{printf "%.1f" $pct}}%</td></tr>
{{else}}<tr><td colspan="2">N/A</td></tr>
{{end}}</table>
</section>
<section><h3>Anomalies &amp; Errors</h3>
{{if .Report.AnomaliesAndErrors}}<ul>{{range .Report.AnomaliesAndErrors}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>None detected.</p>{{end}}
</section>
<section><h3>SIP / RTP</h3><p>{{.Report.SIPRTPInfo}}</p></section>
<section><h3>Important Timestamps &amp; Packets</h3><p>{{.Report.ImportantTimestampsPackets}}</p></section>
{{if .Report.RawResponse}}<section><h3>Raw Model Reply</h3><pre>{{.Report.RawResponse}}</pre></section>{{end}}
</div>`))

var comparisonTmpl = template.Must(template.New("comparison").Parse(`<div class="report">
<h2>Comparison: {{.FileLabel}}</h2>
<section><h3>Overall Summary</h3><p>{{.Report.OverallComparisonSummary}}</p></section>
<section><h3>Key Differences</h3>
{{if .Report.KeyDifferences}}<ul>{{range .Report.KeyDifferences}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>N/A</p>{{end}}
</section>
<section><h3>Key Similarities</h3>
{{if .Report.KeySimilarities}}<ul>{{range .Report.KeySimilarities}}<li>{{.}}</li>{{end}}</ul>{{else}}<p>N/A</p>{{end}}
</section>
<section><h3>Security Implications</h3><p>{{.Report.SecurityImplications}}</p></section>
<section><h3>Important Timestamps &amp; Packets</h3><p>{{.Report.ImportantTimestampsPackets}}</p></section>
{{if .Report.RawResponse}}<section><h3>Raw Model Reply</h3><pre>{{.Report.RawResponse}}</pre></section>{{end}}
</div>`))

// RenderAnalysisHTML renders the analysis report as an HTML fragment.
func RenderAnalysisHTML(r *AnalysisReport, fileName string) (string, error) {
	r.Normalize()
	var b strings.Builder
	err := analysisTmpl.Execute(&b, struct {
		FileName string
		Report   *AnalysisReport
	}{fileName, r})
	if err != nil {
		return "", fmt.Errorf("failed to render analysis report: %w", err)
	}
	return b.String(), nil
}

// RenderComparisonHTML renders the comparison report as an HTML fragment.
// fileLabel names the compared pair, e.g. "before.pcap vs after.pcap".
func RenderComparisonHTML(r *ComparisonReport, fileLabel string) (string, error) {
	r.Normalize()
	var b strings.Builder
	err := comparisonTmpl.Execute(&b, struct {
		FileLabel string
		Report    *ComparisonReport
	}{fileLabel, r})
	if err != nil {
		return "", fmt.Errorf("failed to render comparison report: %w", err)
	}
	return b.String(), nil
}
