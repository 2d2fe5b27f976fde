package report

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestExportJSONRoundTrip(t *testing.T) {
	original := &AnalysisReport{
		Summary:                    "A quiet office network.",
		ProtocolDistribution:       map[string]float64{"TCP": 70, "DNS": 30},
		AnomaliesAndErrors:         []string{"one retransmission burst"},
		SIPRTPInfo:                 "No VoIP traffic.",
		ImportantTimestampsPackets: "packet 42 at 3.1s",
	}

	data, err := ExportJSON(original)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var parsed AnalysisReport
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("parse exported JSON: %v", err)
	}
	if !reflect.DeepEqual(*original, parsed) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", *original, parsed)
	}
}

func TestNormalizeFillsRequiredFields(t *testing.T) {
	var r AnalysisReport
	r.Normalize()
	if r.Summary != "N/A" || r.SIPRTPInfo != "N/A" || r.ImportantTimestampsPackets != "N/A" {
		t.Fatalf("missing strings not defaulted: %+v", r)
	}
	if r.AnomaliesAndErrors == nil || r.ProtocolDistribution == nil {
		t.Fatalf("missing collections not defaulted: %+v", r)
	}

	var c ComparisonReport
	c.Normalize()
	if c.OverallComparisonSummary != "N/A" || c.SecurityImplications != "N/A" {
		t.Fatalf("comparison strings not defaulted: %+v", c)
	}
	if c.KeyDifferences == nil || c.KeySimilarities == nil {
		t.Fatalf("comparison lists not defaulted: %+v", c)
	}
}

func TestRenderAnalysisHTML(t *testing.T) {
	r := &AnalysisReport{
		Summary:              "Traffic looks <normal>.",
		ProtocolDistribution: map[string]float64{"TCP": 100},
		AnomaliesAndErrors:   []string{"nothing of note"},
	}
	html, err := RenderAnalysisHTML(r, "office.pcap")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if !strings.Contains(html, "office.pcap") {
		t.Errorf("rendered HTML missing file name")
	}
	if !strings.Contains(html, "&lt;normal&gt;") {
		t.Errorf("summary not HTML-escaped:\n%s", html)
	}
	// Fields the report left empty render as their defaults
	if !strings.Contains(html, "N/A") {
		t.Errorf("missing fields not rendered as N/A")
	}
}

func TestRenderComparisonHTMLEmptyLists(t *testing.T) {
	html, err := RenderComparisonHTML(&ComparisonReport{}, "a.pcap vs b.pcap")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "a.pcap vs b.pcap") {
		t.Errorf("rendered HTML missing file label")
	}
	if !strings.Contains(html, "N/A") {
		t.Errorf("empty comparison fields not rendered as N/A")
	}
}
