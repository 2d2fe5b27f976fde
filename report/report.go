package report

import (
	"encoding/json"
	"fmt"
)

// AnalysisReport is the JSON shape the LLM is asked to produce for a single
// capture. Every field is required in the rendered output; Normalize fills
// anything the model omitted.
type AnalysisReport struct {
	Summary                    string             `json:"summary"`
	ProtocolDistribution       map[string]float64 `json:"protocol_distribution"`
	AnomaliesAndErrors         []string           `json:"anomalies_and_errors"`
	SIPRTPInfo                 string             `json:"sip_rtp_info"`
	ImportantTimestampsPackets string             `json:"important_timestamps_packets"`
	RawResponse                string             `json:"raw_response,omitempty"`
}

// ComparisonReport is the two-capture equivalent.
type ComparisonReport struct {
	OverallComparisonSummary   string   `json:"overall_comparison_summary"`
	KeyDifferences             []string `json:"key_differences"`
	KeySimilarities            []string `json:"key_similarities"`
	SecurityImplications       string   `json:"security_implications"`
	ImportantTimestampsPackets string   `json:"important_timestamps_packets"`
	RawResponse                string   `json:"raw_response,omitempty"`
}

const missing = "N/A"

// Normalize guarantees every required analysis field is populated.
func (r *AnalysisReport) Normalize() {
	if r.Summary == "" {
		r.Summary = missing
	}
	if r.ProtocolDistribution == nil {
		r.ProtocolDistribution = map[string]float64{}
	}
	if r.AnomaliesAndErrors == nil {
		r.AnomaliesAndErrors = []string{}
	}
	if r.SIPRTPInfo == "" {
		r.SIPRTPInfo = missing
	}
	if r.ImportantTimestampsPackets == "" {
		r.ImportantTimestampsPackets = missing
	}
}

// Normalize guarantees every required comparison field is populated.
func (r *ComparisonReport) Normalize() {
	if r.OverallComparisonSummary == "" {
		r.OverallComparisonSummary = missing
	}
	if r.KeyDifferences == nil {
		r.KeyDifferences = []string{}
	}
	if r.KeySimilarities == nil {
		r.KeySimilarities = []string{}
	}
	if r.SecurityImplications == "" {
		r.SecurityImplications = missing
	}
	if r.ImportantTimestampsPackets == "" {
		r.ImportantTimestampsPackets = missing
	}
}

// FromRaw builds a fallback analysis report when the model reply could not be
// coerced into the schema at all.
func FromRaw(raw string) *AnalysisReport {
	r := &AnalysisReport{
		Summary:     "The model reply could not be parsed into the expected structure; see raw_response.",
		RawResponse: raw,
	}
	r.Normalize()
	return r
}

// ComparisonFromRaw is the comparison-flavored raw fallback.
func ComparisonFromRaw(raw string) *ComparisonReport {
	r := &ComparisonReport{
		OverallComparisonSummary: "The model reply could not be parsed into the expected structure; see raw_response.",
		RawResponse:              raw,
	}
	r.Normalize()
	return r
}

// ExportJSON marshals a report for client download. The exported bytes parse
// back to an object equal to the in-memory report.
func ExportJSON(report any) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export report: %w", err)
	}
	return data, nil
}
