package llm

import "fmt"

const analysisSchema = `{
  "summary": "string",
  "protocol_distribution": {"<protocol name>": <percentage number>},
  "anomalies_and_errors": ["string", ...],
  "sip_rtp_info": "string",
  "important_timestamps_packets": "string"
}`

const comparisonSchema = `{
  "overall_comparison_summary": "string",
  "key_differences": ["string", ...],
  "key_similarities": ["string", ...],
  "security_implications": "string",
  "important_timestamps_packets": "string"
}`

func analysisSystemPrompt() string {
	return fmt.Sprintf(`You are a senior network analyst. You are given summarized
statistics extracted from a packet capture. Write a concise expert analysis.

Respond with a single JSON object and nothing else, exactly matching this schema:
%s

Percentages in protocol_distribution must sum to roughly 100. If the capture
contains no SIP or RTP traffic, say so in sip_rtp_info. anomalies_and_errors
may be an empty array.`, analysisSchema)
}

func analysisUserPrompt(snippet string) string {
	return fmt.Sprintf("Analyze the following capture summary:\n\n%s", snippet)
}

func comparisonSystemPrompt() string {
	return fmt.Sprintf(`You are a senior network analyst. You are given summarized
statistics from two packet captures. Compare them for an engineer debugging a
network issue.

Respond with a single JSON object and nothing else, exactly matching this schema:
%s`, comparisonSchema)
}

func comparisonUserPrompt(snippetA, snippetB string) string {
	return fmt.Sprintf("Capture A summary:\n\n%s\n\nCapture B summary:\n\n%s\n\nCompare the two captures.", snippetA, snippetB)
}
