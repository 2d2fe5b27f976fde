package utils

import (
	"expvar"
)

var AnalysesSubmittedTotal = expvar.NewInt("analyses_submitted_total")
var AnalysesCompletedTotal = expvar.NewInt("analyses_completed_total")
var AnalysesFailedTotal = expvar.NewInt("analyses_failed_total")
var SubmitConflictsTotal = expvar.NewInt("submit_conflicts_total")
var LLMShapeFallbacks = expvar.NewInt("llm_shape_fallbacks_total")
var LLMSalvagedReplies = expvar.NewInt("llm_salvaged_replies_total")
