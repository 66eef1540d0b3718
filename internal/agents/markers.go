package agents

import "strings"

// Reflexion markers emitted by the QA agent.
const (
	MarkerApproved   = "APROBADO:"
	MarkerRejected   = "RECHAZADO:"
	MarkerCorrection = "CORRECCIÓN:"
)

// ExtractValidated resolves the QA agent's verdict into the final customer
// reply. An approved draft wins; a rejection must carry a correction, which
// is used as-is. Output without markers falls back to the trimmed text so a
// misbehaving auditor never blocks the reply.
func ExtractValidated(output string) string {
	if idx := strings.Index(output, MarkerApproved); idx >= 0 {
		return strings.TrimSpace(output[idx+len(MarkerApproved):])
	}
	if idx := strings.Index(output, MarkerCorrection); idx >= 0 {
		return strings.TrimSpace(output[idx+len(MarkerCorrection):])
	}
	return strings.TrimSpace(output)
}
