package llm

import "strings"

var endpointSuffixes = []string{"/api/v1/generate", "/api/v1", "/api", "/"}

// NormalizeEndpoint strips trailing /, /api, /api/v1 and /api/v1/generate
// until none applies, so every form collapses to the bare base URL.
func NormalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	for {
		trimmed := endpoint
		for _, suffix := range endpointSuffixes {
			trimmed = strings.TrimSuffix(trimmed, suffix)
		}
		if trimmed == endpoint {
			return endpoint
		}
		endpoint = trimmed
	}
}

// BuildStops returns the stop sequences for a call. An explicit stopList is
// combined with the fixed markers; otherwise the user's turn marker is used.
func BuildStops(userLabel string, stopList []string, stopBrackets bool) []string {
	var stops []string
	if len(stopList) > 0 {
		stops = append([]string{"You:", "<START>", "<END>"}, stopList...)
	} else {
		stops = []string{userLabel + ":", "You:", "<START>", "<END>"}
	}
	if stopBrackets {
		stops = append(stops, "[", "]")
	}
	return stops
}
