package endpoint

import (
	"net/http"

	"github.com/jonwraymond/healthops/health"
)

// StatusCodeMapper maps aggregate statuses to HTTP response codes. The
// mapping is a table, not hardcoded: operators can make OUT_OF_SERVICE a
// 200 during planned maintenance, or map custom statuses.
type StatusCodeMapper struct {
	codes map[health.Status]int
}

// NewStatusCodeMapper creates a mapper with the default table
// (UP/UNKNOWN -> 200, DOWN/OUT_OF_SERVICE -> 503) overlaid with the given
// overrides.
func NewStatusCodeMapper(overrides map[health.Status]int) *StatusCodeMapper {
	codes := map[health.Status]int{
		health.StatusUp:           http.StatusOK,
		health.StatusUnknown:      http.StatusOK,
		health.StatusDown:         http.StatusServiceUnavailable,
		health.StatusOutOfService: http.StatusServiceUnavailable,
	}
	for s, c := range overrides {
		codes[s] = c
	}
	return &StatusCodeMapper{codes: codes}
}

// Code returns the HTTP code for a status. Unmapped statuses answer 200:
// an unfamiliar status must not make the health endpoint itself look
// broken.
func (m *StatusCodeMapper) Code(s health.Status) int {
	if c, ok := m.codes[s]; ok {
		return c
	}
	return http.StatusOK
}
