package health

// Status represents the state of a component or of the system as a whole.
//
// Statuses are plain strings so indicators can introduce custom values
// (for example "FATAL" or "WARMING_UP"). The canonical values below cover
// the common cases and carry a well-known severity ordering used by the
// aggregator.
type Status string

const (
	// StatusUnknown indicates the component state cannot be determined.
	StatusUnknown Status = "UNKNOWN"

	// StatusUp indicates the component is functioning as expected.
	StatusUp Status = "UP"

	// StatusOutOfService indicates the component has been taken out of
	// service intentionally.
	StatusOutOfService Status = "OUT_OF_SERVICE"

	// StatusDown indicates the component has suffered an unexpected failure.
	StatusDown Status = "DOWN"
)

// String returns the status value.
func (s Status) String() string {
	return string(s)
}

// DefaultSeverityOrder is the default ordering used to pick the aggregate
// status, most severe first.
func DefaultSeverityOrder() []Status {
	return []Status{StatusDown, StatusOutOfService, StatusUp, StatusUnknown}
}
