package health

import "sort"

// UnlistedPolicy controls how statuses absent from the severity order are
// ranked during aggregation.
type UnlistedPolicy int

const (
	// UnlistedLeastSevere ranks unlisted statuses below every listed one:
	// a custom status an operator never vetted can never outrank DOWN or
	// any other configured status. This is the default.
	UnlistedLeastSevere UnlistedPolicy = iota

	// UnlistedMostSevere ranks unlisted statuses above every listed one:
	// anything unexpected wins the aggregation.
	UnlistedMostSevere
)

// AggregatorConfig configures the status aggregator.
type AggregatorConfig struct {
	// SeverityOrder lists statuses most severe first.
	// Default: DOWN, OUT_OF_SERVICE, UP, UNKNOWN.
	SeverityOrder []Status

	// Unlisted is the ranking policy for statuses missing from
	// SeverityOrder. Default: UnlistedLeastSevere.
	Unlisted UnlistedPolicy
}

// StatusAggregator folds a set of per-component statuses into one aggregate
// status by picking the most severe status present, according to a
// configurable severity order.
//
// Statuses not present in the order are ranked by the UnlistedPolicy; ties
// between unlisted statuses break lexicographically so the result is
// independent of input iteration order.
type StatusAggregator struct {
	rank     map[Status]int
	listed   int
	unlisted UnlistedPolicy
}

// NewStatusAggregator creates an aggregator. With no config the default
// severity order (worst status wins) is used.
func NewStatusAggregator(config ...AggregatorConfig) *StatusAggregator {
	cfg := AggregatorConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	order := cfg.SeverityOrder
	if len(order) == 0 {
		order = DefaultSeverityOrder()
	}

	rank := make(map[Status]int, len(order))
	for i, s := range order {
		if _, exists := rank[s]; exists {
			continue
		}
		rank[s] = i
	}

	return &StatusAggregator{
		rank:     rank,
		listed:   len(rank),
		unlisted: cfg.Unlisted,
	}
}

// Aggregate returns the most severe status present in the given healths.
// An empty input aggregates to UNKNOWN.
func (a *StatusAggregator) Aggregate(healths map[string]Health) Status {
	if len(healths) == 0 {
		return StatusUnknown
	}
	statuses := make([]Status, 0, len(healths))
	for _, h := range healths {
		statuses = append(statuses, h.Status())
	}
	return a.AggregateStatuses(statuses)
}

// AggregateStatuses returns the most severe of the given statuses.
// An empty input aggregates to UNKNOWN.
func (a *StatusAggregator) AggregateStatuses(statuses []Status) Status {
	if len(statuses) == 0 {
		return StatusUnknown
	}

	// Distinct statuses, sorted for deterministic tie-breaking among
	// equally-ranked (unlisted) statuses.
	distinct := make([]Status, 0, len(statuses))
	seen := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		distinct = append(distinct, s)
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i] < distinct[j] })

	worst := distinct[0]
	worstRank := a.statusRank(worst)
	for _, s := range distinct[1:] {
		if r := a.statusRank(s); r < worstRank {
			worst = s
			worstRank = r
		}
	}
	return worst
}

// Rank returns the severity rank of a status under this aggregator's
// configuration; lower means more severe.
func (a *StatusAggregator) Rank(s Status) int {
	return a.statusRank(s)
}

func (a *StatusAggregator) statusRank(s Status) int {
	if r, ok := a.rank[s]; ok {
		if a.unlisted == UnlistedMostSevere {
			return r + 1
		}
		return r
	}
	if a.unlisted == UnlistedMostSevere {
		return 0
	}
	return a.listed
}
