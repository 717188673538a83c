package health

import "testing"

func TestStatusAggregator_Empty(t *testing.T) {
	agg := NewStatusAggregator()

	if got := agg.Aggregate(map[string]Health{}); got != StatusUnknown {
		t.Errorf("Aggregate(empty) = %v, want UNKNOWN", got)
	}
	if got := agg.AggregateStatuses(nil); got != StatusUnknown {
		t.Errorf("AggregateStatuses(nil) = %v, want UNKNOWN", got)
	}
}

func TestStatusAggregator_WorstWins(t *testing.T) {
	agg := NewStatusAggregator()

	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all up", []Status{StatusUp, StatusUp}, StatusUp},
		{"down wins", []Status{StatusUp, StatusDown, StatusUp}, StatusDown},
		{"out of service beats up", []Status{StatusUp, StatusOutOfService}, StatusOutOfService},
		{"down beats out of service", []Status{StatusOutOfService, StatusDown}, StatusDown},
		{"up beats unknown", []Status{StatusUnknown, StatusUp}, StatusUp},
		{"only unknown", []Status{StatusUnknown}, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.AggregateStatuses(tt.statuses); got != tt.want {
				t.Errorf("AggregateStatuses(%v) = %v, want %v", tt.statuses, got, tt.want)
			}
		})
	}
}

func TestStatusAggregator_OrderIndependent(t *testing.T) {
	agg := NewStatusAggregator()

	healths := map[string]Health{
		"db":    Up(),
		"queue": Down(nil),
		"cache": OutOfService(),
	}

	// Maps iterate in random order; repeated runs cover permutations.
	for i := 0; i < 20; i++ {
		if got := agg.Aggregate(healths); got != StatusDown {
			t.Fatalf("Aggregate() = %v, want DOWN", got)
		}
	}
}

func TestStatusAggregator_CustomOrder(t *testing.T) {
	agg := NewStatusAggregator(AggregatorConfig{
		SeverityOrder: []Status{"FATAL", StatusDown, StatusOutOfService, StatusUp, StatusUnknown},
	})

	got := agg.AggregateStatuses([]Status{StatusDown, "FATAL", StatusUp})
	if got != Status("FATAL") {
		t.Errorf("AggregateStatuses() = %v, want FATAL", got)
	}
}

func TestStatusAggregator_UnlistedLeastSevere(t *testing.T) {
	agg := NewStatusAggregator() // default policy

	// An unlisted custom status must not outrank any listed status.
	got := agg.AggregateStatuses([]Status{"WARMING_UP", StatusUp})
	if got != StatusUp {
		t.Errorf("AggregateStatuses() = %v, want UP", got)
	}

	// With only unlisted statuses present, one of them wins,
	// deterministically.
	got = agg.AggregateStatuses([]Status{"ZEBRA", "ALPHA"})
	if got != Status("ALPHA") {
		t.Errorf("AggregateStatuses() = %v, want ALPHA (lexicographic tie-break)", got)
	}
}

func TestStatusAggregator_UnlistedMostSevere(t *testing.T) {
	agg := NewStatusAggregator(AggregatorConfig{Unlisted: UnlistedMostSevere})

	got := agg.AggregateStatuses([]Status{"FATAL", StatusDown})
	if got != Status("FATAL") {
		t.Errorf("AggregateStatuses() = %v, want FATAL", got)
	}
}

func TestStatusAggregator_Rank(t *testing.T) {
	agg := NewStatusAggregator()

	if agg.Rank(StatusDown) >= agg.Rank(StatusUp) {
		t.Error("DOWN should rank more severe than UP")
	}
	if agg.Rank("CUSTOM") <= agg.Rank(StatusUnknown) {
		t.Error("unlisted status should rank less severe than UNKNOWN by default")
	}
}
