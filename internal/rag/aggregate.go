package rag

import (
	"sort"
	"time"

	"comet-support/internal/record"
)

const (
	// recurringSerialLimit caps the recurring-serials list.
	recurringSerialLimit = 10
	// stationLimit caps the common-stations list.
	stationLimit = 3
	// notAvailable marks absent descriptions, classes, and empty date spans.
	notAvailable = "N/A"
)

// counter tallies string values while remembering the order each distinct
// value was first seen, so ranking ties resolve to first-seen order.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

// add counts a value when it carries real data; sentinel-absent values are
// skipped uniformly.
func (c *counter) add(raw string) {
	v := record.Clean(raw)
	if v == "" {
		return
	}
	if _, seen := c.counts[v]; !seen {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

// ranked returns entries ordered by descending count, ties in first-seen
// order, keeping only entries with count >= minCount, truncated to limit.
func (c *counter) ranked(minCount, limit int) []CodeCount {
	entries := make([]CodeCount, 0, len(c.order))
	for _, v := range c.order {
		if n := c.counts[v]; n >= minCount {
			entries = append(entries, CodeCount{Code: v, Count: n})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Aggregate reduces a candidate set into ranked statistics per field
// category. Null, empty, and literal "nan" values are uniformly treated as
// absent; any input maps to a defined output, so this never fails. The
// caller fills in the query-context fields.
func Aggregate(candidates []record.Record, topK int) *AggregationResult {
	actions := newCounter()
	failures := newCounter()
	stations := newCounter()
	serials := newCounter()

	materialOrder := make([]string, 0)
	materials := make(map[string]*MaterialSummary)

	var earliest, latest *time.Time

	for i := range candidates {
		rec := &candidates[i]

		actions.add(rec.ActionCode)
		failures.add(rec.FailureCode)
		stations.add(rec.StationNumber)
		serials.add(rec.SerialNumber)

		if code := record.Clean(rec.MaterialCode); code != "" {
			if agg, seen := materials[code]; seen {
				// Description and class stay as first seen, even if later
				// sightings disagree.
				agg.Count++
			} else {
				materials[code] = &MaterialSummary{
					Code:        code,
					Description: orNA(rec.MaterialDescription),
					PartClass:   orNA(rec.PartClass),
					Count:       1,
				}
				materialOrder = append(materialOrder, code)
			}
		}

		if rec.Date != nil {
			if earliest == nil || rec.Date.Before(*earliest) {
				earliest = rec.Date
			}
			if latest == nil || rec.Date.After(*latest) {
				latest = rec.Date
			}
		}
	}

	materialList := make([]MaterialSummary, 0, len(materialOrder))
	for _, code := range materialOrder {
		materialList = append(materialList, *materials[code])
	}
	sort.SliceStable(materialList, func(i, j int) bool {
		return materialList[i].Count > materialList[j].Count
	})
	if len(materialList) > topK {
		materialList = materialList[:topK]
	}

	recurring := make([]SerialCount, 0)
	for _, e := range serials.ranked(2, recurringSerialLimit) {
		recurring = append(recurring, SerialCount{Serial: e.Code, Count: e.Count})
	}

	stationList := make([]StationCount, 0)
	for _, e := range stations.ranked(1, stationLimit) {
		stationList = append(stationList, StationCount{Station: e.Code, Count: e.Count})
	}

	dateRange := DateRange{Earliest: notAvailable, Latest: notAvailable}
	if earliest != nil {
		dateRange.Earliest = earliest.Format(record.DateLayout)
		dateRange.Latest = latest.Format(record.DateLayout)
	}

	return &AggregationResult{
		RetrievedCount:   len(candidates),
		ActionCodes:      actions.ranked(1, topK),
		FailureCodes:     failures.ranked(1, topK),
		Materials:        materialList,
		RecurringSerials: recurring,
		CommonStations:   stationList,
		DateRange:        dateRange,
		MentionedParts:   []string{},
	}
}

func orNA(raw string) string {
	if v := record.Clean(raw); v != "" {
		return v
	}
	return notAvailable
}
