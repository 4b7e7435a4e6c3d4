package rag

// CodeCount is one ranked code entry in an aggregation category.
type CodeCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// MaterialSummary aggregates sightings of one material code. Description and
// part class stick to whatever the first sighting carried.
type MaterialSummary struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	PartClass   string `json:"part_class"`
	Count       int    `json:"count"`
}

// SerialCount is one recurring serial number entry (count is always > 1).
type SerialCount struct {
	Serial string `json:"serial"`
	Count  int    `json:"count"`
}

// StationCount is one ranked station entry.
type StationCount struct {
	Station string `json:"station"`
	Count   int    `json:"count"`
}

// DateRange is the span of present dates across the candidate set, or the
// "N/A" sentinel on both ends when no candidate carried a date.
type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

// AggregationResult is the reduced context object handed to the formatter
// and ultimately the text generator. Every list field is always non-nil so
// downstream consumers see a deterministic shape; it is request-scoped and
// never persisted.
type AggregationResult struct {
	RetrievedCount   int               `json:"retrieved_count"`
	ActionCodes      []CodeCount       `json:"action_codes"`
	FailureCodes     []CodeCount       `json:"failure_codes"`
	Materials        []MaterialSummary `json:"materials"`
	RecurringSerials []SerialCount     `json:"recurring_serials"`
	CommonStations   []StationCount    `json:"common_stations"`
	DateRange        DateRange         `json:"date_range"`
	QueryContext     string            `json:"query_context"`
	MentionedParts   []string          `json:"mentioned_parts"`
}
