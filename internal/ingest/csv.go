package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"comet-support/internal/record"
)

// columnAliases maps each canonical field to the header spellings seen in
// source exports. Headers are compared lowercased and trimmed.
var columnAliases = map[string][]string{
	"date":                 {"date"},
	"part_number":          {"part number", "partnumber", "part_number"},
	"serial_number":        {"serialnumber", "serial_number", "serial no", "serial no."},
	"type_name":            {"typename", "type name", "type_name"},
	"station_number":       {"stationnumber", "station number", "station_number"},
	"station_description":  {"stationdescription", "station description", "station_description"},
	"failure_code":         {"failure code", "failure_code", "faulire code", "fault code"},
	"failure_description":  {"failure description", "failure_description", "desc", "issue", "problem"},
	"defect":               {"defect"},
	"failure_details":      {"failuredetails", "failure details", "failure_details", "details"},
	"action_code":          {"action code", "action_code", "action"},
	"material_code":        {"material code", "material_code"},
	"material_description": {"material desc", "material description", "material_desc", "material_description"},
	"part_class":           {"partclass", "part class", "part_class"},
}

// dateLayouts are tried in order when parsing the date column. Anything
// unparsable becomes a nil date, never an error.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	time.RFC3339,
}

// LoadCSV reads a failure export and normalizes it into the canonical record
// schema. Missing columns are materialized as empty fields so every record
// exposes the full field set.
func LoadCSV(path string) ([]record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus csv: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return parse(f)
}

func parse(r io.Reader) ([]record.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("corpus csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	// Map canonical field name -> column position, via the alias table.
	columns := make(map[string]int)
	for idx, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		for canonical, aliases := range columnAliases {
			for _, alias := range aliases {
				if name == alias {
					if _, taken := columns[canonical]; !taken {
						columns[canonical] = idx
					}
				}
			}
		}
	}

	var records []record.Record
	var badDates int
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}

		field := func(canonical string) string {
			idx, ok := columns[canonical]
			if !ok || idx >= len(row) {
				return ""
			}
			return record.Clean(row[idx])
		}

		rec := record.Record{
			PartNumber:          field("part_number"),
			SerialNumber:        field("serial_number"),
			TypeName:            field("type_name"),
			StationNumber:       field("station_number"),
			StationDescription:  field("station_description"),
			FailureCode:         field("failure_code"),
			FailureDescription:  field("failure_description"),
			Defect:              field("defect"),
			FailureDetails:      field("failure_details"),
			ActionCode:          field("action_code"),
			MaterialCode:        field("material_code"),
			MaterialDescription: field("material_description"),
			PartClass:           field("part_class"),
		}

		if raw := field("date"); raw != "" {
			if t, ok := parseDate(raw); ok {
				rec.Date = &t
			} else {
				badDates++
			}
		}

		records = append(records, rec)
	}

	if badDates > 0 {
		slog.Warn("unparsable dates coerced to null", "count", badDates)
	}

	return records, nil
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
