package record

import (
	"fmt"
	"strings"
	"time"
)

// Record is one normalized historical failure event. Every record exposes
// exactly this field set; missing source columns are materialized as empty
// strings (or a nil date), never omitted.
type Record struct {
	Date                *time.Time `json:"date"`
	PartNumber          string     `json:"part_number"`
	SerialNumber        string     `json:"serial_number"`
	TypeName            string     `json:"type_name"`
	StationNumber       string     `json:"station_number"`
	StationDescription  string     `json:"station_description"`
	FailureCode         string     `json:"failure_code"`
	FailureDescription  string     `json:"failure_description"`
	Defect              string     `json:"defect"`
	FailureDetails      string     `json:"failure_details"`
	ActionCode          string     `json:"action_code"`
	MaterialCode        string     `json:"material_code"`
	MaterialDescription string     `json:"material_description"`
	PartClass           string     `json:"part_class"`
}

// Present reports whether a field value carries real data. Null-ish values
// from the source ("", "nan" in any case, surrounding whitespace only) all
// mean absent. This is the single normalization point for sentinel values;
// callers must not re-implement it per field.
func Present(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	return !strings.EqualFold(v, "nan")
}

// Clean returns the trimmed field value, or "" when the value is an absent
// sentinel.
func Clean(v string) string {
	if !Present(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// DateLayout is the canonical string form of record dates in payloads and
// formatted output.
const DateLayout = "2006-01-02"

// CombinedText projects a record into the single text blob that gets
// embedded. The field order and labels are fixed; the projection must stay
// byte-for-byte reproducible across index rebuilds.
func (r Record) CombinedText() string {
	date := ""
	if r.Date != nil {
		date = r.Date.Format(DateLayout)
	}
	segments := []string{
		"Part: " + r.PartNumber,
		"Type: " + r.TypeName,
		fmt.Sprintf("Station: %s %s", r.StationNumber, r.StationDescription),
		"Failure Code: " + r.FailureCode,
		"Failure Description: " + r.FailureDescription,
		"Defect: " + r.Defect,
		"Failure Details: " + r.FailureDetails,
		"Action Code: " + r.ActionCode,
		fmt.Sprintf("Material: %s %s", r.MaterialCode, r.MaterialDescription),
		"PartClass: " + r.PartClass,
		"Serial: " + r.SerialNumber,
		"Date: " + date,
	}
	return strings.Join(segments, " | ")
}

// ToPayload converts a record into vector-point metadata. The date travels
// as an RFC 3339 date string, or "" when absent.
func (r Record) ToPayload() map[string]any {
	date := ""
	if r.Date != nil {
		date = r.Date.Format(time.RFC3339)
	}
	return map[string]any{
		"date":                 date,
		"part_number":          r.PartNumber,
		"serial_number":        r.SerialNumber,
		"type_name":            r.TypeName,
		"station_number":       r.StationNumber,
		"station_description":  r.StationDescription,
		"failure_code":         r.FailureCode,
		"failure_description":  r.FailureDescription,
		"defect":               r.Defect,
		"failure_details":      r.FailureDetails,
		"action_code":          r.ActionCode,
		"material_code":        r.MaterialCode,
		"material_description": r.MaterialDescription,
		"part_class":           r.PartClass,
	}
}

// FromPayload reconstructs a record from vector-point metadata. Unknown or
// missing keys become absent fields; a malformed date becomes a nil date,
// never an error.
func FromPayload(meta map[string]any) Record {
	str := func(key string) string {
		if v, ok := meta[key].(string); ok {
			return v
		}
		return ""
	}

	r := Record{
		PartNumber:          str("part_number"),
		SerialNumber:        str("serial_number"),
		TypeName:            str("type_name"),
		StationNumber:       str("station_number"),
		StationDescription:  str("station_description"),
		FailureCode:         str("failure_code"),
		FailureDescription:  str("failure_description"),
		Defect:              str("defect"),
		FailureDetails:      str("failure_details"),
		ActionCode:          str("action_code"),
		MaterialCode:        str("material_code"),
		MaterialDescription: str("material_description"),
		PartClass:           str("part_class"),
	}

	if raw := str("date"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			r.Date = &t
		}
	}
	return r
}
