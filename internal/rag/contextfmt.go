package rag

import (
	"fmt"
	"strings"

	"comet-support/internal/storage"
)

// FormatContext serializes an AggregationResult plus exact per-part database
// statistics into the text block handed to the generator. It performs no
// aggregation of its own and never re-derives counts; the output is
// deterministic and byte-identical for identical inputs.
func FormatContext(res *AggregationResult, dbStats []*storage.PartStats) string {
	var b strings.Builder

	fmt.Fprintf(&b, "USER QUERY: %s\n", res.QueryContext)

	if len(dbStats) > 0 {
		b.WriteString("\n---EXACT DATABASE STATISTICS---\n")
		for _, ps := range dbStats {
			fmt.Fprintf(&b, "\nTOTAL RECORDS FOR PART %s: %d\n", ps.PartNumber, ps.Total)

			if len(ps.FailureCodes) > 0 {
				fmt.Fprintf(&b, "FAILURE CODES FOR PART %s:\n", ps.PartNumber)
				for _, fc := range ps.FailureCodes {
					fmt.Fprintf(&b, "  - %s: %dx\n", fc.Code, fc.Count)
				}
			}

			if len(ps.Materials) > 0 {
				fmt.Fprintf(&b, "MATERIALS USED FOR PART %s:\n", ps.PartNumber)
				for _, m := range ps.Materials {
					fmt.Fprintf(&b, "  - %s - %s (%s): %dx\n", m.Code, m.Description, m.PartClass, m.Count)
				}
			}

			if len(ps.RecurringSerials) > 0 {
				fmt.Fprintf(&b, "RECURRING SERIALS FOR PART %s:\n", ps.PartNumber)
				for _, rs := range ps.RecurringSerials {
					fmt.Fprintf(&b, "  - Serial %s: %dx\n", rs.Code, rs.Count)
				}
			}
		}
	}

	fmt.Fprintf(&b, "\nSEMANTIC SEARCH ANALYZED: %d most relevant records\n", res.RetrievedCount)
	b.WriteString("\n---DATA FROM SEMANTIC SEARCH---\n")

	b.WriteString("\nMOST COMMON ACTION CODES (in analyzed subset):\n")
	if len(res.ActionCodes) == 0 {
		b.WriteString("  - no action codes found\n")
	}
	for _, ac := range res.ActionCodes {
		fmt.Fprintf(&b, "  - %s: %dx\n", ac.Code, ac.Count)
	}

	b.WriteString("\nFAILURE CODES (in analyzed subset):\n")
	if len(res.FailureCodes) == 0 {
		b.WriteString("  - no failure codes found\n")
	}
	for _, fc := range res.FailureCodes {
		fmt.Fprintf(&b, "  - %s: %dx\n", fc.Code, fc.Count)
	}

	b.WriteString("\nMATERIALS (in analyzed subset):\n")
	if len(res.Materials) == 0 {
		b.WriteString("  - no materials recorded\n")
	}
	for _, m := range res.Materials {
		fmt.Fprintf(&b, "  - %s - %s (%s): %dx\n", m.Code, m.Description, m.PartClass, m.Count)
	}

	b.WriteString("\nRECURRING SERIALS (in analyzed subset):\n")
	if len(res.RecurringSerials) == 0 {
		b.WriteString("  - no recurring serials detected\n")
	}
	for _, rs := range res.RecurringSerials {
		fmt.Fprintf(&b, "  - Serial %s: %dx\n", rs.Serial, rs.Count)
	}

	b.WriteString("\nCOMMON STATIONS:\n")
	if len(res.CommonStations) == 0 {
		b.WriteString("  - no stations found\n")
	}
	for _, st := range res.CommonStations {
		fmt.Fprintf(&b, "  - Station %s: %dx\n", st.Station, st.Count)
	}

	fmt.Fprintf(&b, "\nDATE RANGE: %s to %s\n", res.DateRange.Earliest, res.DateRange.Latest)

	return b.String()
}
