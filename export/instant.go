package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fhirInstantLayout is yyyy-MM-dd'T'HH:mm:ss.SSSXXX, always emitted in UTC
// with a literal "Z" offset.
const fhirInstantLayout = "2006-01-02T15:04:05.000Z07:00"

// formatFhirInstant renders t in UTC, millisecond precision, per the FHIR
// instant wire format. Used to write `since` onto outgoing requests.
func formatFhirInstant(t time.Time) string {
	return t.UTC().Format(fhirInstantLayout)
}

// parseFhirInstant parses a FHIR instant string, accepting any zone offset
// and normalizing to UTC-millisecond precision, per spec.md §6.
func parseFhirInstant(s string) (time.Time, error) {
	t, err := time.Parse(fhirInstantLayout, s)
	if err != nil {
		// Fall back to RFC3339 variants with fewer/more fractional digits;
		// the FHIR instant type technically pins millisecond precision, but
		// servers are not always strict about it.
		if t2, err2 := time.Parse(time.RFC3339Nano, s); err2 == nil {
			return t2.UTC().Round(time.Millisecond), nil
		}
		return time.Time{}, fmt.Errorf("parsing FHIR instant %q: %w", s, err)
	}
	return t.UTC(), nil
}

// parseLooseTransactionTime parses the manifest's transaction_time field,
// which the source's manifest parser admits in three shapes: an ISO-8601
// instant string, an epoch-millis JSON number, or an epoch-millis numeric
// string. This spec follows that leniency but flags it (see DESIGN.md,
// Open Question: transaction_time looseness) rather than tightening it,
// since servers in the wild emit all three.
func parseLooseTransactionTime(raw json.RawMessage) (time.Time, error) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if looksLikeDigits(asString) {
			ms, err := strconv.ParseInt(asString, 10, 64)
			if err != nil {
				return time.Time{}, fmt.Errorf("parsing numeric transaction_time %q: %w", asString, err)
			}
			return time.UnixMilli(ms).UTC(), nil
		}
		return parseFhirInstant(asString)
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return time.UnixMilli(int64(asNumber)).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("transaction_time is neither a string nor a number: %s", string(raw))
}

func looksLikeDigits(s string) bool {
	if s == "" {
		return false
	}
	return strings.TrimLeft(s, "0123456789") == ""
}
