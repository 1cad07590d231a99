package lead

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the wire format for lead timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the wire format for the lead's date column.
const DateLayout = "2006-01-02"

const fallbackIDLength = 6

const fallbackIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ParseCharge normalises a raw charge string. Currency symbols, thousands
// separators and surrounding whitespace are stripped before parsing. On
// failure the amount is zero and the display string is the raw input
// verbatim, with no prefix added.
func ParseCharge(raw string) (amount float64, display string) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount < 0 {
		return 0, raw
	}
	return amount, fmt.Sprintf("$%.2f", amount)
}

// TimestampPolicy selects how a save derives the record timestamp.
type TimestampPolicy struct {
	// Edit marks the save as updating an existing record.
	Edit bool
	// Keep asks to preserve the original timestamp on edit.
	Keep bool
	// Original is the previously stored timestamp string.
	Original string
}

// ResolveTimestamp applies the timestamp policy in the given reporting
// timezone. The original timestamp is preserved only when editing in keep
// mode and it parses; every other path stamps the current instant.
func ResolveTimestamp(p TimestampPolicy, loc *time.Location, now time.Time) (t time.Time, stamp, date string) {
	if p.Edit && p.Keep && strings.TrimSpace(p.Original) != "" {
		if parsed, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(p.Original), loc); err == nil {
			return parsed, parsed.Format(TimestampLayout), parsed.Format(DateLayout)
		}
	}
	local := now.In(loc)
	return local, local.Format(TimestampLayout), local.Format(DateLayout)
}

// ResolveID picks the record identifier for a category. Purely numeric
// identifiers are canonicalised (leading zeros dropped) so string and
// integer renderings of the same legacy value compare equal. A blank
// identifier gets a random 6-character uppercase alphanumeric fallback.
func ResolveID(cat Category, orderID, recordID string) string {
	raw := recordID
	if cat.IDField == "order_id" {
		raw = orderID
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return randomID()
	}
	return CanonicalID(raw)
}

// CanonicalID normalises an identifier for comparison. Digit-only values
// are reduced to their integer form; anything else is returned trimmed.
func CanonicalID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return raw
}

// ResolveStatus applies the status default: new records always start at
// the category's initial status regardless of what was submitted, edits
// carry the caller's value (defaulting to Pending when blank).
func ResolveStatus(cat Category, submitted string, edit bool) string {
	if !edit {
		if cat.ImplicitApproval {
			return StatusCharged
		}
		return StatusPending
	}
	if s := strings.TrimSpace(submitted); s != "" {
		return s
	}
	return StatusPending
}

func randomID() string {
	b := make([]byte, fallbackIDLength)
	for i := range b {
		b[i] = fallbackIDCharset[rand.Intn(len(fallbackIDCharset))]
	}
	return string(b)
}
