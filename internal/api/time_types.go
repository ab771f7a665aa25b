package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// dateLayout is the form a date picker submits.
const dateLayout = "2006-01-02"

// FlexTime is a time type that can unmarshal from either:
// - RFC3339 string: "2024-01-15T10:30:00Z"
// - Calendar date: "2024-01-15" (midnight UTC)
// - Epoch milliseconds (number): 1705314600000
// - Epoch milliseconds (string): "1705314600000"
//
// It always marshals to RFC3339 format for consistency.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON handles flexible time parsing from JSON.
func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ft.Time = t
			return nil
		}
		if t, err := time.ParseInLocation(dateLayout, s, time.UTC); err == nil {
			ft.Time = t
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			ft.Time = time.UnixMilli(ms).UTC()
			return nil
		}
		return fmt.Errorf("cannot parse time string: %s", s)
	}

	// Some JSON encoders use floats for large numbers.
	var ms float64
	if err := json.Unmarshal(data, &ms); err == nil {
		ft.Time = time.UnixMilli(int64(ms)).UTC()
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexTime", string(data))
}

// MarshalJSON outputs time in RFC3339 format.
func (ft FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Format(time.RFC3339))
}

// Schema documents the accepted forms. The value is checked when decoding.
func (FlexTime) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "RFC 3339 timestamp, YYYY-MM-DD date, or epoch milliseconds",
		Examples:    []any{"2024-01-15T10:30:00Z", "2024-01-15", 1705314600000},
	}
}

// ToTime returns the underlying time.Time value.
func (ft FlexTime) ToTime() time.Time {
	return ft.Time
}

// timePtr returns nil for a missing FlexTime.
func timePtr(ft *FlexTime) *time.Time {
	if ft == nil || ft.IsZero() {
		return nil
	}
	t := ft.Time
	return &t
}
