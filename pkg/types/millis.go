package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Millis is a point in time as Unix milliseconds, the representation used by
// stored documents and backup files.
type Millis int64

// MillisOf converts t to Millis.
func MillisOf(t time.Time) Millis { return Millis(t.UnixMilli()) }

// Time converts m to a time.Time in the local zone.
func (m Millis) Time() time.Time { return time.UnixMilli(int64(m)) }

// Ptr returns a pointer to a copy of m.
func (m Millis) Ptr() *Millis { return &m }

// UnmarshalJSON accepts integer or fractional numbers and, for rows written
// by older exports, RFC 3339 strings.
func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			*m = Millis(n)
			return nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
		*m = MillisOf(t)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("parsing timestamp %s: %w", data, err)
	}
	*m = Millis(f)
	return nil
}

// DayKey returns the yyyymmdd integer of the calendar day containing m in
// loc. A nil loc means time.Local.
func DayKey(m Millis, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	t := m.Time().In(loc)
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}
