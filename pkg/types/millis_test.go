package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMillisUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Millis
	}{
		{"integer", `1718011815123`, 1718011815123},
		{"fractional", `1718011815123.7`, 1718011815123},
		{"numeric string", `"1718011815123"`, 1718011815123},
		{"rfc3339 string", `"2024-06-10T09:30:15.123Z"`, 1718011815123},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Millis
			require.NoError(t, json.Unmarshal([]byte(tt.in), &m))
			assert.Equal(t, tt.want, m)
		})
	}

	var m Millis
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &m))
	assert.Error(t, json.Unmarshal([]byte(`true`), &m))
}

func TestMillisConversions(t *testing.T) {
	at := time.Date(2024, 6, 10, 9, 30, 15, 123_000_000, time.UTC)
	m := MillisOf(at)
	assert.Equal(t, Millis(1718011815123), m)
	assert.True(t, at.Equal(m.Time()))
	assert.Equal(t, m, *m.Ptr())
}

func TestDayKey(t *testing.T) {
	m := MillisOf(time.Date(2024, 6, 10, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, 20240610, DayKey(m, time.UTC))

	saoPaulo := time.FixedZone("BRT", -3*60*60)
	assert.Equal(t, 20240610, DayKey(m, saoPaulo))

	tokyo := time.FixedZone("JST", 9*60*60)
	assert.Equal(t, 20240611, DayKey(m, tokyo))
}
