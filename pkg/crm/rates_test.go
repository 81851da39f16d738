package crm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

func TestPct(t *testing.T) {
	assert.Zero(t, Pct(5, 0))
	assert.InDelta(t, 50.0, Pct(1, 2), 1e-9)
	assert.InDelta(t, 14.2857, Pct(1, 7), 1e-4)
}

func TestFormatPct(t *testing.T) {
	assert.Equal(t, "14%", FormatPctInt(Pct(1, 7)))
	assert.Equal(t, "0%", FormatPctInt(0))
	assert.Equal(t, "67%", FormatPctInt(66.6))
	assert.Equal(t, "1,67%", FormatPct2(Pct(1, 60)))
	assert.Equal(t, "0,00%", FormatPct2(0))
	assert.Equal(t, "100,00%", FormatPct2(100))
}

func TestComputeRates(t *testing.T) {
	r := ComputeRates(types.DailyMetrics{
		Msg1Disparos:   20,
		Msg1Respostas:  5,
		Msg2Disparos:   0,
		Msg2Respostas:  3,
		CtaDisparos:    4,
		AgendNovos:     1,
		FollowEnviados: 10,
		AgendFollow:    2,
		FollowCta:      -4,
	})
	assert.InDelta(t, 25.0, r.Msg1, 1e-9)
	assert.Zero(t, r.Msg2)
	assert.InDelta(t, 25.0, r.CTA, 1e-9)
	assert.Equal(t, 3, r.AgendTotal)
	assert.Equal(t, 30, r.ContatosTotal)
	assert.InDelta(t, 10.0, r.AgendAcoes, 1e-9)
}

func TestSheetsRow(t *testing.T) {
	row := SheetsRow(types.DailyMetrics{
		DateKey:         "2024-06-12",
		Msg1Disparos:    20,
		Msg1Respostas:   5,
		Msg2Disparos:    8,
		Msg2Respostas:   1,
		CtaDisparos:     60,
		AgendNovos:      1,
		FollowEnviados:  10,
		FollowRespostas: 4,
		FollowCta:       -3,
		AgendFollow:     2,
	})
	require.True(t, strings.HasSuffix(row, "\n"))
	cols := strings.Split(strings.TrimSuffix(row, "\n"), "\t")
	assert.Equal(t, []string{
		"quarta", "20", "5", "25%", "8", "13%", "60", "1", "1,67%",
		"10", "4", "0", "2", "3", "10,00%", "30",
	}, cols)
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "domingo", WeekdayName("2024-06-16"))
	assert.Equal(t, "sábado", WeekdayName("2024-06-15"))
	assert.Empty(t, WeekdayName("nope"))
}
