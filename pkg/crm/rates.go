package crm

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/ignis/pkg/types"
)

// Rates are the percentages and totals derived from a day's counters.
// They are computed on read and never stored.
type Rates struct {
	Msg1          float64 `json:"pctMsg1"`
	Msg2          float64 `json:"pctMsg2"`
	CTA           float64 `json:"pctCta"`
	AgendTotal    int     `json:"agendTotal"`
	ContatosTotal int     `json:"contatosTotal"`
	AgendAcoes    float64 `json:"pctAgendAcoes"`
}

// Pct returns 100*a/b, or 0 when b is 0.
func Pct(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b) * 100
}

// count clamps a counter to zero.
func count(n int) int {
	return max(n, 0)
}

// ComputeRates derives the rates of m. Negative counters count as zero.
func ComputeRates(m types.DailyMetrics) Rates {
	agendTotal := count(m.AgendNovos) + count(m.AgendFollow)
	contatosTotal := count(m.Msg1Disparos) + count(m.FollowEnviados)
	return Rates{
		Msg1:          Pct(count(m.Msg1Respostas), count(m.Msg1Disparos)),
		Msg2:          Pct(count(m.Msg2Respostas), count(m.Msg2Disparos)),
		CTA:           Pct(count(m.AgendNovos), count(m.CtaDisparos)),
		AgendTotal:    agendTotal,
		ContatosTotal: contatosTotal,
		AgendAcoes:    Pct(agendTotal, contatosTotal),
	}
}

// FormatPctInt renders p rounded to a whole percent, e.g. "14%".
func FormatPctInt(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "0%"
	}
	return strconv.FormatFloat(math.Round(p), 'f', 0, 64) + "%"
}

// FormatPct2 renders p with two decimals and a decimal comma, e.g.
// "1,67%".
func FormatPct2(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "0,00%"
	}
	return strings.Replace(strconv.FormatFloat(p, 'f', 2, 64), ".", ",", 1) + "%"
}

var weekdaysPT = [...]string{"domingo", "segunda", "terça", "quarta", "quinta", "sexta", "sábado"}

// WeekdayName returns the Portuguese name of the weekday of dateKey, or ""
// for a malformed key.
func WeekdayName(dateKey string) string {
	day, err := time.Parse(DateKeyLayout, dateKey)
	if err != nil {
		return ""
	}
	return weekdaysPT[day.Weekday()]
}

// SheetsRow renders m as one tab-separated spreadsheet row (columns A to
// P) terminated by a newline.
func SheetsRow(m types.DailyMetrics) string {
	r := ComputeRates(m)
	cols := []string{
		WeekdayName(m.DateKey),
		strconv.Itoa(count(m.Msg1Disparos)),
		strconv.Itoa(count(m.Msg1Respostas)),
		FormatPctInt(r.Msg1),
		strconv.Itoa(count(m.Msg2Disparos)),
		FormatPctInt(r.Msg2),
		strconv.Itoa(count(m.CtaDisparos)),
		strconv.Itoa(count(m.AgendNovos)),
		FormatPct2(r.CTA),
		strconv.Itoa(count(m.FollowEnviados)),
		strconv.Itoa(count(m.FollowRespostas)),
		strconv.Itoa(count(m.FollowCta)),
		strconv.Itoa(count(m.AgendFollow)),
		strconv.Itoa(r.AgendTotal),
		FormatPct2(r.AgendAcoes),
		strconv.Itoa(r.ContatosTotal),
	}
	return strings.Join(cols, "\t") + "\n"
}
