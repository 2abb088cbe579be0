// Package format renders money and dates the way the id-ID locale does.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var shortMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

var longMonths = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}

var weekdays = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}

// Price formats an IDR amount with no fraction digits, e.g. "Rp 35.000".
func Price(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	return sign + "Rp " + groupThousands(d.Round(0).String())
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Date formats as "19 Okt 2026".
func Date(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), shortMonths[t.Month()-1], t.Year())
}

// LongDate formats as "Senin, 19 Oktober 2026".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%s, %d %s %d", weekdays[t.Weekday()], t.Day(), longMonths[t.Month()-1], t.Year())
}

// DateTime formats as "19 Okt 2026 14:05".
func DateTime(t time.Time) string {
	return fmt.Sprintf("%s %02d:%02d", Date(t), t.Hour(), t.Minute())
}
