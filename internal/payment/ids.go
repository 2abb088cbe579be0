package payment

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	OrderPrefix = "ORDER"
	BatchPrefix = "BATCH"
	RetryPrefix = "RETRY"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewGatewayOrderID returns "<prefix>-<unix millis>-<9 base36 chars>".
func NewGatewayOrderID(prefix string, now time.Time) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('-')
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')
	for i := 0; i < 9; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}

// IsBatchID reports whether a gateway order id was issued for a batch payment.
func IsBatchID(id string) bool {
	return strings.HasPrefix(id, BatchPrefix+"-")
}
