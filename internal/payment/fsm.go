package payment

import (
	"fmt"

	"github.com/sekolah-catering/api/internal/database"
)

// allowedTransitions drives payment_status from gateway events.
// failed -> pending happens only when a fresh session is issued on retry; paid is terminal.
var allowedTransitions = map[database.PaymentStatus][]database.PaymentStatus{
	database.PaymentStatusPending: {
		database.PaymentStatusAwaitingConfirmation,
		database.PaymentStatusPaid,
		database.PaymentStatusFailed,
	},
	database.PaymentStatusAwaitingConfirmation: {
		database.PaymentStatusPaid,
		database.PaymentStatusFailed,
	},
	database.PaymentStatusFailed: {
		database.PaymentStatusPending,
	},
}

// Transition validates current -> next. It returns false with no error when the
// status is unchanged, so replayed notifications are no-ops.
func Transition(current, next database.PaymentStatus) (bool, error) {
	if current == next {
		return false, nil
	}
	for _, s := range allowedTransitions[current] {
		if s == next {
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}
