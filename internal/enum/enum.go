package enum

// ── Group A: State machines (enum types in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusPending              = "pending"
	PaymentStatusAwaitingConfirmation = "awaiting_confirmation"
	PaymentStatusPaid                 = "paid"
	PaymentStatusFailed               = "failed"
)

// ── Group C: Borderline (enum types in DB) ──

const (
	UserRoleParent  = "parent"
	UserRoleCashier = "cashier"
	UserRoleAdmin   = "admin"
)

const (
	PaymentMethodMidtrans = "midtrans"
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
)

// ── Group B: Display labels (no DB constraint) ──

// Status is a display badge: Indonesian label plus a color class for the UI.
type Status struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Color string `json:"color"`
}

var orderStatuses = map[string]Status{
	OrderStatusPending:   {OrderStatusPending, "Menunggu", "text-yellow-600 border-yellow-600"},
	OrderStatusConfirmed: {OrderStatusConfirmed, "Dikonfirmasi", "text-blue-600 border-blue-600"},
	OrderStatusPreparing: {OrderStatusPreparing, "Disiapkan", "text-purple-600 border-purple-600"},
	OrderStatusDelivered: {OrderStatusDelivered, "Selesai", "text-green-600 border-green-600"},
	OrderStatusCancelled: {OrderStatusCancelled, "Dibatalkan", "text-red-600 border-red-600"},
}

var paymentStatuses = map[string]Status{
	PaymentStatusPending:              {PaymentStatusPending, "Belum Bayar", "text-orange-600 border-orange-600"},
	PaymentStatusAwaitingConfirmation: {PaymentStatusAwaitingConfirmation, "Menunggu Konfirmasi", "text-yellow-600 border-yellow-600"},
	PaymentStatusPaid:                 {PaymentStatusPaid, "Lunas", "bg-green-500"},
	PaymentStatusFailed:               {PaymentStatusFailed, "Gagal", "text-red-600 border-red-600"},
}

var paymentMethodLabels = map[string]string{
	PaymentMethodMidtrans: "Midtrans",
	PaymentMethodCash:     "Tunai",
	PaymentMethodTransfer: "Transfer Bank",
}

// Unknown codes fall back to the raw code with no color.

func OrderStatus(code string) Status {
	if s, ok := orderStatuses[code]; ok {
		return s
	}
	return Status{Code: code, Label: code}
}

func PaymentStatus(code string) Status {
	if s, ok := paymentStatuses[code]; ok {
		return s
	}
	return Status{Code: code, Label: code}
}

func PaymentMethodLabel(code string) string {
	if l, ok := paymentMethodLabels[code]; ok {
		return l
	}
	return code
}

func IsValidOrderStatus(code string) bool {
	_, ok := orderStatuses[code]
	return ok
}

func IsValidPaymentStatus(code string) bool {
	_, ok := paymentStatuses[code]
	return ok
}

func IsValidPaymentMethod(code string) bool {
	_, ok := paymentMethodLabels[code]
	return ok
}
