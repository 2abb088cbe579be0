package database

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (e *OrderStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = OrderStatus(s)
	case string:
		*e = OrderStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for OrderStatus: %T", src)
	}
	return nil
}

type PaymentStatus string

const (
	PaymentStatusPending              PaymentStatus = "pending"
	PaymentStatusAwaitingConfirmation PaymentStatus = "awaiting_confirmation"
	PaymentStatusPaid                 PaymentStatus = "paid"
	PaymentStatusFailed               PaymentStatus = "failed"
)

func (e *PaymentStatus) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentStatus(s)
	case string:
		*e = PaymentStatus(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentStatus: %T", src)
	}
	return nil
}

type PaymentMethod string

const (
	PaymentMethodMidtrans PaymentMethod = "midtrans"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

func (e *PaymentMethod) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = PaymentMethod(s)
	case string:
		*e = PaymentMethod(s)
	default:
		return fmt.Errorf("unsupported scan type for PaymentMethod: %T", src)
	}
	return nil
}

type NullPaymentMethod struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
	Valid         bool          `json:"valid"` // Valid is true if PaymentMethod is not NULL
}

// Scan implements the Scanner interface.
func (ns *NullPaymentMethod) Scan(value interface{}) error {
	if value == nil {
		ns.PaymentMethod, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.PaymentMethod.Scan(value)
}

// Value implements the driver Valuer interface.
func (ns NullPaymentMethod) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.PaymentMethod), nil
}

type UserRole string

const (
	UserRoleParent  UserRole = "parent"
	UserRoleCashier UserRole = "cashier"
	UserRoleAdmin   UserRole = "admin"
)

func (e *UserRole) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = UserRole(s)
	case string:
		*e = UserRole(s)
	default:
		return fmt.Errorf("unsupported scan type for UserRole: %T", src)
	}
	return nil
}

type BatchOrder struct {
	ID        uuid.UUID `json:"id"`
	BatchID   string    `json:"batch_id"`
	OrderID   uuid.UUID `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}

type CashPayment struct {
	ID             uuid.UUID      `json:"id"`
	OrderID        uuid.UUID      `json:"order_id"`
	CashierID      uuid.UUID      `json:"cashier_id"`
	Amount         pgtype.Numeric `json:"amount"`
	ReceivedAmount pgtype.Numeric `json:"received_amount"`
	ChangeAmount   pgtype.Numeric `json:"change_amount"`
	PaymentDate    time.Time      `json:"payment_date"`
	Notes          pgtype.Text    `json:"notes"`
}

type Child struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	ClassName string    `json:"class_name"`
	CreatedAt time.Time `json:"created_at"`
}

type MenuItem struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Description pgtype.Text    `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	ImageUrl    pgtype.Text    `json:"image_url"`
	IsAvailable bool           `json:"is_available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Order struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	OrderNumber    string            `json:"order_number"`
	TotalAmount    pgtype.Numeric    `json:"total_amount"`
	Status         OrderStatus       `json:"status"`
	PaymentStatus  PaymentStatus     `json:"payment_status"`
	PaymentMethod  NullPaymentMethod `json:"payment_method"`
	OrderDate      pgtype.Date       `json:"order_date"`
	ParentNotes    pgtype.Text       `json:"parent_notes"`
	Notes          pgtype.Text       `json:"notes"`
	GatewayOrderID pgtype.Text       `json:"gateway_order_id"`
	SnapToken      pgtype.Text       `json:"snap_token"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type OrderItem struct {
	ID         uuid.UUID      `json:"id"`
	OrderID    uuid.UUID      `json:"order_id"`
	MenuItemID uuid.UUID      `json:"menu_item_id"`
	Quantity   int32          `json:"quantity"`
	Price      pgtype.Numeric `json:"price"`
}

type OrderLineItem struct {
	ID           uuid.UUID      `json:"id"`
	OrderID      uuid.UUID      `json:"order_id"`
	MenuItemID   uuid.UUID      `json:"menu_item_id"`
	ChildID      uuid.UUID      `json:"child_id"`
	ChildName    string         `json:"child_name"`
	ChildClass   pgtype.Text    `json:"child_class"`
	DeliveryDate pgtype.Date    `json:"delivery_date"`
	OrderDate    pgtype.Date    `json:"order_date"`
	Quantity     int32          `json:"quantity"`
	UnitPrice    pgtype.Numeric `json:"unit_price"`
	Notes        pgtype.Text    `json:"notes"`
	CreatedAt    time.Time      `json:"created_at"`
}

type PaymentNotification struct {
	ID                uuid.UUID   `json:"id"`
	GatewayOrderID    string      `json:"gateway_order_id"`
	TransactionStatus string      `json:"transaction_status"`
	StatusCode        string      `json:"status_code"`
	GrossAmount       string      `json:"gross_amount"`
	PaymentType       pgtype.Text `json:"payment_type"`
	FraudStatus       pgtype.Text `json:"fraud_status"`
	Payload           []byte      `json:"payload"`
	ReceivedAt        time.Time   `json:"received_at"`
}

type User struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Phone          pgtype.Text `json:"phone"`
	Role           UserRole    `json:"role"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
