// Package report aggregates orders and line items for cashier and admin views.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultTopItems = 10
	NoClassLabel    = "Tanpa Kelas"

	cashNoteMarker = "pembayaran tunai"
)

// Line is one menu item row of an order.
type Line struct {
	OrderID      uuid.UUID
	MenuItemName string
	ChildName    string
	ChildClass   string
	DeliveryDate time.Time
	OrderDate    time.Time
	Quantity     int32
	UnitPrice    decimal.Decimal
}

func (l Line) Revenue() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
}

// Order is the header data reports need.
type Order struct {
	ID            uuid.UUID
	OrderNumber   string
	OrderDate     time.Time
	TotalAmount   decimal.Decimal
	PaymentStatus string
	PaymentMethod string // empty when the column is NULL
	Notes         string
}

// IsCash reports whether a paid order was settled in cash. Rows written before
// payment_method existed fall back to the settlement note.
func IsCash(o Order) bool {
	if o.PaymentStatus != "paid" {
		return false
	}
	if o.PaymentMethod != "" {
		return o.PaymentMethod == "cash"
	}
	return strings.Contains(strings.ToLower(o.Notes), cashNoteMarker)
}

// Group is a quantity and revenue total under one key.
type Group struct {
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// groupBy sums lines under key(line), keeping first-seen key order.
func groupBy(lines []Line, key func(Line) string) []Group {
	idx := make(map[string]int)
	var out []Group
	for _, l := range lines {
		k := key(l)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Group{Name: k, Revenue: decimal.Zero})
		}
		out[i].Quantity += int64(l.Quantity)
		out[i].Revenue = out[i].Revenue.Add(l.Revenue())
	}
	return out
}

func GroupByMenuItem(lines []Line) []Group {
	return groupBy(lines, func(l Line) string { return l.MenuItemName })
}

func GroupByClass(lines []Line) []Group {
	return groupBy(lines, func(l Line) string {
		if l.ChildClass == "" {
			return NoClassLabel
		}
		return l.ChildClass
	})
}

// GroupByDate groups by delivery date (YYYY-MM-DD).
func GroupByDate(lines []Line) []Group {
	return groupBy(lines, func(l Line) string { return l.DeliveryDate.Format(dateLayout) })
}

// Section is the lines of one class or date with their menu totals.
type Section struct {
	Name  string  `json:"name"`
	Items []Group `json:"items"`
	Total Group   `json:"total"`
}

// SectionsByClass splits lines by class, each with its own menu grouping.
func SectionsByClass(lines []Line) []Section {
	return sections(lines, func(l Line) string {
		if l.ChildClass == "" {
			return NoClassLabel
		}
		return l.ChildClass
	})
}

func SectionsByDate(lines []Line) []Section {
	return sections(lines, func(l Line) string { return l.DeliveryDate.Format(dateLayout) })
}

func sections(lines []Line, key func(Line) string) []Section {
	idx := make(map[string]int)
	var buckets [][]Line
	var names []string
	for _, l := range lines {
		k := key(l)
		i, ok := idx[k]
		if !ok {
			i = len(buckets)
			idx[k] = i
			buckets = append(buckets, nil)
			names = append(names, k)
		}
		buckets[i] = append(buckets[i], l)
	}
	out := make([]Section, len(buckets))
	for i, b := range buckets {
		items := GroupByMenuItem(b)
		out[i] = Section{Name: names[i], Items: items, Total: Sum(items)}
	}
	return out
}

// Sum totals a set of groups.
func Sum(groups []Group) Group {
	t := Group{Name: "Total", Revenue: decimal.Zero}
	for _, g := range groups {
		t.Quantity += g.Quantity
		t.Revenue = t.Revenue.Add(g.Revenue)
	}
	return t
}

// TopItems returns the n groups with the highest quantity. Ties keep input order.
func TopItems(groups []Group, n int) []Group {
	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Quantity > sorted[j].Quantity })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

type Day struct {
	Date    time.Time       `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Cash    decimal.Decimal `json:"cash_payments"`
}

// DailySummary totals orders per order date, newest first.
func DailySummary(orders []Order) []Day {
	idx := make(map[string]int)
	var days []Day
	for _, o := range orders {
		k := o.OrderDate.Format(dateLayout)
		i, ok := idx[k]
		if !ok {
			i = len(days)
			idx[k] = i
			days = append(days, Day{Date: o.OrderDate, Revenue: decimal.Zero, Cash: decimal.Zero})
		}
		days[i].Orders++
		days[i].Revenue = days[i].Revenue.Add(o.TotalAmount)
		if IsCash(o) {
			days[i].Cash = days[i].Cash.Add(o.TotalAmount)
		}
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.After(days[j].Date) })
	return days
}

type Totals struct {
	TotalOrders       int             `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	CashPayments      decimal.Decimal `json:"total_cash_payments"`
	OnlinePayments    decimal.Decimal `json:"total_online_payments"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

// Summary totals revenue and splits it into cash and everything else.
func Summary(orders []Order) Totals {
	t := Totals{TotalRevenue: decimal.Zero, CashPayments: decimal.Zero, AverageOrderValue: decimal.Zero}
	for _, o := range orders {
		t.TotalOrders++
		t.TotalRevenue = t.TotalRevenue.Add(o.TotalAmount)
		if IsCash(o) {
			t.CashPayments = t.CashPayments.Add(o.TotalAmount)
		}
	}
	t.OnlinePayments = t.TotalRevenue.Sub(t.CashPayments)
	if t.TotalOrders > 0 {
		t.AverageOrderValue = t.TotalRevenue.Div(decimal.NewFromInt(int64(t.TotalOrders))).Round(0)
	}
	return t
}

// CashierReport is the cashier reports page payload.
type CashierReport struct {
	Start    time.Time `json:"start_date"`
	End      time.Time `json:"end_date"`
	Totals   Totals    `json:"totals"`
	TopItems []Group   `json:"top_menu_items"`
	Daily    []Day     `json:"daily_summary"`
}

func BuildCashierReport(start, end time.Time, orders []Order, lines []Line) CashierReport {
	return CashierReport{
		Start:    start,
		End:      end,
		Totals:   Summary(orders),
		TopItems: TopItems(GroupByMenuItem(lines), DefaultTopItems),
		Daily:    DailySummary(orders),
	}
}
