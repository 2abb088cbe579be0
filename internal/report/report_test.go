package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func line(menu, class, delivery string, qty int32, price int64) Line {
	return Line{
		OrderID:      uuid.New(),
		MenuItemName: menu,
		ChildClass:   class,
		DeliveryDate: day(delivery),
		Quantity:     qty,
		UnitPrice:    decimal.NewFromInt(price),
	}
}

func sampleLines() []Line {
	return []Line{
		line("Soto Ayam", "3A", "2026-10-20", 1, 20000),
		line("Nasi Goreng", "3A", "2026-10-20", 2, 15000),
		line("Soto Ayam", "4B", "2026-10-21", 3, 20000),
		line("Bubur", "", "2026-10-21", 1, 12000),
	}
}

func TestGroupByMenuItem_FirstSeenOrder(t *testing.T) {
	got := GroupByMenuItem(sampleLines())

	if len(got) != 3 {
		t.Fatalf("groups: got %d, want 3", len(got))
	}
	wantNames := []string{"Soto Ayam", "Nasi Goreng", "Bubur"}
	for i, n := range wantNames {
		if got[i].Name != n {
			t.Errorf("group[%d]: got %q, want %q", i, got[i].Name, n)
		}
	}
	if got[0].Quantity != 4 || !got[0].Revenue.Equal(decimal.NewFromInt(80000)) {
		t.Errorf("soto: %+v", got[0])
	}
}

func TestGroupByClass_EmptyClassLabelled(t *testing.T) {
	got := GroupByClass(sampleLines())
	if len(got) != 3 || got[2].Name != NoClassLabel {
		t.Fatalf("groups: %+v", got)
	}
	if got[0].Quantity != 3 {
		t.Errorf("3A quantity: %d", got[0].Quantity)
	}
}

func TestGroupByDate(t *testing.T) {
	got := GroupByDate(sampleLines())
	if len(got) != 2 || got[0].Name != "2026-10-20" || got[1].Quantity != 4 {
		t.Fatalf("groups: %+v", got)
	}
}

func TestTopItems_StableByQuantity(t *testing.T) {
	groups := []Group{
		{Name: "A", Quantity: 2},
		{Name: "B", Quantity: 5},
		{Name: "C", Quantity: 2},
		{Name: "D", Quantity: 7},
	}
	got := TopItems(groups, 3)

	want := []string{"D", "B", "A"}
	if len(got) != len(want) {
		t.Fatalf("len: got %d, want %d", len(got), len(want))
	}
	for i, n := range want {
		if got[i].Name != n {
			t.Errorf("top[%d]: got %q, want %q", i, got[i].Name, n)
		}
	}
	if groups[0].Name != "A" {
		t.Error("input should not be reordered")
	}
}

func TestTopItems_FewerThanN(t *testing.T) {
	if got := TopItems([]Group{{Name: "A", Quantity: 1}}, DefaultTopItems); len(got) != 1 {
		t.Errorf("len: %d", len(got))
	}
}

func TestIsCash(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		want  bool
	}{
		{"typed cash", Order{PaymentStatus: "paid", PaymentMethod: "cash"}, true},
		{"typed midtrans with cash note", Order{PaymentStatus: "paid", PaymentMethod: "midtrans", Notes: "Pembayaran tunai untuk pesanan Budi"}, false},
		{"legacy note", Order{PaymentStatus: "paid", Notes: "PEMBAYARAN TUNAI untuk pesanan Ani"}, true},
		{"legacy no note", Order{PaymentStatus: "paid"}, false},
		{"unpaid cash", Order{PaymentStatus: "pending", PaymentMethod: "cash"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCash(tt.order); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func sampleOrders() []Order {
	return []Order{
		{OrderDate: day("2026-10-18"), TotalAmount: decimal.NewFromInt(35000), PaymentStatus: "paid", PaymentMethod: "cash"},
		{OrderDate: day("2026-10-19"), TotalAmount: decimal.NewFromInt(20000), PaymentStatus: "paid", PaymentMethod: "midtrans"},
		{OrderDate: day("2026-10-18"), TotalAmount: decimal.NewFromInt(15000), PaymentStatus: "pending"},
	}
}

func TestDailySummary_NewestFirst(t *testing.T) {
	got := DailySummary(sampleOrders())

	if len(got) != 2 {
		t.Fatalf("days: %d", len(got))
	}
	if !got[0].Date.Equal(day("2026-10-19")) {
		t.Errorf("first day: %s", got[0].Date)
	}
	d := got[1]
	if d.Orders != 2 || !d.Revenue.Equal(decimal.NewFromInt(50000)) || !d.Cash.Equal(decimal.NewFromInt(35000)) {
		t.Errorf("2026-10-18: %+v", d)
	}
}

func TestSummary(t *testing.T) {
	got := Summary(sampleOrders())

	if got.TotalOrders != 3 {
		t.Errorf("orders: %d", got.TotalOrders)
	}
	if !got.TotalRevenue.Equal(decimal.NewFromInt(70000)) {
		t.Errorf("revenue: %s", got.TotalRevenue)
	}
	if !got.CashPayments.Equal(decimal.NewFromInt(35000)) || !got.OnlinePayments.Equal(decimal.NewFromInt(35000)) {
		t.Errorf("split: cash %s online %s", got.CashPayments, got.OnlinePayments)
	}
	if !got.AverageOrderValue.Equal(decimal.NewFromInt(23333)) {
		t.Errorf("average: %s", got.AverageOrderValue)
	}
}

func TestSummary_Empty(t *testing.T) {
	got := Summary(nil)
	if got.TotalOrders != 0 || !got.AverageOrderValue.IsZero() {
		t.Errorf("got %+v", got)
	}
}

func TestBuildRecap_Sections(t *testing.T) {
	r := BuildRecap(day("2026-10-20"), day("2026-10-21"), 4, sampleLines())

	if r.MenuTotal.Quantity != 7 || !r.MenuTotal.Revenue.Equal(decimal.NewFromInt(122000)) {
		t.Errorf("menu total: %+v", r.MenuTotal)
	}
	if len(r.ByClass) != 3 || r.ByClass[0].Name != "3A" || len(r.ByClass[0].Items) != 2 {
		t.Errorf("by class: %+v", r.ByClass)
	}
	if len(r.ByDate) != 2 || r.ByDate[1].Total.Quantity != 4 {
		t.Errorf("by date: %+v", r.ByDate)
	}
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	r := BuildRecap(day("2026-10-20"), day("2026-10-21"), 4, sampleLines())
	if err := RenderHTML(&buf, r); err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"Rekapitulasi Pesanan", "Soto Ayam", "Rp 80.000", "Kelas 3A", "Selasa, 20 Oktober 2026", "20 Okt 2026 - 21 Okt 2026"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestReportJSON_Dates(t *testing.T) {
	rep := BuildCashierReport(day("2026-10-01"), day("2026-10-19"), []Order{
		{ID: uuid.New(), OrderDate: day("2026-10-05"), TotalAmount: decimal.NewFromInt(30000), PaymentStatus: "paid", PaymentMethod: "cash"},
	}, nil)
	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"start_date":"2026-10-01"`, `"end_date":"2026-10-19"`, `"date":"2026-10-05"`, `"total_cash_payments":"30000"`} {
		if !strings.Contains(s, want) {
			t.Errorf("json missing %s: %s", want, s)
		}
	}
}
