//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/sekolah-catering/api/internal/cart"
	"github.com/sekolah-catering/api/internal/config"
	"github.com/sekolah-catering/api/internal/database"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/payment"
	"github.com/sekolah-catering/api/internal/router"
	"github.com/sekolah-catering/api/internal/ws"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const integrationServerKey = "SB-Mid-server-integration"

// sequentialGateway hands out numbered tokens and remembers every request.
type sequentialGateway struct {
	mu       sync.Mutex
	requests []payment.SessionRequest
}

func (g *sequentialGateway) CreateSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	n := len(g.requests)
	return &payment.Session{
		Token:       fmt.Sprintf("snap-int-%d", n),
		RedirectURL: fmt.Sprintf("https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-int-%d", n),
	}, nil
}

// TestIntegrationFlow runs the parent ordering flow, an online payment
// notification and a cash settlement against a real PostgreSQL database.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:              "8081",
		DatabaseURL:       connStr,
		JWTSecret:         "integration-test-secret",
		RateLimit:         "1000-M",
		MidtransServerKey: integrationServerKey,
		CartTTL:           time.Hour,
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	go hub.Run(ctx)

	gateway := &sequentialGateway{}
	r, err := router.New(cfg, router.Deps{
		Queries:   queries,
		Pool:      pool,
		Hub:       hub,
		Carts:     cart.NewMemoryStore(),
		Gateway:   gateway,
		Publisher: events.Multi{hub},
		Log:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Staff accounts come from the seed path, not the API ---
	createStaffUser(t, ctx, queries, "admin@sekolah.test", database.UserRoleAdmin)
	createStaffUser(t, ctx, queries, "kasir@sekolah.test", database.UserRoleCashier)
	adminToken := login(t, server, "admin@sekolah.test", "password123")
	cashierToken := login(t, server, "kasir@sekolah.test", "password123")

	// --- 2. Admin publishes a menu item ---
	menuResp := httpPostJSON(t, server, "/admin/menu", map[string]interface{}{
		"name":        "Nasi Ayam Teriyaki",
		"description": "Nasi dengan ayam teriyaki dan sayur",
		"price":       "15000",
	}, adminToken)
	menuID := menuResp["id"].(string)

	// --- 3. Parent registers and adds a child ---
	reg := httpPostJSON(t, server, "/auth/register", map[string]interface{}{
		"email":     "ibu.sari@example.com",
		"password":  "rahasia123",
		"full_name": "Sari Wulandari",
		"phone":     "081234567890",
	}, "")
	parentToken := reg["access_token"].(string)

	child := httpPostJSON(t, server, "/children", map[string]interface{}{
		"name":       "Budi",
		"class_name": "3A",
	}, parentToken)
	childID := child["id"].(string)

	delivery := time.Now().AddDate(0, 0, 2).Format("2006-01-02")

	// --- 4. Cart and checkout: order is committed with a payment token ---
	addItem(t, server, parentToken, menuID, childID, delivery, 2)
	checkout := httpPostJSON(t, server, "/orders", map[string]interface{}{"notes": "tanpa sambal"}, parentToken)
	if checkout["snap_token"] != "snap-int-1" {
		t.Fatalf("snap_token: got %v, want snap-int-1", checkout["snap_token"])
	}
	onlineOrder := checkout["order"].(map[string]interface{})
	if onlineOrder["total_amount"] != "30000.00" {
		t.Fatalf("order total_amount: got %v, want 30000.00", onlineOrder["total_amount"])
	}
	onlineOrderID := uuid.MustParse(onlineOrder["id"].(string))

	// Cart is cleared after a successful checkout
	cartResp := httpGetJSON(t, server, "/cart", parentToken)
	if items, _ := cartResp["items"].([]interface{}); len(items) != 0 {
		t.Fatalf("cart after checkout: got %d items, want 0", len(items))
	}

	// --- 5. Gateway notification settles the order ---
	gatewayID := gatewayOrderID(t, ctx, pool, onlineOrderID)
	notif := map[string]interface{}{
		"order_id":           gatewayID,
		"transaction_id":     uuid.NewString(),
		"transaction_status": "settlement",
		"status_code":        "200",
		"gross_amount":       "30000.00",
		"payment_type":       "bank_transfer",
		"signature_key":      payment.Signature(gatewayID, "200", "30000.00", integrationServerKey),
	}
	notifResp := httpPostJSON(t, server, "/payments/notifications", notif, "")
	if notifResp["status"] != "paid" || notifResp["updated"] != float64(1) {
		t.Fatalf("notification result: %v", notifResp)
	}

	// Replayed notification is recorded but changes nothing
	notifResp = httpPostJSON(t, server, "/payments/notifications", notif, "")
	if notifResp["updated"] != float64(0) {
		t.Fatalf("replayed notification updated %v orders", notifResp["updated"])
	}
	assertNotificationCount(t, ctx, pool, gatewayID, 2)

	paidOrder := httpGetJSON(t, server, "/orders/"+onlineOrderID.String(), parentToken)
	if code := paidOrder["payment_status"].(map[string]interface{})["code"]; code != "paid" {
		t.Fatalf("payment_status after notification: got %v, want paid", code)
	}
	if code := paidOrder["status"].(map[string]interface{})["code"]; code != "confirmed" {
		t.Fatalf("status after notification: got %v, want confirmed", code)
	}

	// --- 6. Second order is paid in cash at the counter ---
	addItem(t, server, parentToken, menuID, childID, delivery, 1)
	checkout = httpPostJSON(t, server, "/orders", map[string]interface{}{}, parentToken)
	cashOrderID := checkout["order"].(map[string]interface{})["id"].(string)

	settle := httpPostJSON(t, server, "/cashier/orders/"+cashOrderID+"/cash", map[string]interface{}{
		"received_amount": "20000",
	}, cashierToken)
	if settle["change_amount"] != "5000.00" {
		t.Fatalf("change_amount: got %v, want 5000.00", settle["change_amount"])
	}
	if settle["message"] != "Pembayaran berhasil dicatat. Kembalian: Rp 5.000" {
		t.Fatalf("message: got %v", settle["message"])
	}

	// Settling twice is rejected
	status, _ := httpDo(t, server, "POST", "/cashier/orders/"+cashOrderID+"/cash", map[string]interface{}{
		"received_amount": "20000",
	}, cashierToken)
	if status != http.StatusConflict {
		t.Fatalf("second settlement: got %d, want 409", status)
	}

	// --- 7. Reports see one cash and one online order ---
	today := time.Now().In(time.FixedZone("WIB", 7*3600)).Format("2006-01-02")
	summary := httpGetJSON(t, server, "/cashier/reports/summary?start_date="+today+"&end_date="+today, cashierToken)
	totals := summary["totals"].(map[string]interface{})
	if totals["total_orders"] != float64(2) {
		t.Fatalf("total_orders: got %v, want 2", totals["total_orders"])
	}
	if totals["total_revenue"] != "45000" || totals["total_cash_payments"] != "15000" || totals["total_online_payments"] != "30000" {
		t.Fatalf("report totals: %v", totals)
	}

	recap := httpGetJSON(t, server, "/admin/reports/recap?start_date="+delivery+"&end_date="+delivery, adminToken)
	menuTotal := recap["menu_total"].(map[string]interface{})
	if menuTotal["quantity"] != float64(3) {
		t.Fatalf("recap quantity: got %v, want 3", menuTotal["quantity"])
	}

	// --- 8. Role boundaries ---
	if status, _ := httpDo(t, server, "GET", "/cashier/orders", nil, parentToken); status != http.StatusForbidden {
		t.Fatalf("parent on cashier route: got %d, want 403", status)
	}
	if status, _ := httpDo(t, server, "GET", "/admin/reports/recap", nil, cashierToken); status != http.StatusForbidden {
		t.Fatalf("cashier on admin route: got %d, want 403", status)
	}

	if len(gateway.requests) != 2 {
		t.Fatalf("gateway sessions: got %d, want 2", len(gateway.requests))
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("catering_test"),
		tcpostgres.WithUsername("catering"),
		tcpostgres.WithPassword("catering"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Relative to internal/handler, where go test runs.
	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", "postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createStaffUser(t *testing.T, ctx context.Context, q *database.Queries, email string, role database.UserRole) uuid.UUID {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := q.UpsertStaffUser(ctx, database.CreateUserParams{
		Email:          email,
		HashedPassword: string(hash),
		FullName:       "Staf " + string(role),
		Phone:          pgtype.Text{},
		Role:           role,
	})
	if err != nil {
		t.Fatalf("create %s user: %v", role, err)
	}
	return u.ID
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	resp := httpPostJSON(t, server, "/auth/login", map[string]interface{}{
		"email":    email,
		"password": password,
	}, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login %s: no access_token in %v", email, resp)
	}
	return token
}

func addItem(t *testing.T, server *httptest.Server, token, menuID, childID, delivery string, qty int) {
	t.Helper()
	httpPostJSON(t, server, "/cart/items", map[string]interface{}{
		"menu_item_id":  menuID,
		"child_id":      childID,
		"delivery_date": delivery,
		"quantity":      qty,
	}, token)
}

func gatewayOrderID(t *testing.T, ctx context.Context, pool *pgxpool.Pool, orderID uuid.UUID) string {
	t.Helper()
	var id string
	if err := pool.QueryRow(ctx, `SELECT gateway_order_id FROM orders WHERE id = $1`, orderID).Scan(&id); err != nil {
		t.Fatalf("read gateway_order_id: %v", err)
	}
	return id
}

func assertNotificationCount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, gatewayID string, want int) {
	t.Helper()
	var n int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM payment_notifications WHERE gateway_order_id = $1`, gatewayID).Scan(&n); err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if n != want {
		t.Fatalf("payment_notifications for %s: got %d, want %d", gatewayID, n, want)
	}
}

// --- HTTP helpers ---

func httpDo(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result) //nolint:errcheck
	return resp.StatusCode, result
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	status, result := httpDo(t, server, "POST", path, body, token)
	if status < 200 || status >= 300 {
		t.Fatalf("POST %s: status %d, body: %v", path, status, result)
	}
	return result
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()
	status, result := httpDo(t, server, "GET", path, nil, token)
	if status < 200 || status >= 300 {
		t.Fatalf("GET %s: status %d, body: %v", path, status, result)
	}
	return result
}
