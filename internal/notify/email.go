// Package notify emails parents when a payment settles.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	gopkgmail "gopkg.in/gomail.v2"

	"github.com/sekolah-catering/api/internal/enum"
	"github.com/sekolah-catering/api/internal/events"
	"github.com/sekolah-catering/api/internal/format"
)

//go:embed templates/*
var templateFS embed.FS

var (
	receiptHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/receipt.html"))
	receiptText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/receipt.txt"))
)

// Mailer is satisfied by *gomail.Dialer.
type Mailer interface {
	DialAndSend(m ...*gopkgmail.Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

func NewDialer(cfg SMTPConfig) *gopkgmail.Dialer {
	d := gopkgmail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.SSL = cfg.Port == 465
	return d
}

type EmailSender struct {
	mailer Mailer
	from   string
	log    *zap.Logger
}

func NewEmailSender(mailer Mailer, from string, log *zap.Logger) *EmailSender {
	return &EmailSender{mailer: mailer, from: from, log: log}
}

type receiptData struct {
	Title       string
	OrderNumber string
	StatusLabel string
	StatusColor string
	MethodLabel string
	Total       string
	Change      string
	When        string
}

// Handle sends a receipt for events that leave an order paid. Other events
// and events without a recipient are ignored.
func (s *EmailSender) Handle(_ context.Context, e events.Event) error {
	if !shouldNotify(e) {
		return nil
	}
	if e.Email == "" {
		s.log.Debug("skip receipt without email", zap.String("order_number", e.OrderNumber))
		return nil
	}

	m, err := s.buildReceipt(e)
	if err != nil {
		return err
	}
	if err := s.mailer.DialAndSend(m); err != nil {
		return fmt.Errorf("send receipt for %s: %w", e.OrderNumber, err)
	}
	s.log.Info("receipt sent", zap.String("order_number", e.OrderNumber), zap.String("to", e.Email))
	return nil
}

func shouldNotify(e events.Event) bool {
	switch e.Type {
	case events.TypePaymentSettled:
		return true
	case events.TypePaymentStatusChanged:
		return e.PaymentStatus == enum.PaymentStatusPaid
	}
	return false
}

func (s *EmailSender) buildReceipt(e events.Event) (*gopkgmail.Message, error) {
	status := enum.PaymentStatus(e.PaymentStatus)
	data := receiptData{
		Title:       "Pembayaran Berhasil",
		OrderNumber: e.OrderNumber,
		StatusLabel: status.Label,
		StatusColor: status.Color,
		Total:       priceString(e.TotalAmount),
		When:        format.DateTime(e.OccurredAt),
	}
	if e.PaymentMethod != "" {
		data.MethodLabel = enum.PaymentMethodLabel(e.PaymentMethod)
	}
	if e.ChangeAmount != "" {
		data.Change = priceString(e.ChangeAmount)
	}

	var html, plain bytes.Buffer
	if err := receiptHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	if err := receiptText.Execute(&plain, data); err != nil {
		return nil, fmt.Errorf("render plain: %w", err)
	}

	m := gopkgmail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", e.Email)
	m.SetHeader("Subject", "Pembayaran pesanan "+e.OrderNumber+" diterima")
	m.SetBody("text/plain", plain.String())
	m.AddAlternative("text/html", html.String())
	return m, nil
}

func priceString(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return format.Price(d)
}
