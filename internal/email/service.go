package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/pharmatrust/pharmacy-api/internal/config"
	"github.com/pharmatrust/pharmacy-api/internal/model"
)

// Service sends operational notifications. Delivery is best-effort: the
// alert worker logs failures and moves on.
type Service interface {
	SendLowStockAlert(ctx context.Context, drug *model.Drug) error
	SendExpiryAlert(ctx context.Context, drug *model.Drug) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.AlertsTo,
	}
}

func (s *smtpService) SendLowStockAlert(ctx context.Context, drug *model.Drug) error {
	subject := fmt.Sprintf("Low stock: %s", drug.Name)
	body := fmt.Sprintf(
		"Drug %s (%s, batch %s) is down to %d units; reorder level is %d.",
		drug.Name, drug.Strength, drug.BatchNumber, drug.StockQuantity, drug.MinStockLevel,
	)
	return s.send(subject, body)
}

func (s *smtpService) SendExpiryAlert(ctx context.Context, drug *model.Drug) error {
	subject := fmt.Sprintf("Expiry alert: %s", drug.Name)
	body := fmt.Sprintf(
		"Drug %s (batch %s) expires on %s with %d units on hand.",
		drug.Name, drug.BatchNumber, drug.ExpiryDate.Format("2006-01-02"), drug.StockQuantity,
	)
	return s.send(subject, body)
}

func (s *smtpService) send(subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return s.dialer.DialAndSend(m)
}
