package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"amhaz-backend/models"
)

var ErrSMTPNotConfigured = errors.New("SMTP not configured")

type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// AdminAddress receives a copy of every new order. Defaults to From.
	AdminAddress string
}

func (c EmailConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.From != ""
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends the customer confirmation and the staff copy for new
// orders. Other event types are ignored.
type EmailNotifier struct {
	cfg  EmailConfig
	send sendFunc
}

func NewEmailNotifier(cfg EmailConfig) *EmailNotifier {
	if cfg.AdminAddress == "" {
		cfg.AdminAddress = cfg.From
	}
	return &EmailNotifier{cfg: cfg, send: smtp.SendMail}
}

func (n *EmailNotifier) Notify(ctx context.Context, event OrderEvent) error {
	if event.Type != EventOrderConfirmed {
		return nil
	}
	if !n.cfg.Configured() {
		return ErrSMTPNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var customerHTML bytes.Buffer
	if err := customerTemplate.Execute(&customerHTML, event); err != nil {
		return fmt.Errorf("render customer email: %w", err)
	}
	subject := fmt.Sprintf("Your Order #%s Has Been Received", event.OrderNumber)
	if err := n.sendMail(event.Customer.Email, subject, customerHTML.String()); err != nil {
		return fmt.Errorf("send customer email for order %s: %w", event.OrderNumber, err)
	}

	var adminHTML bytes.Buffer
	if err := adminTemplate.Execute(&adminHTML, event); err != nil {
		return fmt.Errorf("render admin email: %w", err)
	}
	adminSubject := fmt.Sprintf("New Order #%s", event.OrderNumber)
	if err := n.sendMail(n.cfg.AdminAddress, adminSubject, adminHTML.String()); err != nil {
		return fmt.Errorf("send admin email for order %s: %w", event.OrderNumber, err)
	}
	return nil
}

func (n *EmailNotifier) sendMail(to, subject, htmlBody string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		n.cfg.From, to, subject)
	msg := []byte(headers + htmlBody)

	var auth smtp.Auth
	if n.cfg.Username != "" && n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	addr := n.cfg.Host + ":" + n.cfg.Port
	return n.send(addr, auth, n.cfg.From, []string{to}, msg)
}

// AdminSummary is the plain-text order digest staff read on their phones.
func AdminSummary(event OrderEvent) string {
	lines := []string{
		fmt.Sprintf("New Order #%s", event.OrderNumber),
		fmt.Sprintf("Type: %s", event.OrderType.Label()),
		"",
		"Items:",
	}
	for _, item := range event.Items {
		lines = append(lines, fmt.Sprintf("- %s x%d", item.Name, item.Quantity))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Total: %s", event.Total.StringFixed(2)),
		fmt.Sprintf("Customer: %s", event.Customer.Name),
		fmt.Sprintf("Phone: %s", event.Customer.Phone),
		fmt.Sprintf("Email: %s", event.Customer.Email),
		fmt.Sprintf("District: %s", models.DistrictLabel(event.Customer.District)),
		fmt.Sprintf("Address: %s", event.Customer.Address),
		fmt.Sprintf("Building: %s", event.Customer.Building),
	)
	return strings.Join(lines, "\n")
}

var templateFuncs = template.FuncMap{
	"firstName": func(name string) string { return strings.Split(name, " ")[0] },
	"district":  models.DistrictLabel,
	"summary":   AdminSummary,
}

var customerTemplate = template.Must(template.New("customer").Funcs(templateFuncs).Parse(`<h2>Order Received!</h2>
<p>Hi {{firstName .Customer.Name}},</p>
<p>Your order <strong>#{{.OrderNumber}}</strong> has been placed successfully.</p>
<ul>
{{range .Items}}<li>{{.Name}} x{{.Quantity}} - {{.LineTotal.StringFixed 2}}</li>
{{end}}</ul>
<p>Order total: <strong>{{.Total.StringFixed 2}}</strong></p>
<p>{{.OrderType.Label}}{{if .Customer.District}} to {{district .Customer.District}}{{end}}</p>
<p>We'll contact you on {{.Customer.Phone}} to arrange the handover.</p>`))

var adminTemplate = template.Must(template.New("admin").Funcs(templateFuncs).Parse(`<h2>New Order #{{.OrderNumber}}</h2>
<pre>{{summary .}}</pre>`))
