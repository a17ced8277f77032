package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"refurb-app/services/catalog"
	"refurb-app/services/intake"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var fulfilledBody = template.Must(template.New("fulfilled").Parse(`
<html>
	<body>
		<h3>All devices received for {{.Order.PoNumber}}</h3>
		<p>Planned: <strong>{{.Fulfillment.TotalPlanned}}</strong>, received: <strong>{{.Fulfillment.TotalReceived}}</strong>.</p>
		<p>The purchase order can now be marked as complete.</p>
		<p>This is an auto-generated email. Please do not reply to this email or its recipients.</p>
	</body>
</html>
`))

var tacImportBody = template.Must(template.New("tac").Parse(`
<html>
	<body>
		<h3>TAC catalogue file {{.File}} imported</h3>
		<p>Rows: {{.Result.TotalRows}}, inserted: <strong>{{.Inserted}}</strong>, updated: <strong>{{.Updated}}</strong>, errors: {{.Result.ErrorCount}}.</p>
		{{if .Result.ErrorMessages}}<ul>{{range .Result.ErrorMessages}}<li>{{.}}</li>{{end}}</ul>{{end}}
		<p>This is an auto-generated email. Please do not reply to this email or its recipients.</p>
	</body>
</html>
`))

// Mailer e-mails purchasing when an order has received everything it planned, and reports catalogue imports.
type Mailer struct {
	from string
	to   []string
	send func(...*gomail.Message) error
}

// NewSMTPMailer sends through an SMTP server. It returns nil when host or recipients are missing.
func NewSMTPMailer(host string, port int, user, password, from string, to []string) *Mailer {
	if host == "" || len(to) == 0 {
		return nil
	}
	if from == "" {
		from = user
	}
	dialer := gomail.NewDialer(host, port, user, password)
	return &Mailer{from: from, to: to, send: dialer.DialAndSend}
}

// NewMailer sends through sender.
func NewMailer(sender gomail.Sender, from string, to []string) *Mailer {
	return &Mailer{
		from: from,
		to:   to,
		send: func(msgs ...*gomail.Message) error { return gomail.Send(sender, msgs...) },
	}
}

func (m *Mailer) message(subject string, tmpl *template.Template, data interface{}) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())
	return msg, nil
}

func (m *Mailer) Fulfilled(e intake.FulfilledEvent) error {
	msg, err := m.message(fmt.Sprintf("Purchase order %s fully received", e.Order.PoNumber), fulfilledBody, e)
	if err != nil {
		return err
	}
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send fulfillment mail for %s: %w", e.Order.PoNumber, err)
	}
	zap.L().Info("fulfillment mail sent", zap.String("po_number", e.Order.PoNumber), zap.Strings("to", m.to))
	return nil
}

// Hook adapts the mailer to intake.Hooks. Mail goes out in the background.
func (m *Mailer) Hook() func(intake.FulfilledEvent) {
	return func(e intake.FulfilledEvent) {
		go func() {
			if err := m.Fulfilled(e); err != nil {
				zap.L().Error("fulfillment mail failed", zap.Error(err))
			}
		}()
	}
}

// TacImported reports the outcome of one catalogue file import.
func (m *Mailer) TacImported(file string, inserted, updated int, result catalog.ImportResult) error {
	data := struct {
		File     string
		Inserted int
		Updated  int
		Result   catalog.ImportResult
	}{file, inserted, updated, result}

	msg, err := m.message("TAC catalogue import "+file, tacImportBody, data)
	if err != nil {
		return err
	}
	if err := m.send(msg); err != nil {
		return fmt.Errorf("send tac import mail for %s: %w", file, err)
	}
	return nil
}
