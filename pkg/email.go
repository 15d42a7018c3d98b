package pkg

import (
	"fmt"

	"github.com/rs/zerolog"
	gomail "github.com/wneessen/go-mail"
)

// SmtpSettings is the subset of app config the mailer needs.
type SmtpSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// Mailer sends operational notification mail over SMTP. When unconfigured it
// only logs, so mail is never a hard dependency of any core operation.
type Mailer struct {
	cfg    SmtpSettings
	logger zerolog.Logger
}

func NewMailer(cfg SmtpSettings, logger zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// SendHTML sends an HTML mail to the given recipients.
func (slf *Mailer) SendHTML(to []string, subject, body string) error {
	if slf.cfg.Host == "" || slf.cfg.Username == "" {
		return fmt.Errorf("SMTP not configured (SMTP_HOST / SMTP_USERNAME missing)")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	from := slf.cfg.From
	if from == "" {
		from = slf.cfg.Username
	}

	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return fmt.Errorf("failed to set from: %w", err)
	}
	if err := m.To(to...); err != nil {
		return fmt.Errorf("failed to set to: %w", err)
	}
	m.Subject(subject)
	m.SetBodyString(gomail.TypeTextHTML, body)

	tlsPolicy := gomail.TLSOpportunistic
	if slf.cfg.UseTLS {
		tlsPolicy = gomail.TLSMandatory
	}

	opts := []gomail.Option{
		gomail.WithPort(slf.cfg.Port),
		gomail.WithTLSPolicy(tlsPolicy),
	}
	if slf.cfg.Password != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(slf.cfg.Username),
			gomail.WithPassword(slf.cfg.Password),
		)
	}

	client, err := gomail.NewClient(slf.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	slf.logger.Info().Int("recipients", len(to)).Str("subject", subject).Msg("Notification mail sent")
	return nil
}
