package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"operationcode_backend/internal/config"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// ErrInvalidAddress marks messages that can never be delivered as addressed.
var ErrInvalidAddress = errors.New("invalid mail address")

// Message is a multipart text + HTML mail.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPOptions configures an SMTPMailer.
type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPMailer sends mail through an SMTP relay. A new connection is used per message.
type SMTPMailer struct {
	opts SMTPOptions
}

func NewSMTPMailer(opts SMTPOptions) *SMTPMailer {
	if opts.Port == 0 {
		opts.Port = 587
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &SMTPMailer{opts: opts}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm := mail.NewMsg()
	if err := mm.From(msg.From); err != nil {
		return fmt.Errorf("%w: from %q: %v", ErrInvalidAddress, msg.From, err)
	}
	if err := mm.To(msg.To...); err != nil {
		return fmt.Errorf("%w: to %v: %v", ErrInvalidAddress, msg.To, err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		mm.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	clientOpts := []mail.Option{
		mail.WithPort(m.opts.Port),
		mail.WithTimeout(m.opts.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.opts.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.opts.Username),
			mail.WithPassword(m.opts.Password),
		)
	}
	client, err := mail.NewClient(m.opts.Host, clientOpts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used when SMTP_HOST is empty.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mail")}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("Mail not sent, SMTP is not configured",
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("text_bytes", len(msg.Text)),
		zap.Int("html_bytes", len(msg.HTML)))
	return nil
}

// NewMailer returns an SMTPMailer when SMTP_HOST is set and a LogMailer otherwise.
func NewMailer(cfg *config.Config, logger *zap.Logger) Mailer {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST is empty, outgoing mail will only be logged")
		return NewLogMailer(logger)
	}
	return NewSMTPMailer(SMTPOptions{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		Timeout:  cfg.ExternalHTTPTimeout,
	})
}
