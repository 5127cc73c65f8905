package mailer

import (
	"context"
	"fmt"
	"net"
	"time"

	"catering-booking/pkg/utils"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// connTimeout bounds dialing when the caller's context has no deadline.
const connTimeout = 15 * time.Second

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPSender struct {
	cfg utils.EmailConfig
	log *zap.Logger
}

// New returns an SMTP sender, or a log-only sender when no host is configured.
func New(cfg utils.EmailConfig, log *zap.Logger) Sender {
	log = log.With(zap.String("component", "mailer"))
	if cfg.Host == "" {
		return &LogSender{log: log}
	}
	return &SMTPSender{cfg: cfg, log: log}
}

// Send delivers the message within ctx. The connection deadline follows the
// context deadline, so a stalled server cannot hold the caller past it.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := newMessage(s.cfg.From, to, subject, htmlBody)
	if err != nil {
		return err
	}

	client, err := s.client(ctx)
	if err != nil {
		return fmt.Errorf("configure smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	s.log.Info("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// newMessage builds an HTML message. Headers are RFC 2047 encoded when they
// carry non-ASCII text or control characters.
func newMessage(from, to, subject, htmlBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("set sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("set recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

func (s *SMTPSender) client(ctx context.Context) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithTimeout(connTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithDialContextFunc(deadlineDialer(ctx)),
	}
	if s.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(s.cfg.Port))
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return mail.NewClient(s.cfg.Host, opts...)
}

// deadlineDialer applies the deadline of ctx to every read and write on the
// SMTP connection, not only to the dial.
func deadlineDialer(ctx context.Context) mail.DialContextFunc {
	return func(dialCtx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			if err := conn.SetDeadline(deadline); err != nil {
				conn.Close()
				return nil, err
			}
		}
		return conn, nil
	}
}

// LogSender records the email instead of delivering it. The body is not
// logged since it may carry capability links.
type LogSender struct {
	log *zap.Logger
}

func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	s.log.Info("Email delivery disabled, message dropped",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
