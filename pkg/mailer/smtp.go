package mailer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

// Supported SMTP submission ports.
const (
	PortSTARTTLS    = 587
	PortImplicitTLS = 465

	defaultTimeout = 10 * time.Second
)

// SMTPConfig holds the connection settings of an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// SMTPSender submits mail through an authenticated TLS relay.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
	altered  bool
	dial     dialFunc
	tls      *tls.Config
}

// NewSMTPSender builds a sender. Credentials are folded to ASCII up front.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	user, userChanged := SanitizeCredential(cfg.Username)
	pass, passChanged := SanitizeCredential(cfg.Password)
	dialer := &net.Dialer{}
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: user,
		password: pass,
		timeout:  cfg.Timeout,
		altered:  userChanged || passChanged,
		dial:     dialer.DialContext,
		tls:      &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
	}
}

// CredentialsAltered reports whether non-ASCII characters were removed from the credentials.
func (s *SMTPSender) CredentialsAltered() bool {
	return s.altered
}

// Send delivers msg in a single attempt bounded by the configured timeout.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.port != PortSTARTTLS && s.port != PortImplicitTLS {
		return appErrors.Clone(appErrors.ErrUnsupportedConfig,
			fmt.Sprintf("Unsupported SMTP port: %d. Use 587 (STARTTLS) or 465 (SSL).", s.port))
	}
	if strings.TrimSpace(s.host) == "" {
		return appErrors.Clone(appErrors.ErrUnsupportedConfig, "SMTP server is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	conn, err := s.dial(ctx, "tcp", addr)
	if err != nil {
		return classify(err, appErrors.ErrTransportProtocol, "connect to smtp server")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if s.port == PortImplicitTLS {
		tlsConn := tls.Client(conn, s.tls)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return classify(err, appErrors.ErrTransportEncryption, "tls handshake")
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return classify(err, appErrors.ErrTransportProtocol, "smtp greeting")
	}
	defer client.Close() //nolint:errcheck

	if s.port == PortSTARTTLS {
		if err := client.StartTLS(s.tls); err != nil {
			return classify(err, appErrors.ErrTransportProtocol, "starttls")
		}
	}

	if s.username != "" && s.password != "" {
		if err := client.Auth(smtp.PlainAuth("", s.username, s.password, s.host)); err != nil {
			return classify(err, appErrors.ErrTransportAuth, "smtp auth")
		}
	}

	if err := client.Mail(msg.From); err != nil {
		return classify(err, appErrors.ErrTransportProtocol, "mail from")
	}
	if err := client.Rcpt(msg.To); err != nil {
		return classify(err, appErrors.ErrTransportProtocol, "rcpt to")
	}
	w, err := client.Data()
	if err != nil {
		return classify(err, appErrors.ErrTransportProtocol, "data")
	}
	if _, err := w.Write(buildMessage(msg, time.Now())); err != nil {
		return classify(err, appErrors.ErrTransportProtocol, "write message")
	}
	if err := w.Close(); err != nil {
		return classify(err, appErrors.ErrTransportProtocol, "finish message")
	}
	if err := client.Quit(); err != nil {
		return classify(err, appErrors.ErrTransportProtocol, "quit")
	}
	return nil
}

// classify maps a transport failure to its category. Authentication reply codes
// and TLS failures win over fallback.
func classify(err error, fallback *appErrors.Error, stage string) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 534, 535:
			return appErrors.Wrap(err, appErrors.ErrTransportAuth.Code, appErrors.ErrTransportAuth.Status,
				"Authentication failed. Check your SMTP username and password.")
		}
	}
	if isTLSError(err) {
		return appErrors.Wrap(err, appErrors.ErrTransportEncryption.Code, appErrors.ErrTransportEncryption.Status,
			fmt.Sprintf("SSL error during %s", stage))
	}
	if fallback.Code == appErrors.ErrTransportAuth.Code {
		return appErrors.Wrap(err, fallback.Code, fallback.Status, fallback.Message)
	}
	return appErrors.Wrap(err, fallback.Code, fallback.Status, fmt.Sprintf("SMTP error during %s", stage))
}

func isTLSError(err error) bool {
	var (
		recordErr   tls.RecordHeaderError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &recordErr), errors.As(err, &verifyErr), errors.As(err, &unknownAuth),
		errors.As(err, &hostnameErr), errors.As(err, &invalidErr):
		return true
	}
	return strings.HasPrefix(err.Error(), "tls:")
}

func buildMessage(msg Message, date time.Time) []byte {
	var b strings.Builder
	header := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	header("From", msg.From)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
