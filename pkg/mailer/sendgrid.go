package mailer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	appErrors "github.com/noah-isme/moodle-engagement-api/pkg/errors"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridSender posts mail through the SendGrid v3 API.
type SendgridSender struct {
	key    string
	host   string
	client *rest.Client
}

// NewSendgridSender builds a sender whose HTTP calls are bounded by timeout.
func NewSendgridSender(key string, timeout time.Duration) *SendgridSender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SendgridSender{
		key:    key,
		host:   sendgridHost,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
	}
}

func (s *SendgridSender) prepare(msg Message) []byte {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail("", msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("", msg.From))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))
	return sgmail.GetRequestBody(m)
}

// Send issues a single API request.
func (s *SendgridSender) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = s.prepare(msg)

	res, err := s.client.SendWithContext(ctx, req)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrTransportProtocol.Code, appErrors.ErrTransportProtocol.Status, "sendgrid request failed")
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return appErrors.Clone(appErrors.ErrTransportAuth, "SendGrid rejected the API key")
	case res.StatusCode >= http.StatusBadRequest:
		return appErrors.Clone(appErrors.ErrTransportProtocol, fmt.Sprintf("sendgrid responded %d: %s", res.StatusCode, res.Body))
	}
	return nil
}
