package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/crowdshield/dashboard/backend/internal/config"
)

// Sender delivers one SMS and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// TwilioSender sends through the Twilio Messages API.
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender builds a REST client from the Twilio credential group.
func NewTwilioSender(cfg config.SMSConfig) (*TwilioSender, error) {
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("twilio credentials missing: %v", missing)
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSender{client: client, from: cfg.FromNumber}, nil
}

// Send creates the message. The Twilio SDK call is not context-aware, so ctx
// is only checked before dispatch.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Sid == nil {
		return "", errors.New("twilio returned no message sid")
	}
	return *resp.Sid, nil
}
