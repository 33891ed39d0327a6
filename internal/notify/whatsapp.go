package notify

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/salonbook/apiserver/config"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const whatsappPrefix = "whatsapp:"

// TwilioWhatsApp sends WhatsApp messages through the Twilio Messages API.
type TwilioWhatsApp struct {
	client *twilio.RestClient
	from   string
}

// NewWhatsApp returns a Twilio messenger, or a no-op messenger when the
// credentials are missing.
func NewWhatsApp(cfg config.WhatsAppConfig) Messenger {
	if !cfg.Configured() {
		log.Println("whatsapp: TWILIO_* variables not set, messages disabled")
		return NoopMessenger{}
	}

	from, err := WhatsAppAddress(cfg.From)
	if err != nil {
		log.Printf("whatsapp: invalid sender, messages disabled: %v", err)
		return NoopMessenger{}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioWhatsApp{client: client, from: from}
}

// Send delivers body to the destination and returns the message SID.
func (t *TwilioWhatsApp) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest, err := WhatsAppAddress(to)
	if err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(dest)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return "", err
	}
	if resp.Sid == nil {
		return "", errors.New("twilio returned a message without sid")
	}
	return *resp.Sid, nil
}

// WhatsAppAddress normalizes a destination to the "whatsapp:+<E.164>" form.
// A bare "+<digits>" number is prefixed, anything else must already carry
// the prefix.
func WhatsAppAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, whatsappPrefix) && len(raw) > len(whatsappPrefix):
		return raw, nil
	case strings.HasPrefix(raw, "+") && len(raw) > 1:
		return whatsappPrefix + raw, nil
	default:
		return "", errors.New(`destination must start with "whatsapp:"`)
	}
}

// NoopMessenger drops messages. It stands in when WhatsApp is not configured.
type NoopMessenger struct{}

func (NoopMessenger) Send(_ context.Context, to, _ string) (string, error) {
	log.Printf("whatsapp: not configured, message to %s not sent", to)
	return "", nil
}
