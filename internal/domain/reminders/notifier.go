package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrChannelNotConfigured is returned when a reminder's channel has no
// configured transport.
var ErrChannelNotConfigured = errors.New("notification channel not configured")

// Notifier delivers a reminder over its channel.
type Notifier interface {
	Send(ctx context.Context, reminder *Reminder) (channel string, err error)
}

// ChannelNotifier sends email through Resend and WhatsApp through Twilio.
// A channel of the form "whatsapp:<number>" selects WhatsApp; anything else
// is treated as an email address, falling back to the configured sender.
type ChannelNotifier struct {
	emails       *resend.Client
	emailFrom    string
	twilio       *twilio.RestClient
	whatsappFrom string
}

// NotifierConfig carries the delivery credentials. Empty values disable the
// corresponding channel.
type NotifierConfig struct {
	ResendAPIKey     string
	EmailFrom        string
	TwilioAccountSID string
	TwilioAuthToken  string
	WhatsappFrom     string
}

// NewChannelNotifier wires the configured transports
func NewChannelNotifier(cfg NotifierConfig) *ChannelNotifier {
	n := &ChannelNotifier{
		emailFrom:    cfg.EmailFrom,
		whatsappFrom: cfg.WhatsappFrom,
	}
	if cfg.ResendAPIKey != "" {
		n.emails = resend.NewClient(cfg.ResendAPIKey)
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		n.twilio = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
	}
	return n
}

// Send delivers the reminder and reports which channel carried it
func (n *ChannelNotifier) Send(ctx context.Context, reminder *Reminder) (string, error) {
	if number, found := strings.CutPrefix(reminder.Channel, "whatsapp:"); found {
		return "whatsapp", n.sendWhatsapp(number, reminder.Message)
	}
	return "email", n.sendEmail(ctx, reminder.Channel, reminder.Message)
}

func (n *ChannelNotifier) sendEmail(ctx context.Context, to, body string) error {
	if n.emails == nil || n.emailFrom == "" {
		return ErrChannelNotConfigured
	}
	if !strings.Contains(to, "@") {
		to = n.emailFrom
	}

	_, err := n.emails.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.emailFrom,
		To:      []string{to},
		Subject: "Bill Reminder",
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}
	return nil
}

func (n *ChannelNotifier) sendWhatsapp(number, body string) error {
	if n.twilio == nil || n.whatsappFrom == "" {
		return ErrChannelNotConfigured
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetBody(body)
	params.SetFrom(n.whatsappFrom)
	params.SetTo("whatsapp:" + number)

	if _, err := n.twilio.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send reminder whatsapp message: %w", err)
	}
	return nil
}
