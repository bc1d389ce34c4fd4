package messaging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/BTreeMap/HabitLens/internal/twiliowhatsapp"
)

func postWebhook(svc *TwilioService, form url.Values, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	rec := httptest.NewRecorder()
	svc.WebhookHandler(rec, req)
	return rec
}

func TestTwilioService_ImplementsService(t *testing.T) {
	var _ Service = (*TwilioService)(nil)
}

func TestTwilioService_WebhookEmitsResponse(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	rec := postWebhook(svc, url.Values{"From": {"whatsapp:+15550001234"}, "Body": {"hello"}}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	select {
	case r := <-svc.Responses():
		if r.Channel != ChannelTwilio || r.From != "+15550001234" || r.Body != "hello" {
			t.Errorf("unexpected response %+v", r)
		}
	default:
		t.Fatal("expected a response")
	}
}

func TestTwilioService_WebhookSignature(t *testing.T) {
	client := twiliowhatsapp.NewMockClient()
	client.ValidSignature = "good"
	svc := NewTwilioService(client, WithWebhookURL("https://example.com/webhooks/twilio"))
	form := url.Values{"From": {"whatsapp:+15550001234"}, "Body": {"hello"}}

	if rec := postWebhook(svc, form, "bad"); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for bad signature, got %d", rec.Code)
	}
	if rec := postWebhook(svc, form, "good"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 for valid signature, got %d", rec.Code)
	}
}

func TestTwilioService_WebhookRejectsIncompleteForms(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	tests := []struct {
		name string
		form url.Values
	}{
		{"missing body", url.Values{"From": {"whatsapp:+15550001234"}}},
		{"missing from", url.Values{"Body": {"hello"}}},
		{"invalid from", url.Values{"From": {"whatsapp:abc"}, "Body": {"hello"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := postWebhook(svc, tt.form, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestTwilioService_StoppedWebhook(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	rec := postWebhook(svc, url.Values{"From": {"whatsapp:+15550001234"}, "Body": {"hello"}}, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after Stop, got %d", rec.Code)
	}
	if err := svc.SendMessage(context.Background(), "+15550001234", "x"); err != ErrServiceStopped {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func TestChannelsSendToUser(t *testing.T) {
	twilioClient := twiliowhatsapp.NewMockClient()
	channels := NewChannels(NewTwilioService(twilioClient))

	if err := channels.SendToUser(context.Background(), "twilio:+15550001234", "plan"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent := twilioClient.Sent(); len(sent) != 1 || sent[0].To != "+15550001234" {
		t.Errorf("unexpected sent messages %+v", sent)
	}
	if err := channels.SendToUser(context.Background(), "whatsapp:+15550001234", "plan"); err == nil {
		t.Error("expected error for unconfigured channel")
	}
	if err := channels.SendToUser(context.Background(), "guest_abc", "plan"); err == nil {
		t.Error("expected error for non-channel user id")
	}
}

func TestSplitUserID(t *testing.T) {
	channel, address, ok := SplitUserID(UserID(ChannelWhatsApp, "+15550001234"))
	if !ok || channel != ChannelWhatsApp || address != "+15550001234" {
		t.Errorf("unexpected split %q %q %v", channel, address, ok)
	}
	if _, _, ok := SplitUserID("guest_abc"); ok {
		t.Error("expected guest id not to split")
	}
}
