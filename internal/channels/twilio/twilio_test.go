package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"testing"
)

func testChannel(t *testing.T) *Channel {
	t.Helper()
	c, err := New("ACxxxx", "secret-token", "+14155238886")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestParseIncoming(t *testing.T) {
	c := testChannel(t)

	t.Run("valid message", func(t *testing.T) {
		form := url.Values{}
		form.Set("MessageSid", "SM123")
		form.Set("From", "whatsapp:+5215512345678")
		form.Set("To", "whatsapp:+14155238886")
		form.Set("Body", "¿cuánto cuesta el router?")
		form.Set("ProfileName", "Ana")

		msg, err := c.ParseIncoming([]byte(form.Encode()))
		if err != nil {
			t.Fatal(err)
		}
		if msg.SenderID != "+5215512345678" {
			t.Errorf("sender = %q", msg.SenderID)
		}
		if msg.Body != "¿cuánto cuesta el router?" {
			t.Errorf("body = %q", msg.Body)
		}
		if msg.MessageID != "SM123" || msg.ProfileName != "Ana" {
			t.Errorf("msg = %+v", msg)
		}
		if msg.Channel != "whatsapp" {
			t.Errorf("channel = %q", msg.Channel)
		}
	})

	t.Run("missing From", func(t *testing.T) {
		if _, err := c.ParseIncoming([]byte("Body=hola")); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("status callback without body parses empty", func(t *testing.T) {
		msg, err := c.ParseIncoming([]byte("From=whatsapp:%2B521555&MessageStatus=delivered"))
		if err != nil {
			t.Fatal(err)
		}
		if msg.Body != "" {
			t.Errorf("body = %q", msg.Body)
		}
	})
}

func TestValidateSignature(t *testing.T) {
	c := testChannel(t)

	fullURL := "https://bot.example.com/webhook/whatsapp"
	form := url.Values{}
	form.Set("From", "whatsapp:+521555")
	form.Set("Body", "hola")

	// Build the expected signature the way Twilio does.
	mac := hmac.New(sha1.New, []byte("secret-token"))
	mac.Write([]byte(fullURL + "Body" + "hola" + "From" + "whatsapp:+521555"))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !c.ValidateSignature(fullURL, form, sig) {
		t.Error("valid signature rejected")
	}
	if c.ValidateSignature(fullURL, form, "bogus") {
		t.Error("bogus signature accepted")
	}
}
