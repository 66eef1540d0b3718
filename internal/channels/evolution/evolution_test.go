package evolution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseIncoming(t *testing.T) {
	c, err := New("http://localhost:8080", "main", "key")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("conversation message", func(t *testing.T) {
		payload := `{
			"event": "messages.upsert",
			"data": {
				"key": {"remoteJid": "5215512345678@s.whatsapp.net", "fromMe": false, "id": "ABC123"},
				"pushName": "Ana",
				"message": {"conversation": "hola, tengo un problema"},
				"messageTimestamp": 1722000000
			}
		}`
		msg, err := c.ParseIncoming([]byte(payload))
		if err != nil {
			t.Fatal(err)
		}
		if msg.SenderID != "5215512345678" {
			t.Errorf("sender = %q", msg.SenderID)
		}
		if msg.Body != "hola, tengo un problema" {
			t.Errorf("body = %q", msg.Body)
		}
		if msg.ProfileName != "Ana" || msg.MessageID != "ABC123" {
			t.Errorf("msg = %+v", msg)
		}
		if msg.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	})

	t.Run("extended text message", func(t *testing.T) {
		payload := `{
			"data": {
				"key": {"remoteJid": "521555@s.whatsapp.net"},
				"message": {"extendedTextMessage": {"text": "cita con enlace"}}
			}
		}`
		msg, err := c.ParseIncoming([]byte(payload))
		if err != nil {
			t.Fatal(err)
		}
		if msg.Body != "cita con enlace" {
			t.Errorf("body = %q", msg.Body)
		}
	})

	t.Run("group jid stripped", func(t *testing.T) {
		payload := `{"data": {"key": {"remoteJid": "12036304@g.us"}, "message": {"conversation": "x"}}}`
		msg, err := c.ParseIncoming([]byte(payload))
		if err != nil {
			t.Fatal(err)
		}
		if msg.SenderID != "12036304" {
			t.Errorf("sender = %q", msg.SenderID)
		}
	})

	t.Run("missing jid fails", func(t *testing.T) {
		if _, err := c.ParseIncoming([]byte(`{"data":{}}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed json fails", func(t *testing.T) {
		if _, err := c.ParseIncoming([]byte(`not json`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestSendText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"key": map[string]string{"id": "MSG1"},
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL, "main", "secret")
	if err != nil {
		t.Fatal(err)
	}

	res, err := c.SendText(context.Background(), "5215512345678", "tu pedido va en camino")
	if err != nil {
		t.Fatal(err)
	}
	if res.MessageID != "MSG1" {
		t.Errorf("message id = %q", res.MessageID)
	}
	if gotPath != "/message/sendText/main" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("apikey = %q", gotKey)
	}
	if gotBody["number"] != "5215512345678" || gotBody["text"] != "tu pedido va en camino" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSendTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, "main", "k")
	if _, err := c.SendText(context.Background(), "521555", "hola"); err == nil {
		t.Error("expected error")
	}
}
