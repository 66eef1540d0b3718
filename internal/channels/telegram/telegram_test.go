package telegram

import "testing"

func TestParseIncoming(t *testing.T) {
	c := &Channel{}

	t.Run("text message", func(t *testing.T) {
		payload := `{
			"update_id": 10,
			"message": {
				"message_id": 55,
				"date": 1722000000,
				"chat": {"id": 987654321, "type": "private"},
				"from": {"id": 111, "is_bot": false, "first_name": "Ana", "last_name": "García"},
				"text": "¿tienen routers disponibles?"
			}
		}`
		msg, err := c.ParseIncoming([]byte(payload))
		if err != nil {
			t.Fatal(err)
		}
		if msg.SenderID != "987654321" {
			t.Errorf("sender = %q", msg.SenderID)
		}
		if msg.Body != "¿tienen routers disponibles?" {
			t.Errorf("body = %q", msg.Body)
		}
		if msg.ProfileName != "Ana García" {
			t.Errorf("profile = %q", msg.ProfileName)
		}
		if msg.MessageID != "55" {
			t.Errorf("message id = %q", msg.MessageID)
		}
	})

	t.Run("edited message", func(t *testing.T) {
		payload := `{
			"update_id": 11,
			"edited_message": {
				"message_id": 56,
				"date": 1722000001,
				"chat": {"id": 5, "type": "private"},
				"text": "corregido"
			}
		}`
		msg, err := c.ParseIncoming([]byte(payload))
		if err != nil {
			t.Fatal(err)
		}
		if msg.Body != "corregido" {
			t.Errorf("body = %q", msg.Body)
		}
	})

	t.Run("username fallback", func(t *testing.T) {
		payload := `{
			"update_id": 12,
			"message": {
				"message_id": 57,
				"date": 1722000002,
				"chat": {"id": 6, "type": "private"},
				"from": {"id": 112, "is_bot": false, "first_name": "", "username": "ana_g"},
				"text": "hola"
			}
		}`
		msg, err := c.ParseIncoming([]byte(payload))
		if err != nil {
			t.Fatal(err)
		}
		if msg.ProfileName != "ana_g" {
			t.Errorf("profile = %q", msg.ProfileName)
		}
	})

	t.Run("non-message update fails", func(t *testing.T) {
		if _, err := c.ParseIncoming([]byte(`{"update_id": 13, "callback_query": {"id": "1"}}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed json fails", func(t *testing.T) {
		if _, err := c.ParseIncoming([]byte(`{{`)); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCommand(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"/start", "/start"},
		{"/Reset", "/reset"},
		{"/help@ventabot_bot", "/help"},
		{"/start con argumentos", "/start"},
		{"hola", ""},
		{"", ""},
		{"no /command aquí", ""},
	}
	for _, tt := range tests {
		if got := Command(tt.body); got != tt.want {
			t.Errorf("Command(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
