package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ventabot/ventabot/internal/providers"
)

// Lead is a sales opportunity captured by the sales agent.
type Lead struct {
	Phone       string `json:"phone"`
	Name        string `json:"name,omitempty"`
	Interest    string `json:"interest"`
	IntentLevel string `json:"intent_level,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// CRMClient registers leads against an external CRM. With no API URL
// configured it runs in simulation mode and only logs. HTTP failures
// degrade to local logging so the sales flow never breaks on CRM outages.
type CRMClient struct {
	apiURL string
	apiKey string
	client *http.Client
	retry  providers.RetryConfig
}

func NewCRMClient(apiURL, apiKey string) *CRMClient {
	return &CRMClient{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
		retry:  providers.DefaultRetryConfig(),
	}
}

// RegisterLead posts the lead to the CRM and returns a message for the
// agent. The returned string never signals a hard failure.
func (c *CRMClient) RegisterLead(ctx context.Context, lead Lead) (string, error) {
	if lead.Phone == "" || lead.Interest == "" {
		return "Faltan datos del lead: se requiere teléfono e interés.", nil
	}

	if c.apiURL == "" {
		slog.Info("crm simulation: lead captured",
			"phone", lead.Phone, "interest", lead.Interest, "intent_level", lead.IntentLevel)
		return "Lead registrado (modo simulación).", nil
	}

	_, err := providers.RetryDo(ctx, c.retry, func() (struct{}, error) {
		return struct{}{}, c.post(ctx, lead)
	})
	if err != nil {
		slog.Warn("crm unavailable, lead logged locally",
			"phone", lead.Phone, "interest", lead.Interest, "error", err)
		return "Lead registrado localmente (CRM no disponible).", nil
	}

	slog.Info("lead registered in crm", "phone", lead.Phone, "interest", lead.Interest)
	return "Lead registrado en el CRM.", nil
}

func (c *CRMClient) post(ctx context.Context, lead Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL+"/leads", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("crm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &providers.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
