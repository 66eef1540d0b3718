package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ventabot/ventabot/internal/providers"
	"github.com/ventabot/ventabot/internal/rag"
)

// scriptedProvider returns canned responses in order and records requests.
type scriptedProvider struct {
	responses []*providers.ChatResponse
	errs      []error
	requests  []providers.ChatRequest
}

func (p *scriptedProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	i := len(p.requests)
	p.requests = append(p.requests, req)
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i >= len(p.responses) {
		return nil, errors.New("no scripted response left")
	}
	return p.responses[i], nil
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }
func (p *scriptedProvider) Name() string         { return "scripted" }

// fixedEmbedder maps any text to a constant vector so search is deterministic.
type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func testRetriever(t *testing.T) *rag.Retriever {
	t.Helper()
	store, err := rag.OpenStore(filepath.Join(t.TempDir(), "knowledge.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return rag.NewRetriever(store, fixedEmbedder{}, rag.NewSplitter(512, 64), 4, 0.3)
}

func newTestOrchestrator(t *testing.T, p providers.Provider) *Orchestrator {
	t.Helper()
	return NewOrchestrator(p, testRetriever(t), NewCRMClient("", ""), Options{
		Model:             "test-model",
		MaxToolIterations: 3,
		BusinessName:      "TechVentas",
	})
}

func TestRunSalesChain(t *testing.T) {
	ctx := context.Background()

	p := &scriptedProvider{responses: []*providers.ChatResponse{
		// Sales agent asks for the catalog first.
		{ToolCalls: []providers.ToolCall{{
			ID: "call_1", Name: "search_catalog",
			Arguments: map[string]interface{}{"query": "router"},
		}}, FinishReason: "tool_calls"},
		// Then drafts the reply.
		{Content: "El Router X1 cuesta $1299.99 y tenemos stock."},
		// QA approves.
		{Content: "APROBADO: El Router X1 cuesta $1299.99 y tenemos stock."},
	}}

	o := newTestOrchestrator(t, p)
	res := o.Run(ctx, "¿Cuál es el precio del router y hay stock?", "", "Ana")

	if res.IntentType != "VENTAS" {
		t.Errorf("intent = %q, want VENTAS", res.IntentType)
	}
	if res.FinalResponse != "El Router X1 cuesta $1299.99 y tenemos stock." {
		t.Errorf("response = %q", res.FinalResponse)
	}
	if len(p.requests) != 3 {
		t.Fatalf("provider calls = %d, want 3", len(p.requests))
	}

	// The second sales call must carry the tool result message.
	second := p.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Errorf("tool result not threaded back: %+v", last)
	}
	// Empty store: the tool reports no relevant information.
	if !strings.Contains(last.Content, "No se encontró información relevante") {
		t.Errorf("tool output = %q", last.Content)
	}

	// QA runs without tools.
	if got := p.requests[2].Tools; len(got) != 0 {
		t.Errorf("qa call carries %d tools, want 0", len(got))
	}
}

func TestRunSupportChain(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "Reinicia el equipo y verifica el cable."},
		{Content: "RECHAZADO: falta cortesía. CORRECCIÓN: ¡Hola! Prueba reiniciar el equipo y verificar el cable."},
	}}

	o := newTestOrchestrator(t, p)
	res := o.Run(context.Background(), "Tengo un error, el equipo no funciona", "", "")

	if res.IntentType != "SOPORTE_TECNICO" {
		t.Errorf("intent = %q", res.IntentType)
	}
	if res.FinalResponse != "¡Hola! Prueba reiniciar el equipo y verificar el cable." {
		t.Errorf("response = %q", res.FinalResponse)
	}
}

func TestRunUnknownUsesManager(t *testing.T) {
	p := &scriptedProvider{responses: []*providers.ChatResponse{
		{Content: "Consulta general: saludo."},
		{Content: "¡Hola! ¿En qué puedo ayudarte hoy?"},
		{Content: "APROBADO: ¡Hola! ¿En qué puedo ayudarte hoy?"},
	}}

	o := newTestOrchestrator(t, p)
	res := o.Run(context.Background(), "Hola, buenos días", "", "")

	if res.IntentType != "CLASIFICACION_LLM" {
		t.Errorf("intent = %q", res.IntentType)
	}
	if res.FinalResponse != "¡Hola! ¿En qué puedo ayudarte hoy?" {
		t.Errorf("response = %q", res.FinalResponse)
	}
	if len(p.requests) != 3 {
		t.Errorf("provider calls = %d, want 3 (classify, respond, qa)", len(p.requests))
	}
}

func TestRunProviderFailureSendsApology(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("boom")}}

	o := newTestOrchestrator(t, p)
	res := o.Run(context.Background(), "quiero comprar un router", "", "")

	if res.FinalResponse != Apology {
		t.Errorf("response = %q, want apology", res.FinalResponse)
	}
	if res.IntentType != "VENTAS" {
		t.Errorf("intent = %q", res.IntentType)
	}
}

func TestRunToolIterationLimit(t *testing.T) {
	toolCall := &providers.ChatResponse{
		ToolCalls: []providers.ToolCall{{
			ID: "c", Name: "search_catalog",
			Arguments: map[string]interface{}{"query": "router"},
		}},
		FinishReason: "tool_calls",
	}
	// The sales agent never stops calling tools; the third response still
	// has no content, so the chain fails and the apology is sent.
	p := &scriptedProvider{responses: []*providers.ChatResponse{toolCall, toolCall, toolCall}}

	o := newTestOrchestrator(t, p)
	res := o.Run(context.Background(), "precio del router", "", "")

	if res.FinalResponse != Apology {
		t.Errorf("response = %q, want apology", res.FinalResponse)
	}
	if len(p.requests) != 3 {
		t.Errorf("provider calls = %d, want 3 (iteration limit)", len(p.requests))
	}
}
