// Package pipeline runs the bounded multi-agent flow for one inbound
// message: quick keyword routing, a specialist draft with tool access,
// and a QA validation pass.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ventabot/ventabot/internal/agents"
	"github.com/ventabot/ventabot/internal/providers"
	"github.com/ventabot/ventabot/internal/rag"
	"github.com/ventabot/ventabot/internal/router"
)

// Apology is the fixed reply when the pipeline fails: the customer always
// gets an answer.
const Apology = "Disculpa, tuve un inconveniente técnico. ¿Podrías repetir tu consulta? Estoy aquí para ayudarte."

// Result is the pipeline outcome for one message.
type Result struct {
	IntentType    string `json:"intent_type"`
	FinalResponse string `json:"final_response"`
}

// Options tune the orchestrator per deployment.
type Options struct {
	Model             string
	Temperature       float64
	MaxTokens         int
	MaxToolIterations int
	BusinessName      string
}

// Orchestrator wires the provider, retrieval tools and CRM into the
// agent chains.
type Orchestrator struct {
	provider providers.Provider
	opts     Options

	salesTools   ToolSet
	supportTools ToolSet
}

func NewOrchestrator(provider providers.Provider, retriever *rag.Retriever, crm *CRMClient, opts Options) *Orchestrator {
	if opts.MaxToolIterations <= 0 {
		opts.MaxToolIterations = 3
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.3
	}

	catalog := catalogSearchTool(retriever)
	docs := docsSearchTool(retriever)

	return &Orchestrator{
		provider: provider,
		opts:     opts,
		salesTools: ToolSet{
			"search_catalog": catalog,
			"update_crm":     crmTool(crm),
		},
		supportTools: ToolSet{
			"search_docs":    docs,
			"search_catalog": catalog,
		},
	}
}

// Run executes the full chain for one message. Provider failures are
// absorbed: the result then carries the apology and no error.
func (o *Orchestrator) Run(ctx context.Context, message, history, profileName string) Result {
	intent := router.QuickRoute(message)

	result, err := o.run(ctx, intent, message, history, profileName)
	if err != nil {
		slog.Error("pipeline failed, sending apology", "intent", result.IntentType, "error", err)
		result.FinalResponse = Apology
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, intent router.Intent, message, history, profileName string) (Result, error) {
	var (
		result Result
		draft  string
		err    error
	)

	switch intent {
	case router.IntentSales:
		result.IntentType = string(router.IntentSales)
		draft, err = o.runAgent(ctx, agents.RoleSales,
			agents.SalesTask(message, history, profileName), o.salesTools)
	case router.IntentSupport:
		result.IntentType = string(router.IntentSupport)
		draft, err = o.runAgent(ctx, agents.RoleSupport,
			agents.SupportTask(message, history, profileName), o.supportTools)
	default:
		result.IntentType = string(router.IntentLLM)
		var analysis string
		analysis, err = o.runAgent(ctx, agents.RoleManager,
			agents.ClassifyTask(message, history), nil)
		if err == nil {
			draft, err = o.runAgent(ctx, agents.RoleManager,
				agents.GeneralTask(message, history, analysis), nil)
		}
	}
	if err != nil {
		return result, err
	}

	validated, err := o.runAgent(ctx, agents.RoleQA, agents.QATask(message, draft), nil)
	if err != nil {
		return result, err
	}

	result.FinalResponse = agents.ExtractValidated(validated)
	return result, nil
}

// runAgent executes one role with a bounded tool loop. QA and manager run
// without tools and therefore make a single call.
func (o *Orchestrator) runAgent(ctx context.Context, role agents.Role, task string, tools ToolSet) (string, error) {
	messages := []providers.Message{
		{Role: "system", Content: agents.SystemPrompt(role, o.opts.BusinessName)},
		{Role: "user", Content: task},
	}

	maxIters := 1
	if len(tools) > 0 {
		maxIters = o.opts.MaxToolIterations
	}

	for iter := 0; ; iter++ {
		resp, err := o.provider.Chat(ctx, providers.ChatRequest{
			Messages:    messages,
			Tools:       tools.Definitions(),
			Model:       o.opts.Model,
			Temperature: o.opts.Temperature,
			MaxTokens:   o.opts.MaxTokens,
		})
		if err != nil {
			return "", fmt.Errorf("agent %s: %w", role, err)
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}
		if iter+1 >= maxIters {
			// Iteration limit hit: take whatever content we have.
			if resp.Content != "" {
				return resp.Content, nil
			}
			return "", fmt.Errorf("agent %s: tool iterations exhausted", role)
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			messages = append(messages, providers.Message{
				Role:       "tool",
				Content:    o.execTool(ctx, tools, tc),
				ToolCallID: tc.ID,
			})
		}
	}
}

func (o *Orchestrator) execTool(ctx context.Context, tools ToolSet, tc providers.ToolCall) string {
	tool, ok := tools[tc.Name]
	if !ok {
		return fmt.Sprintf("Herramienta desconocida: %s", tc.Name)
	}

	out, err := tool.Execute(ctx, tc.Arguments)
	if err != nil {
		args, _ := json.Marshal(tc.Arguments)
		slog.Warn("tool failed", "tool", tc.Name, "args", string(args), "error", err)
		return fmt.Sprintf("La herramienta %s falló: %v", tc.Name, err)
	}
	return out
}
