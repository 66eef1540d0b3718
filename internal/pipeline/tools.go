package pipeline

import (
	"context"
	"fmt"

	"github.com/ventabot/ventabot/internal/providers"
	"github.com/ventabot/ventabot/internal/rag"
)

// Tool couples a function schema with its executor. Execution errors are
// returned to the model as tool output so the conversation can recover.
type Tool struct {
	Definition providers.ToolDefinition
	Execute    func(ctx context.Context, args map[string]interface{}) (string, error)
}

// ToolSet is the set of tools available to one agent, keyed by name.
type ToolSet map[string]Tool

// Definitions returns the schemas in a stable order for the API request.
func (ts ToolSet) Definitions() []providers.ToolDefinition {
	names := []string{"search_catalog", "search_docs", "update_crm"}
	var defs []providers.ToolDefinition
	for _, name := range names {
		if t, ok := ts[name]; ok {
			defs = append(defs, t.Definition)
		}
	}
	return defs
}

func catalogSearchTool(retriever *rag.Retriever) Tool {
	return Tool{
		Definition: providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        "search_catalog",
				Description: "Busca productos en el catálogo: precios, disponibilidad, características.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "Qué buscar en el catálogo",
						},
						"k": map[string]interface{}{
							"type":        "integer",
							"description": "Número de resultados (opcional)",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return retriever.SearchCatalog(ctx, argString(args, "query"), argInt(args, "k"))
		},
	}
}

func docsSearchTool(retriever *rag.Retriever) Tool {
	return Tool{
		Definition: providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        "search_docs",
				Description: "Busca en la documentación técnica: guías de instalación, configuración y solución de problemas.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "Qué buscar en la documentación",
						},
						"k": map[string]interface{}{
							"type":        "integer",
							"description": "Número de resultados (opcional)",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return retriever.SearchDocs(ctx, argString(args, "query"), argInt(args, "k"))
		},
	}
}

func crmTool(crm *CRMClient) Tool {
	return Tool{
		Definition: providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        "update_crm",
				Description: "Registra o actualiza un lead de ventas en el CRM.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"phone":        map[string]interface{}{"type": "string", "description": "Teléfono del cliente"},
						"name":         map[string]interface{}{"type": "string", "description": "Nombre del cliente"},
						"interest":     map[string]interface{}{"type": "string", "description": "Producto o categoría de interés"},
						"intent_level": map[string]interface{}{"type": "string", "description": "Nivel de intención: alto, medio o bajo"},
						"notes":        map[string]interface{}{"type": "string", "description": "Notas adicionales"},
					},
					"required": []string{"phone", "interest"},
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return crm.RegisterLead(ctx, Lead{
				Phone:       argString(args, "phone"),
				Name:        argString(args, "name"),
				Interest:    argString(args, "interest"),
				IntentLevel: argString(args, "intent_level"),
				Notes:       argString(args, "notes"),
			})
		},
	}
}

func argString(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	if v, ok := args[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func argInt(args map[string]interface{}, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
