package agents

import (
	"strings"
	"testing"
)

func TestExtractValidated(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "approved returns the draft",
			output: "APROBADO: Hola, el Router X1 cuesta $1299.99 y hay stock.",
			want:   "Hola, el Router X1 cuesta $1299.99 y hay stock.",
		},
		{
			name:   "rejected returns the correction",
			output: "RECHAZADO: tono demasiado frío. CORRECCIÓN: ¡Hola! Con gusto te cuento: el Router X1 cuesta $1299.99.",
			want:   "¡Hola! Con gusto te cuento: el Router X1 cuesta $1299.99.",
		},
		{
			name:   "no markers falls back to trimmed text",
			output: "  La respuesta parece adecuada.  ",
			want:   "La respuesta parece adecuada.",
		},
		{
			name:   "approved marker mid-text",
			output: "Veredicto del auditor — APROBADO: Todo en orden, gracias por tu compra.",
			want:   "Todo en orden, gracias por tu compra.",
		},
		{
			name:   "approved wins over correction",
			output: "APROBADO: respuesta final CORRECCIÓN: no aplica",
			want:   "respuesta final CORRECCIÓN: no aplica",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractValidated(tt.output); got != tt.want {
				t.Errorf("ExtractValidated(%q) = %q, want %q", tt.output, got, tt.want)
			}
		})
	}
}

func TestSystemPrompts(t *testing.T) {
	for _, role := range []Role{RoleManager, RoleSales, RoleSupport, RoleQA} {
		if SystemPrompt(role, "TechVentas") == "" {
			t.Errorf("empty prompt for role %s", role)
		}
	}
	if !strings.Contains(SystemPrompt(RoleSales, "TechVentas"), "TechVentas") {
		t.Error("sales prompt missing business name")
	}
	if !strings.Contains(SystemPrompt(RoleQA, ""), MarkerApproved) {
		t.Error("qa prompt missing approval marker")
	}
}
