package router

import "testing"

func TestQuickRoute(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Intent
	}{
		{
			name:    "sales keywords dominate",
			message: "¿Cuál es el precio? Quiero comprar si hay stock",
			want:    IntentSales,
		},
		{
			name:    "support keywords dominate",
			message: "Tengo un error al instalar, no funciona nada",
			want:    IntentSupport,
		},
		{
			name:    "single sales keyword",
			message: "hay descuento?",
			want:    IntentSales,
		},
		{
			name:    "single support keyword",
			message: "cómo lo configuro",
			want:    IntentSupport,
		},
		{
			name:    "no keywords",
			message: "Hola, buenos días",
			want:    IntentUnknown,
		},
		{
			name:    "tie goes to unknown",
			message: "precio y error",
			want:    IntentUnknown,
		},
		{
			name:    "case insensitive",
			message: "PRECIO Y STOCK POR FAVOR",
			want:    IntentSales,
		},
		{
			name:    "empty message",
			message: "",
			want:    IntentUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuickRoute(tt.message); got != tt.want {
				t.Errorf("QuickRoute(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}
