package rag

import (
	"strings"
	"testing"
)

func TestSplitter(t *testing.T) {
	t.Run("short text stays whole", func(t *testing.T) {
		s := NewSplitter(512, 64)
		chunks := s.Split("un texto corto")
		if len(chunks) != 1 || chunks[0] != "un texto corto" {
			t.Errorf("chunks = %v", chunks)
		}
	})

	t.Run("chunks respect size limit", func(t *testing.T) {
		s := NewSplitter(100, 20)
		text := strings.Repeat("palabra palabra palabra. ", 40)
		for i, c := range s.Split(text) {
			if n := len([]rune(c)); n > 100+20 {
				t.Errorf("chunk %d has %d runes", i, n)
			}
		}
	})

	t.Run("long unbroken text is hard split", func(t *testing.T) {
		s := NewSplitter(50, 10)
		text := strings.Repeat("x", 200)
		chunks := s.Split(text)
		if len(chunks) < 4 {
			t.Fatalf("got %d chunks", len(chunks))
		}
		for i, c := range chunks {
			if len(c) > 50+10 {
				t.Errorf("chunk %d has %d runes", i, len(c))
			}
		}
	})

	t.Run("whitespace chunks dropped", func(t *testing.T) {
		s := NewSplitter(10, 0)
		for _, c := range s.Split("hola\n\n\n\n   \n\nadios") {
			if strings.TrimSpace(c) == "" {
				t.Error("empty chunk survived")
			}
		}
	})
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"empty", nil, nil, 0},
		{"dimension mismatch", []float32{1, 2}, []float32{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3.14159, 0}
	got := decodeVector(encodeVector(v))
	if len(got) != len(v) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: %v != %v", i, got[i], v[i])
		}
	}
}

func TestProductText(t *testing.T) {
	t.Run("in stock", func(t *testing.T) {
		text := ProductText(Product{
			Name: "Router X1", Desc: "Router de alta velocidad",
			Price: 1299.99, Category: "redes",
			Features: []string{"WiFi 6", "4 puertos"},
			InStock:  true, Shipping: "24h",
		})
		for _, want := range []string{
			"Producto: Router X1",
			"Precio: $1299.99",
			"Características: WiFi 6, 4 puertos",
			"Disponibilidad: En stock",
			"Envío: 24h",
		} {
			if !strings.Contains(text, want) {
				t.Errorf("missing %q in:\n%s", want, text)
			}
		}
	})

	t.Run("out of stock", func(t *testing.T) {
		text := ProductText(Product{Name: "Router X1", InStock: false})
		if !strings.Contains(text, "Disponibilidad: Agotado") {
			t.Errorf("missing Agotado in:\n%s", text)
		}
	})
}

func TestFormatResults(t *testing.T) {
	t.Run("empty results", func(t *testing.T) {
		got := FormatResults(CollectionCatalog, nil)
		if got != "No se encontró información relevante." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("catalog header and relevance", func(t *testing.T) {
		got := FormatResults(CollectionCatalog, []SearchResult{
			{Chunk: Chunk{Content: "Producto: Router X1", Metadata: map[string]string{"source": "catalog"}}, Score: 0.87},
		})
		for _, want := range []string{
			"=== RESULTADOS DEL CATÁLOGO ===",
			"[Relevancia: 87%]",
			"Fuente: catalog",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("missing %q in:\n%s", want, got)
			}
		}
	})

	t.Run("docs header", func(t *testing.T) {
		got := FormatResults(CollectionDocs, []SearchResult{
			{Chunk: Chunk{Content: "Paso 1: reinicie el equipo"}, Score: 0.5},
		})
		if !strings.Contains(got, "=== DOCUMENTACIÓN TÉCNICA ===") {
			t.Errorf("missing docs header in:\n%s", got)
		}
	})
}
