package rag

import (
	"fmt"
	"strings"
)

// Product is one catalog entry as ingested from JSON.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"nombre"`
	Desc     string   `json:"descripcion"`
	Price    float64  `json:"precio"`
	Category string   `json:"categoria"`
	Features []string `json:"caracteristicas,omitempty"`
	InStock  bool     `json:"disponible"`
	Shipping string   `json:"envio,omitempty"`
}

// ProductText renders a product into the indexed document form shown to
// the sales agent.
func ProductText(p Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Producto: %s\n", p.Name)
	fmt.Fprintf(&b, "Descripción: %s\n", p.Desc)
	fmt.Fprintf(&b, "Precio: $%.2f\n", p.Price)
	fmt.Fprintf(&b, "Categoría: %s\n", p.Category)
	if len(p.Features) > 0 {
		fmt.Fprintf(&b, "Características: %s\n", strings.Join(p.Features, ", "))
	}
	availability := "Agotado"
	if p.InStock {
		availability = "En stock"
	}
	fmt.Fprintf(&b, "Disponibilidad: %s\n", availability)
	if p.Shipping != "" {
		fmt.Fprintf(&b, "Envío: %s\n", p.Shipping)
	}
	return b.String()
}

// Result formatting headers per collection.
const (
	catalogHeader = "=== RESULTADOS DEL CATÁLOGO ==="
	docsHeader    = "=== DOCUMENTACIÓN TÉCNICA ==="
)

// FormatResults renders search results for the agent prompt: a header,
// then each chunk with its relevance percentage and source.
func FormatResults(collection string, results []SearchResult) string {
	if len(results) == 0 {
		return "No se encontró información relevante."
	}

	header := catalogHeader
	if collection == CollectionDocs {
		header = docsHeader
	}

	var b strings.Builder
	b.WriteString(header)
	for _, r := range results {
		fmt.Fprintf(&b, "\n\n[Relevancia: %.0f%%]\n%s", r.Score*100, strings.TrimSpace(r.Content))
		if src := r.Metadata["source"]; src != "" {
			fmt.Fprintf(&b, "\nFuente: %s", src)
		}
	}
	return b.String()
}
