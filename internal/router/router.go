// Package router provides the keyword-based quick classifier that runs
// before any LLM call. A clear keyword signal routes the message directly
// to the sales or support chain; everything else falls through to the
// manager agent for LLM classification.
package router

import "strings"

// Intent is the outcome of quick routing.
type Intent string

const (
	IntentSales   Intent = "VENTAS"
	IntentSupport Intent = "SOPORTE_TECNICO"
	IntentUnknown Intent = "UNKNOWN"

	// IntentLLM labels results classified by the manager agent
	// rather than by keywords.
	IntentLLM Intent = "CLASIFICACION_LLM"
)

var salesKeywords = []string{
	"precio", "comprar", "costo", "cuánto", "disponible",
	"stock", "envío", "oferta", "descuento",
}

var supportKeywords = []string{
	"error", "problema", "falla", "cómo", "configurar",
	"instalar", "no funciona", "ayuda técnica",
}

// QuickRoute scores a message against the sales and support keyword sets.
// The higher non-zero score wins; a tie or no hits returns IntentUnknown.
func QuickRoute(message string) Intent {
	lower := strings.ToLower(message)

	sales := score(lower, salesKeywords)
	support := score(lower, supportKeywords)

	switch {
	case sales > support:
		return IntentSales
	case support > sales:
		return IntentSupport
	default:
		return IntentUnknown
	}
}

func score(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}
