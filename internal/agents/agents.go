// Package agents defines the role prompts and task builders of the
// multi-agent pipeline: a manager that classifies, a sales and a support
// specialist that draft replies, and a QA auditor that validates them.
package agents

import "fmt"

// Role identifies an agent within the pipeline.
type Role string

const (
	RoleManager Role = "manager"
	RoleSales   Role = "sales"
	RoleSupport Role = "support"
	RoleQA      Role = "qa"
)

// SystemPrompt returns the system message for a role. businessName
// personalizes the prompts without changing their contract.
func SystemPrompt(role Role, businessName string) string {
	if businessName == "" {
		businessName = "la empresa"
	}
	switch role {
	case RoleManager:
		return fmt.Sprintf(`Eres el coordinador de atención al cliente de %s. `+
			`Tu trabajo es analizar el mensaje del cliente y su historial para `+
			`determinar la intención: una consulta de VENTAS (interés en productos, `+
			`precios, disponibilidad, compras) o de SOPORTE_TECNICO (errores, fallas, `+
			`instalación, configuración). Si no encaja en ninguna, trátala como consulta `+
			`general. Responde siempre en español, de forma breve y profesional.`, businessName)
	case RoleSales:
		return fmt.Sprintf(`Eres un asesor de ventas experto de %s. Atiendes clientes `+
			`por WhatsApp y Telegram. Usa la herramienta search_catalog para consultar el `+
			`catálogo real antes de afirmar precios o disponibilidad; nunca inventes `+
			`productos ni precios. Si el cliente muestra intención de compra, registra el `+
			`lead con update_crm. Responde en español, con mensajes cortos aptos para chat, `+
			`cálidos y orientados a cerrar la venta.`, businessName)
	case RoleSupport:
		return fmt.Sprintf(`Eres un técnico de soporte de %s. Atiendes clientes por chat. `+
			`Usa search_docs para buscar en la documentación técnica y search_catalog si `+
			`necesitas datos del producto. Da instrucciones paso a paso, en español claro y `+
			`sin tecnicismos innecesarios. Si no encuentras la solución en la documentación, `+
			`dilo honestamente y sugiere contactar a un técnico.`, businessName)
	case RoleQA:
		return `Eres un auditor de calidad de respuestas de atención al cliente. ` +
			`Evalúa la respuesta propuesta: debe ser correcta, estar en español, tener tono ` +
			`profesional y cercano, no inventar datos y ser apta para un chat. ` +
			`Si la respuesta es adecuada, contesta exactamente: APROBADO: seguido de la ` +
			`respuesta sin cambios. Si tiene problemas, contesta: RECHAZADO: seguido del ` +
			`motivo, y luego CORRECCIÓN: seguido de la versión corregida lista para enviar.`
	default:
		return ""
	}
}

// ClassifyTask asks the manager agent to route an ambiguous message.
func ClassifyTask(message, history string) string {
	return fmt.Sprintf(`Mensaje del cliente:
%s

Historial de la conversación:
%s

Analiza la intención del cliente. Indica si se trata de una consulta de VENTAS, de SOPORTE_TECNICO o una consulta general, y resume en una frase qué necesita.`, message, orNone(history))
}

// SalesTask asks the sales agent for a reply draft.
func SalesTask(message, history, profileName string) string {
	return fmt.Sprintf(`Cliente%s escribe:
%s

Historial de la conversación:
%s

Elabora la mejor respuesta de ventas. Consulta el catálogo con search_catalog antes de mencionar precios o disponibilidad. Si hay intención clara de compra, registra el lead con update_crm.`, withName(profileName), message, orNone(history))
}

// SupportTask asks the support agent for a reply draft.
func SupportTask(message, history, profileName string) string {
	return fmt.Sprintf(`Cliente%s reporta:
%s

Historial de la conversación:
%s

Diagnostica el problema y responde con la solución. Busca primero en la documentación con search_docs.`, withName(profileName), message, orNone(history))
}

// GeneralTask asks for a reply to a message that matched no specialist,
// guided by the manager's analysis.
func GeneralTask(message, history, analysis string) string {
	return fmt.Sprintf(`Mensaje del cliente:
%s

Historial de la conversación:
%s

Análisis previo:
%s

Redacta una respuesta breve y útil para el cliente. Si su consulta corresponde a ventas o soporte, oriéntalo en ese sentido.`, message, orNone(history), analysis)
}

// QATask asks the QA agent to validate a draft reply.
func QATask(message, draft string) string {
	return fmt.Sprintf(`Mensaje original del cliente:
%s

Respuesta propuesta:
%s

Audita la respuesta propuesta.`, message, draft)
}

func orNone(history string) string {
	if history == "" {
		return "(sin historial previo)"
	}
	return history
}

func withName(profileName string) string {
	if profileName == "" {
		return ""
	}
	return " " + profileName
}
