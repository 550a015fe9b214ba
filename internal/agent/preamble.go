package agent

import (
	"strings"

	"github.com/scoremilk/chat-gateway/internal/store"
)

// behavioralContract is appended to every agent preamble. It fixes the rules
// the transport relies on: [SYSTEM]: lines are operator instructions, and
// [NOREPLY] suppresses a visible reply.
const behavioralContract = `You may receive a message beginning with "[SYSTEM]:" at any time. This is a system message, treat it as such. It will provide context or command an action, behave accordingly.
If you should not or don't want to reply to a message, respond with "[NOREPLY]".`

// BuildPreamble assembles the system preamble for a new agent from the
// persona's template, the matched platform's context (if any), the fixed
// behavioral contract and optional caller-supplied extra context.
func BuildPreamble(persona store.Persona, platform *store.Platform, customContext string) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(persona.Template))

	if platform != nil {
		platformContext := strings.TrimSpace(platform.Template)
		if platformContext == "" {
			platformContext = strings.TrimSpace(platform.Description)
		}
		if platformContext != "" {
			b.WriteString("\n\n")
			b.WriteString(platformContext)
		}
	}

	b.WriteString("\n\nAlways respond in character, as ")
	b.WriteString(persona.Name)
	b.WriteString(".\n")
	b.WriteString(behavioralContract)

	if trimmed := strings.TrimSpace(customContext); trimmed != "" {
		b.WriteString("\n\n")
		b.WriteString(trimmed)
	}

	return b.String()
}
