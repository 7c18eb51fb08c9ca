// Package prompt renders the system prompt that tells an agent how to use the
// Pica tools.
package prompt

import (
	"fmt"
	"strings"

	"github.com/txn2/mcp-pica/pkg/catalog"
)

// Variant selects the prompt flavor.
type Variant string

// Prompt variants.
const (
	VariantDefault        Variant = "default"
	VariantAuthKit        Variant = "authkit"
	VariantKnowledgeAgent Variant = "knowledge_agent"
)

// VariantFor picks the variant for a toolkit configuration. Knowledge-agent
// mode takes precedence over AuthKit.
func VariantFor(authkit, knowledgeAgent bool) Variant {
	switch {
	case knowledgeAgent:
		return VariantKnowledgeAgent
	case authkit:
		return VariantAuthKit
	default:
		return VariantDefault
	}
}

const intro = `You have access to the Pica integration platform, which connects you to third-party services through a single API.`

const workflow = `Follow this workflow:
1. Call get_available_actions with a platform to discover its actions.
2. Call get_action_knowledge with the action id to read its documentation, parameters and path variables.
3. Call execute_action with the platform, the action {id, path}, the method and the connection key.

Rules:
- Always read an action's knowledge before executing it.
- Path placeholders such as {{id}} are filled from path_variables, or from matching top-level keys in data.
- Use is_form_data or is_form_url_encoded only when the action's documentation requires it.
- Set return_request_config_without_execution to true to preview a request without sending it.`

const authKitGuidance = `If the user asks for a platform that has no active connection, call prompt_to_connect_platform with the platform name so they can connect it. Do not execute actions against a platform until it is connected.`

const knowledgeAgentGuidance = `You are operating as a knowledge agent. execute_action never sends requests; it returns the fully built request configuration, with the secret replaced by a placeholder, so the user can run it themselves. Explain each request you build: its URL, method, headers, parameters and body.`

// Compose renders the prompt for variant from the catalog summary.
func Compose(variant Variant, s catalog.Summary) string {
	var b strings.Builder

	b.WriteString(intro)
	b.WriteString("\n\n")
	b.WriteString(workflow)
	b.WriteString("\n\n")

	switch variant {
	case VariantAuthKit:
		b.WriteString(authKitGuidance)
		b.WriteString("\n\n")
	case VariantKnowledgeAgent:
		b.WriteString(knowledgeAgentGuidance)
		b.WriteString("\n\n")
	}

	b.WriteString("Connected platforms:\n")
	if len(s.Connected) == 0 {
		b.WriteString("- none\n")
	}
	for _, c := range s.Connected {
		fmt.Fprintf(&b, "- %s - Key: %s\n", c.Platform, c.Key)
	}

	b.WriteString("\nAvailable platforms:\n")
	if len(s.Available) == 0 {
		b.WriteString("- none\n")
	}
	for _, p := range s.Available {
		name := p.Name
		if name == "" {
			name = p.Platform
		}
		if name == p.Platform {
			fmt.Fprintf(&b, "- %s\n", p.Platform)
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", name, p.Platform)
	}

	return strings.TrimRight(b.String(), "\n")
}
