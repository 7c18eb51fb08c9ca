package platform

import (
	"log/slog"
	"regexp"
	"strings"
)

// platformTools are tools registered outside the toolkit registry.
var platformTools = []string{"list_connections", "platform_info"}

// toolTokenPattern matches snake_case tokens that look like tool names.
var toolTokenPattern = regexp.MustCompile(`\b([a-z][a-z0-9]*(?:_[a-z0-9]+)+)\b`)

// validateInstructions scans the operator instructions for tokens that look
// like tool names and warns about any that no tool answers to. A token only
// counts when its first word is also the first word of a registered tool,
// e.g. "execute_actions" next to "execute_action".
func (p *Platform) validateInstructions() {
	instructions := p.config.Server.Instructions
	if instructions == "" {
		return
	}

	registered := append(p.toolkitRegistry.AllTools(), platformTools...)
	toolSet := make(map[string]struct{}, len(registered))
	prefixes := make(map[string]struct{})
	for _, t := range registered {
		toolSet[t] = struct{}{}
		prefixes[firstWord(t)] = struct{}{}
	}

	for _, token := range toolTokenPattern.FindAllString(instructions, -1) {
		if _, ok := prefixes[firstWord(token)]; !ok {
			continue
		}
		if _, ok := toolSet[token]; !ok {
			slog.Warn("platform: instructions reference unrecognized tool",
				"token", token,
				"hint", "verify the tool name exists or remove the stale reference",
			)
		}
	}
}

// firstWord returns the text before the first underscore.
func firstWord(name string) string {
	word, _, _ := strings.Cut(name, "_")
	return word
}
