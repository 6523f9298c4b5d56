package anf

import "fmt"

// WarningType is the closed set of non-fatal transform outcomes.
type WarningType string

const (
	WarningDroppedComponent WarningType = "dropped_component"
	WarningUnsupportedEmbed WarningType = "unsupported_embed"
	WarningHTMLSanitized    WarningType = "html_sanitized"
	WarningMissingField     WarningType = "missing_field"
)

// Warning reports content that was dropped, degraded or altered while
// transforming. Component names the intermediary component type involved.
type Warning struct {
	Type      WarningType `json:"type"`
	Message   string      `json:"message"`
	Component string      `json:"component,omitempty"`
}

func warn(t WarningType, component, format string, args ...any) Warning {
	return Warning{Type: t, Message: fmt.Sprintf(format, args...), Component: component}
}

// CountWarnings returns how many warnings have the given type.
func CountWarnings(warnings []Warning, t WarningType) int {
	n := 0
	for _, w := range warnings {
		if w.Type == t {
			n++
		}
	}
	return n
}
