// Package prompts holds the fixed instruction and response-format text sent
// to the model-backed pipeline collaborators.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Compose builds the system prompt for a stage from its instructions and
// response specification. When data is non-nil it is appended as indented
// JSON under a context heading.
func Compose(stage Stage, data any) (string, error) {
	instructions, err := Instructions(stage)
	if err != nil {
		return "", err
	}

	spec, err := Spec(stage)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(spec)

	if data != nil {
		ctxJSON, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", fmt.Errorf("serialize %s context: %w", stage, err)
		}

		sb.WriteString("\n\nContext:\n\n")
		sb.Write(ctxJSON)
	}

	return sb.String(), nil
}
