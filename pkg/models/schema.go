package models

// SchemaProvider defines an interface for components that can provide JSON Schema
type SchemaProvider interface {
	GetSchema() *JSONSchema
}

// JSONSchema represents a JSON Schema for agent configuration validation
type JSONSchema struct {
	Type        string               `json:"type"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property represents a JSON Schema property
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Format      string               `json:"format,omitempty"`
	MinLength   *int                 `json:"minLength,omitempty"`
	MaxLength   *int                 `json:"maxLength,omitempty"`
	Pattern     string               `json:"pattern,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// RegisteredAgent describes an agent capability registered in the system.
// RequiredTags are input-tag prerequisites: the agent is only triggered once
// every listed tag appears on some input. Agents with no RequiredTags are
// unconditional.
type RegisteredAgent struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Required     bool        `json:"required"`
	RequiredTags []string    `json:"required_tags,omitempty"`
	Schema       *JSONSchema `json:"schema,omitempty"`
}

// Matches reports whether the accumulated inputs satisfy the agent's
// prerequisites.
func (a *RegisteredAgent) Matches(inputs []Input) bool {
	if len(a.RequiredTags) == 0 {
		return true
	}

	seen := make(map[string]bool)

	for _, input := range inputs {
		for _, tag := range input.Tags {
			seen[tag] = true
		}
	}

	for _, tag := range a.RequiredTags {
		if !seen[tag] {
			return false
		}
	}

	return true
}
