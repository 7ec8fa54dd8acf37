package loader

// DocumentMetadata is the raw shape of a definition file.
// It uses "mapstructure" tags so that unknown keys can be reported by name.
type DocumentMetadata struct {
	Initial string `json:"initial" mapstructure:"initial"`

	// Context declares the optional context schema as field -> type string.
	Context map[string]string `json:"context" mapstructure:"context"`

	States map[string]StateMetadata `json:"states" mapstructure:"states"`
}

// StateMetadata is the raw shape of one state.
type StateMetadata struct {
	// On maps event names to target states.
	On map[string]string `json:"on" mapstructure:"on"`

	// Entry names an action registered in the registry.
	Entry     string `json:"entry" mapstructure:"entry"`
	OnSuccess string `json:"on_success" mapstructure:"on_success"`
	OnError   string `json:"on_error" mapstructure:"on_error"`
}
