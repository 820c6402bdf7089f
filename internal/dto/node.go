package dto

// NodeDocument is the loose, kind-agnostic view of one node of an imported document.
// It uses "mapstructure" tags to match the keys written by the browser editor.
// Child options are walked separately and are not part of this struct.
type NodeDocument struct {
	ID           any    `mapstructure:"id"`
	Title        string `mapstructure:"title"`
	Image        string `mapstructure:"image"`
	Type         string `mapstructure:"type"`
	Question     string `mapstructure:"question_for_options"`
	Link         string `mapstructure:"link"`
	TargetNodeID any    `mapstructure:"target_node_id"`
}

// DecisionDocument is the exported shape of a decision node.
type DecisionDocument struct {
	ID       int    `json:"id,omitempty" yaml:"id,omitempty"`
	Title    string `json:"title" yaml:"title"`
	Image    string `json:"image" yaml:"image"`
	Question string `json:"question_for_options" yaml:"question_for_options"`
	Options  []any  `json:"options" yaml:"options"`
}

// TerminalDocument is the exported shape of a terminal node.
type TerminalDocument struct {
	ID    int    `json:"id,omitempty" yaml:"id,omitempty"`
	Title string `json:"title" yaml:"title"`
	Image string `json:"image" yaml:"image"`
	Link  string `json:"link" yaml:"link"`
}

// InternalLinkDocument is the exported shape of an internal link node.
type InternalLinkDocument struct {
	ID           int    `json:"id,omitempty" yaml:"id,omitempty"`
	Title        string `json:"title" yaml:"title"`
	Type         string `json:"type" yaml:"type"`
	TargetNodeID string `json:"target_node_id" yaml:"target_node_id"`
}
