package body

// CodeBlockState is the post-processing state of one fenced code block.
type CodeBlockState struct {
	Collapsed      bool   `json:"collapsed"`
	Collapsible    bool   `json:"collapsible"`
	Highlighted    bool   `json:"highlighted"`
	HasLineNumbers bool   `json:"hasLineNumbers"`
	Language       string `json:"language,omitempty"`

	Container NodeID `json:"container"`
	Code      NodeID `json:"code"`
	Toggle    NodeID `json:"toggle,omitempty"`
	Copy      NodeID `json:"copy"`
}
