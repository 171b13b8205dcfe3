package completions

// CompletionProvider defines the interface for completion data providers
type CompletionProvider interface {
	GetId() string
	GetName() string
	GetEmptyMessage() string
	GetCompletions(query string, selection Selection, force bool, limit int) []CompletionResult
}
