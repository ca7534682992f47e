package models

const (
	// DefaultChunkSize and DefaultChunkOverlap are in bytes.
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100

	// DefaultTopK is how many nearest chunks a query retrieves.
	DefaultTopK = 3

	// DefaultVectorSize matches nomic-embed-text output.
	DefaultVectorSize = 768

	// PlaceholderContext is handed to the model when retrieval returns
	// nothing; the answer flow continues instead of failing.
	PlaceholderContext = "No relevant context found in documents."

	// InternalErrorAnswer is the generic degraded answer returned when the
	// query path fails before generation.
	InternalErrorAnswer = "Internal error while processing the query."
)

var (
	// SystemPromptTemplate frames the generation request: context-only
	// answers, explicit refusal when the context is insufficient, one
	// sentence. These are request constraints, not post-processing.
	SystemPromptTemplate = `You are a precise and concise assistant. Only answer questions using the provided context.
If the answer is not clearly available in the context, respond with: 'I don't know based on the given information.'
Always return the answer in exactly one clear and informative sentence.`

	// UserPromptTemplate carries the grounding context and the question.
	UserPromptTemplate = `Context:
%s

Question:
%s

Answer:`
)
