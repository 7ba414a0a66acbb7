package constant

const (
	MessageRoleUser  = "user"
	MessageRoleModel = "model"

	// Ollama Configuration
	OllamaDefaultBaseURL = "http://localhost:11434"
	OllamaDefaultModel   = "qwen2.5:7b"

	EmbeddingDefaultModel = "nomic-embed-text"

	// Watermill topic for async topic-embedding jobs.
	EmbedDocumentTopic = "document.embed"

	// How many documents of session context travel into a turn. Recent docs
	// feed prompts verbatim, so the window stays small; available docs are
	// title-only and can be wider.
	RecentDocsWindow    = 5
	AvailableDocsWindow = 50

	// Learned topics are the titles of entities the user already clicked
	// through, used to bias explanations away from re-introducing basics.
	LearnedTopicsWindow = 30
)
