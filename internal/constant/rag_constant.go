package constant

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"

	DistanceMetricCosine = "cosine"
)

const (
	RAGDefaultSystemPrompt = "You are a helpful AI assistant. Answer the user's question based on the provided context. If the context doesn't contain relevant information, say so. Always cite your sources when possible."

	RAGContextBlockTemplate = "Source: %s\n%s"
	RAGContextSeparator     = "\n\n---\n\n"
	RAGUserPromptTemplate   = "Context:\n%s\n\nQuestion: %s\n\nAnswer:"
)

// Streaming event types, in emission order.
const (
	StreamEventSources = "sources"
	StreamEventChunk   = "chunk"
	StreamEventDone    = "done"
	StreamEventError   = "error"
)

// Cache namespaces.
const (
	CacheNamespaceRAG       = "rag"
	CacheNamespaceLLM       = "llm"
	CacheNamespaceEmbedding = "emb"
	CacheNamespaceRateLimit = "ratelimit"

	// CollectionGenerationKey is bumped whenever a collection's content changes.
	CollectionGenerationKey = "gen:%s"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ModelPrice is USD per 1K tokens.
type ModelPrice struct {
	Prompt     float64
	Completion float64
}

var ModelPrices = map[string]ModelPrice{
	"gpt-4-turbo":              {Prompt: 0.01, Completion: 0.03},
	"gpt-4-turbo-preview":      {Prompt: 0.01, Completion: 0.03},
	"gpt-4":                    {Prompt: 0.03, Completion: 0.06},
	"gpt-3.5-turbo":            {Prompt: 0.0005, Completion: 0.0015},
	"claude-3-opus-20240229":   {Prompt: 0.015, Completion: 0.075},
	"claude-3-sonnet-20240229": {Prompt: 0.003, Completion: 0.015},
	"claude-3-haiku-20240307":  {Prompt: 0.00025, Completion: 0.00125},
	"gemini-1.5-flash":         {Prompt: 0.000075, Completion: 0.0003},
	"gemini-1.5-pro":           {Prompt: 0.00125, Completion: 0.005},
	"gemini-pro":               {Prompt: 0.0005, Completion: 0.0015},
}
