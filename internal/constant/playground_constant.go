package constant

type PlaygroundModel struct {
	Id      string `json:"id"`
	Name    string `json:"name"`
	Context int    `json:"context"`
}

type PlaygroundProviderModels struct {
	Provider string            `json:"provider"`
	Models   []PlaygroundModel `json:"models"`
}

type PlaygroundPreset struct {
	Id           string  `json:"id"`
	Name         string  `json:"name"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

var PlaygroundModels = []PlaygroundProviderModels{
	{
		Provider: "gemini",
		Models: []PlaygroundModel{
			{Id: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Context: 1000000},
			{Id: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Context: 2000000},
			{Id: "gemini-pro", Name: "Gemini Pro", Context: 32000},
		},
	},
	{
		Provider: "openai",
		Models: []PlaygroundModel{
			{Id: "gpt-4-turbo", Name: "GPT-4 Turbo", Context: 128000},
			{Id: "gpt-4", Name: "GPT-4", Context: 8192},
			{Id: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Context: 16385},
		},
	},
	{
		Provider: "anthropic",
		Models: []PlaygroundModel{
			{Id: "claude-3-opus-20240229", Name: "Claude 3 Opus", Context: 200000},
			{Id: "claude-3-sonnet-20240229", Name: "Claude 3 Sonnet", Context: 200000},
			{Id: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", Context: 200000},
		},
	},
}

var PlaygroundPresets = []PlaygroundPreset{
	{
		Id:           "general",
		Name:         "General Assistant",
		SystemPrompt: "You are a helpful AI assistant. Provide clear, accurate, and concise responses.",
		Temperature:  0.7,
		MaxTokens:    2048,
	},
	{
		Id:           "code",
		Name:         "Code Assistant",
		SystemPrompt: "You are an expert programmer. Write clean, efficient, and well-documented code. Explain your reasoning.",
		Temperature:  0.3,
		MaxTokens:    4096,
	},
	{
		Id:           "creative",
		Name:         "Creative Writer",
		SystemPrompt: "You are a creative writer. Use vivid language, metaphors, and engaging storytelling.",
		Temperature:  1.2,
		MaxTokens:    3000,
	},
	{
		Id:           "data_analyst",
		Name:         "Data Analyst",
		SystemPrompt: "You are a data analyst. Provide insights based on data, use statistical reasoning, and explain trends clearly.",
		Temperature:  0.5,
		MaxTokens:    2048,
	},
	{
		Id:           "teacher",
		Name:         "Patient Teacher",
		SystemPrompt: "You are a patient teacher. Explain concepts clearly, use examples, and break down complex topics into simple parts.",
		Temperature:  0.6,
		MaxTokens:    2048,
	},
}
