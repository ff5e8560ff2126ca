package provider

// NewGroq builds a Client for Groq's OpenAI-compatible chat API.
func NewGroq(apiKey, baseURL string) Client {
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	return newOpenAICompatClient("groq", baseURL, apiKey, []string{
		"llama-3.1-8b-instant", "llama-3.1-70b-versatile",
	})
}
