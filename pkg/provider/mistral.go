package provider

// NewMistral builds a Client for Mistral's OpenAI-compatible chat API.
func NewMistral(apiKey, baseURL string) Client {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	return newOpenAICompatClient("mistral", baseURL, apiKey, []string{
		"mistral-small", "mistral-large",
	})
}
