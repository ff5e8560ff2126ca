package provider

// NewOpenAI builds a Client for OpenAI's chat-completions API.
func NewOpenAI(apiKey, baseURL string) Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return newOpenAICompatClient("openai", baseURL, apiKey, []string{
		"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo",
	})
}
