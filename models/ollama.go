package models

// OllamaEmbedRequest is the request body for Ollama's /api/embeddings.
type OllamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// OllamaEmbedResponse carries the embedding vector back from Ollama.
type OllamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}
