package embedding

import (
	"fmt"

	"Aethena/backend/go/internal/config"
)

// NewEmdModel 根据配置中选中的提供商创建 Embedding 模型实例。
func NewEmdModel(cfg config.EmbeddingConfig) (Embedding, error) {
	p := cfg.Active()
	switch ModelType(cfg.Provider) {
	case Gemini:
		return NewGoogleModel(p.APIKey, p.Model)
	case OpenAI:
		return NewOpenAIModel(p.APIKey, p.Model, p.BaseURL)
	case Ollama:
		return NewOllamaModel(p.Model, p.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
