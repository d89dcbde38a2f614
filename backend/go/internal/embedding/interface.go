package embedding

import "context"

// Embedding 定义了所有 embedding 提供商需要实现的接口。
// EmbedBatch 返回的向量顺序必须与输入文本一一对应。
type Embedding interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelType 表示不同的模型厂商。
type ModelType string

const (
	OpenAI ModelType = "openai" // OpenAI 或兼容 OpenAI 协议的网关
	Gemini ModelType = "gemini" // Google Gemini
	Ollama ModelType = "ollama" // 本地 Ollama
)
