package llm

import (
	"context"
	"errors"
	"fmt"

	"Aethena/backend/go/internal/config"
)

// ErrEmptyResponse 表示模型返回了空的候选结果。
var ErrEmptyResponse = errors.New("llm returned an empty response")

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 每次调用都是无状态的单轮生成: 一条系统指令加一条用户消息。
type LLM interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// NewClient 是一个工厂函数，根据配置中选中的提供商创建 LLM 客户端。
func NewClient(cfg config.LLMConfig) (LLM, error) {
	p := cfg.Active()
	switch cfg.Provider {
	case "gemini":
		return NewGemini(context.Background(), p.Model, p.APIKey, cfg.Temp())
	case "openai":
		return NewOpenAI(p.Model, p.APIKey, p.BaseURL)
	case "ollama":
		return NewOllama(p.Model, p.BaseURL, cfg.Temp())
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
