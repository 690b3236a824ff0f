package embedding

import "context"

// Embedding 定义了所有 embedding 模型提供商需要实现的接口。
// 批处理、并发与限流由上层的 BatchEmbedder 负责，这里只负责单条调用。
type Embedding interface {
	// Embed 为单个文本生成嵌入向量。
	//
	// 参数:
	//   ctx: 上下文，用于控制操作的生命周期和超时。
	//   text: 要生成嵌入向量的文本。
	//
	// 返回值:
	//   []float32: 生成的嵌入向量。
	//   error: 如果生成嵌入向量失败，则返回错误。
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close 释放底层客户端持有的资源。
	Close() error
}

// ModelType 是一个枚举类型，用于表示不同的模型厂商。
type ModelType string

const (
	Google ModelType = "gemini" // Google Gemini 模型类型。
	OpenAI ModelType = "openai" // OpenAI 模型类型。
	Ollama ModelType = "ollama" // Ollama 模型类型。
)
