package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/casegen/internal/casegen/metrics"
	"github.com/kart-io/casegen/internal/casegen/model"
	"github.com/kart-io/casegen/internal/pkg/rag/textutil"
	"github.com/kart-io/casegen/pkg/llm"
	"github.com/kart-io/casegen/pkg/llm/resilience"
	"github.com/kart-io/casegen/pkg/utils/errors"
	"github.com/kart-io/casegen/pkg/utils/json"
)

// GeneratorConfig 生成器配置。
type GeneratorConfig struct {
	// MaxContextRunes 上下文最大字符数，0 表示不截断。
	MaxContextRunes int
	// Timeout 单次生成（含重试）的超时时间，0 表示仅依赖调用方上下文。
	Timeout time.Duration
	// Retry 瞬时传输错误的重试策略。
	Retry *resilience.RetryConfig
}

// Generator 负责调用模型生成用例并执行输出校验。
type Generator struct {
	chatProvider llm.ChatProvider
	config       *GeneratorConfig
	metrics      *metrics.Collector
}

// NewGenerator 创建生成器实例。
func NewGenerator(chatProvider llm.ChatProvider, config *GeneratorConfig, m *metrics.Collector) *Generator {
	if config == nil {
		config = &GeneratorConfig{}
	}
	if config.Retry == nil {
		config.Retry = resilience.DefaultRetryConfig()
	}
	return &Generator{
		chatProvider: chatProvider,
		config:       config,
		metrics:      m,
	}
}

// Generate 基于上下文生成测试用例。
//
// 模型输出无法解析或未给出有依据的用例时返回 insufficient_info 结果，error 为 nil；
// 仅当模型调用失败时返回 ErrTransport。
func (g *Generator) Generate(ctx context.Context, contextText, query string) (*model.GenerationResult, error) {
	if g.config.MaxContextRunes > 0 {
		contextText = textutil.TruncateString(contextText, g.config.MaxContextRunes)
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: BuildUserPrompt(contextText, query)},
	}

	raw, err := g.chat(ctx, messages)
	if err != nil {
		logger.Errorw("model invocation failed", "provider", g.chatProvider.Name(), "error", err.Error())
		return nil, errors.ErrTransport.WithCause(err)
	}

	parsed, err := ParseResult(raw)
	if err != nil {
		logger.Warnw("failed to parse model output", "error", err.Error(), "output_length", len(raw))
		g.metrics.RecordFallback(metrics.FallbackParse)
		return model.NewInsufficientResult(nil), nil
	}

	result, err := Ground(parsed)
	if err != nil {
		if parsed.Status != model.StatusInsufficientInfo {
			logger.Warnw("model output rejected by grounding check", "status", parsed.Status, "use_cases", len(parsed.UseCases))
			g.metrics.RecordFallback(metrics.FallbackGrounding)
		}
		return result, nil
	}

	return result, nil
}

func (g *Generator) chat(ctx context.Context, messages []llm.Message) (string, error) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	retry := *g.config.Retry
	onRetry := retry.OnRetry
	retry.OnRetry = func(attempt int, err error) {
		g.metrics.RecordLLMRetry()
		logger.Warnw("retrying model invocation", "attempt", attempt, "error", err.Error())
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}

	var out string
	start := time.Now()
	err := resilience.RetryWithBackoff(ctx, &retry, func() error {
		resp, err := g.chatProvider.Chat(ctx, messages)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	g.metrics.RecordLLMCall(time.Since(start), err)

	return out, err
}

// ParseResult 去除 Markdown 代码围栏后解析模型输出。
func ParseResult(raw string) (*model.GenerationResult, error) {
	cleaned := stripCodeFences(raw)

	var result model.GenerationResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, errors.ErrGenerationParse.WithCause(err)
	}
	return &result, nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Ground 仅当 status 为 success 且 use_cases 非空时保留模型结果，
// 否则返回 insufficient_info 结果以及 ErrGroundingRejection。
func Ground(parsed *model.GenerationResult) (*model.GenerationResult, error) {
	if parsed.IsSuccess() {
		if parsed.Assumptions == nil {
			parsed.Assumptions = []string{}
		}
		if parsed.MissingInformation == nil {
			parsed.MissingInformation = []string{}
		}
		return parsed, nil
	}

	return model.NewInsufficientResult(parsed.MissingInformation),
		errors.ErrGroundingRejection.WithMessagef("status %q with %d use cases", parsed.Status, len(parsed.UseCases))
}
