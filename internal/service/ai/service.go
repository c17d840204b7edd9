package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ngocnhiem/online-ide/internal/config"
	"github.com/ngocnhiem/online-ide/internal/worker"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

// Tier selects which configured model serves a request.
type Tier int

const (
	// TierCode serves code generation, output, refactor and suggestion prompts.
	TierCode Tier = iota
	// TierWeb serves the html/css/js routes.
	TierWeb
)

func (t Tier) String() string {
	switch t {
	case TierCode:
		return "code"
	case TierWeb:
		return "web"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

var (
	// ErrUpstream wraps every failure reported by the generation backend.
	ErrUpstream = errors.New("generation service failed")
	// ErrNoModel is returned when a tier has no model behind it.
	ErrNoModel = errors.New("no model configured")
)

// Service relays rendered prompts to the configured chat models.
type Service struct {
	models  map[Tier]model.BaseChatModel
	timeout time.Duration
	limiter *worker.Limiter
}

// NewService builds one chat model per tier for provider. A zero timeout
// leaves generations unbounded; a nil limiter admits every call.
func NewService(ctx context.Context, provider string, cfg config.ProviderConfig, timeout time.Duration, limiter *worker.Limiter) (*Service, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("provider %s: model not configured", provider)
	}
	codeModel, err := newChatModel(ctx, provider, cfg, cfg.Model)
	if err != nil {
		return nil, err
	}
	webModel := codeModel
	if cfg.WebModel != "" && cfg.WebModel != cfg.Model {
		webModel, err = newChatModel(ctx, provider, cfg, cfg.WebModel)
		if err != nil {
			return nil, err
		}
	}
	return NewWithModels(map[Tier]model.BaseChatModel{
		TierCode: codeModel,
		TierWeb:  webModel,
	}, timeout, limiter), nil
}

// NewWithModels wires already constructed models, mainly for tests.
func NewWithModels(models map[Tier]model.BaseChatModel, timeout time.Duration, limiter *worker.Limiter) *Service {
	return &Service{models: models, timeout: timeout, limiter: limiter}
}

func newChatModel(ctx context.Context, provider string, cfg config.ProviderConfig, modelName string) (model.BaseChatModel, error) {
	switch provider {
	case "openai":
		m, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   modelName,
			APIKey:  cfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai model %s: %w", modelName, err)
		}
		return m, nil
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		m, err := gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini model %s: %w", modelName, err)
		}
		return m, nil
	case "claude":
		var baseURLPtr *string
		if cfg.BaseURL != "" {
			baseURLPtr = &cfg.BaseURL
		}
		m, err := claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 8192,
		})
		if err != nil {
			return nil, fmt.Errorf("init claude model %s: %w", modelName, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

func (s *Service) model(tier Tier) (model.BaseChatModel, error) {
	m, ok := s.models[tier]
	if !ok || m == nil {
		return nil, fmt.Errorf("%w for %s tier", ErrNoModel, tier)
	}
	return m, nil
}

func (s *Service) begin(ctx context.Context) (context.Context, func(), error) {
	release, err := s.limiter.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	if s.timeout <= 0 {
		return ctx, release, nil
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	return callCtx, func() {
		cancel()
		release()
	}, nil
}

// Stream forwards non-empty fragments to fn in arrival order until the
// backend signals end of stream. An error from fn aborts the stream and is
// returned unchanged.
func (s *Service) Stream(ctx context.Context, tier Tier, msgs []*schema.Message, fn func(string) error) error {
	chatModel, err := s.model(tier)
	if err != nil {
		return err
	}
	callCtx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	reader, err := chatModel.Stream(callCtx, msgs)
	if err != nil {
		return fmt.Errorf("%w: open stream: %w", ErrUpstream, err)
	}
	defer reader.Close()

	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: receive: %w", ErrUpstream, err)
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if err := fn(chunk.Content); err != nil {
			return err
		}
	}
}

// Complete returns the whole completion for msgs.
func (s *Service) Complete(ctx context.Context, tier Tier, msgs []*schema.Message) (string, error) {
	chatModel, err := s.model(tier)
	if err != nil {
		return "", err
	}
	callCtx, done, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	out, err := chatModel.Generate(callCtx, msgs)
	if err != nil {
		return "", fmt.Errorf("%w: generate: %w", ErrUpstream, err)
	}
	if out == nil {
		return "", fmt.Errorf("%w: empty response", ErrUpstream)
	}
	return out.Content, nil
}
