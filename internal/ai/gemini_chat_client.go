package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/shinyyama/fragrance-assistant/internal/failure"
	"github.com/shinyyama/fragrance-assistant/internal/model"
	"github.com/shinyyama/fragrance-assistant/internal/reqctx"
)

const historyWindow = 10

// GeminiChatClient answers shopper messages with Gemini instead of the
// storefront chat endpoint.
type GeminiChatClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiChatClient(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*GeminiChatClient, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiChatClient{client: client, model: modelName, logger: logger}, nil
}

func (c *GeminiChatClient) SendChat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	log := c.logger.With(reqctx.Fields(ctx)...).With(zap.String("model", c.model))
	start := time.Now()

	contents := historyContents(req.History)
	contents = append(contents, genai.NewContentFromText(req.Message, genai.RoleUser))

	temp := float32(0.5)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(BuildAssistantPrompt(req.Preferences), genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   512,
	}

	log.Debug("gemini request", zap.String("stage", "gemini_start"), zap.Int("history", len(contents)-1))
	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Warn("gemini request failed", zap.String("stage", "gemini_fail"), zap.Error(err))
		return nil, fmt.Errorf("gemini generate: %w", classify(err))
	}
	raw := res.Text()
	parsed, err := ParseReply(raw)
	if err != nil {
		log.Warn("gemini reply unusable", zap.String("stage", "parse_fail"), zap.Int("len", len(raw)))
		return nil, fmt.Errorf("gemini reply: %w", failure.Rejected("응답을 생성하지 못했어요"))
	}
	log.Debug("gemini reply", zap.String("stage", "gemini_done"),
		zap.String("type", parsed.ResponseType), zap.Int64("ms", time.Since(start).Milliseconds()))

	reply := &model.ChatReply{Message: parsed.Body, ResponseType: parsed.ResponseType}
	for _, id := range parsed.ProductIDs {
		reply.QuickActions = append(reply.QuickActions, model.QuickAction{
			Label:      "상세 보기",
			ActionType: model.ActionShowDetail,
			Payload:    map[string]any{"product_id": id},
		})
	}
	return reply, nil
}

func historyContents(history []model.Message) []*genai.Content {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	out := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		text := strings.TrimSpace(m.Text)
		if text == "" || m.Type == model.MessageTypeError {
			continue
		}
		role := genai.Role(genai.RoleModel)
		if m.Sender == model.SenderUser {
			role = genai.RoleUser
		}
		out = append(out, genai.NewContentFromText(text, role))
	}
	return out
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return failure.FromStatus(apiErr.Code, apiErr.Message)
	}
	return failure.Network(err)
}
