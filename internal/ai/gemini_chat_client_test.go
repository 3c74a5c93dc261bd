package ai

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/shinyyama/fragrance-assistant/internal/failure"
	"github.com/shinyyama/fragrance-assistant/internal/model"
)

func TestHistoryContents(t *testing.T) {
	history := []model.Message{
		{Sender: model.SenderBot, Type: model.MessageTypeText, Text: "어서오세요"},
		{Sender: model.SenderUser, Type: model.MessageTypeText, Text: "시트러스 향 추천해줘"},
		{Sender: model.SenderBot, Type: model.MessageTypeError, Text: "연결 오류"},
		{Sender: model.SenderBot, Type: model.MessageTypeText, Text: "  "},
	}
	got := historyContents(history)
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Role != string(genai.RoleModel) || got[1].Role != string(genai.RoleUser) {
		t.Fatalf("roles=%q,%q", got[0].Role, got[1].Role)
	}

	long := make([]model.Message, 25)
	for i := range long {
		long[i] = model.Message{Sender: model.SenderUser, Type: model.MessageTypeText, Text: "hi"}
	}
	if got := historyContents(long); len(got) != historyWindow {
		t.Fatalf("window=%d", len(got))
	}
}

func TestClassify(t *testing.T) {
	err := classify(genai.APIError{Code: 429, Message: "quota"})
	if !failure.IsKind(err, failure.KindNetwork) {
		t.Fatalf("429 should be retryable network, got %v", err)
	}
	err = classify(genai.APIError{Code: 400, Message: "bad"})
	if !failure.IsKind(err, failure.KindValidation) {
		t.Fatalf("400 should be validation, got %v", err)
	}
	if !failure.IsKind(classify(errors.New("dial")), failure.KindNetwork) {
		t.Fatalf("transport error should be network")
	}
}

func TestNewGeminiChatClientRequiresKey(t *testing.T) {
	if _, err := NewGeminiChatClient(context.Background(), "", "", nil); err == nil {
		t.Fatalf("expected error without api key")
	}
}
