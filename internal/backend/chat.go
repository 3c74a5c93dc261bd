package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shinyyama/fragrance-assistant/internal/model"
)

func (c *Client) SendChat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	var resp chatResponse
	body := chatRequest{UserID: req.UserID, SessionID: req.SessionID, Message: req.Message}
	if err := c.do(ctx, http.MethodPost, "/chat/message", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("send chat: %w", err)
	}
	return toChatReply(resp), nil
}
