package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/shinyyama/fragrance-assistant/internal/model"
)

// FetchCart returns the backend's authoritative cart for (userID, sessionID).
func (c *Client) FetchCart(ctx context.Context, userID, sessionID string) (*model.CartState, error) {
	var resp cartSnapshotWire
	if err := c.do(ctx, http.MethodGet, "/cart", identity(userID, sessionID), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	st := toCartState(resp)
	st.UserID = userID
	st.SessionID = sessionID
	return &st, nil
}

// PushCart replaces the backend cart with the given lines.
func (c *Client) PushCart(ctx context.Context, userID, sessionID string, lines []model.CartLine) error {
	req := cartSyncRequest{UserID: userID, SessionID: sessionID, Items: make([]cartItemWire, 0, len(lines))}
	for _, l := range lines {
		req.Items = append(req.Items, cartItemWire{
			ProductID:     flexID(l.ID),
			Name:          l.Name,
			Brand:         l.Brand,
			Price:         decimal.NewFromInt(l.Price),
			Quantity:      l.Quantity,
			ImageURL:      l.Image,
			Concentration: l.Category,
		})
	}
	if err := c.do(ctx, http.MethodPost, "/cart/sync", nil, req, nil); err != nil {
		return fmt.Errorf("push cart: %w", err)
	}
	return nil
}
