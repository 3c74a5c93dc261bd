package model

type ActionType string

const (
	ActionAddToCart  ActionType = "add_to_cart"
	ActionBuyNow     ActionType = "buy_now"
	ActionViewCart   ActionType = "view_cart"
	ActionCheckout   ActionType = "checkout"
	ActionShowDetail ActionType = "show_detail"
	ActionNextPage   ActionType = "next_page"
	ActionPrevPage   ActionType = "prev_page"
	ActionCustom     ActionType = "custom"
)

// QuickAction is a single-click command attached to a message.
type QuickAction struct {
	ID         string         `json:"id,omitempty"`
	Label      string         `json:"label"`
	ActionType ActionType     `json:"actionType"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func CustomAction(label, action string) QuickAction {
	return QuickAction{Label: label, ActionType: ActionCustom, Payload: map[string]any{"action": action}}
}
