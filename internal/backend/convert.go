package backend

import (
	"encoding/json"

	"github.com/shinyyama/fragrance-assistant/internal/model"
)

// MarshalJSON keeps outgoing prices as plain JSON numbers; decimal would quote them.
func (w cartItemWire) MarshalJSON() ([]byte, error) {
	type alias struct {
		ProductID     string      `json:"product_id"`
		Name          string      `json:"name"`
		Brand         string      `json:"brand"`
		Price         json.Number `json:"price"`
		Quantity      int         `json:"quantity"`
		ImageURL      string      `json:"image_url"`
		Concentration string      `json:"concentration"`
	}
	return json.Marshal(alias{
		ProductID:     string(w.ProductID),
		Name:          w.Name,
		Brand:         w.Brand,
		Price:         json.Number(w.Price.String()),
		Quantity:      w.Quantity,
		ImageURL:      w.ImageURL,
		Concentration: w.Concentration,
	})
}

func toCartState(w cartSnapshotWire) model.CartState {
	st := model.CartState{Lines: make([]model.CartLine, 0, len(w.Items))}
	for _, it := range w.Items {
		if it.Quantity <= 0 || it.ProductID == "" {
			continue
		}
		// Repeated product rows fold into one line.
		if i := st.IndexOf(string(it.ProductID)); i >= 0 {
			st.Lines[i].Quantity += it.Quantity
			continue
		}
		st.Lines = append(st.Lines, model.CartLine{
			ID:       string(it.ProductID),
			Name:     it.Name,
			Brand:    it.Brand,
			Price:    minorUnits(it.Price),
			Quantity: it.Quantity,
			Image:    it.ImageURL,
			Category: it.Concentration,
		})
	}
	st.Recalculate()
	return st
}

func toPaymentMethods(list []paymentMethodWire) []model.PaymentMethod {
	out := make([]model.PaymentMethod, 0, len(list))
	for _, pm := range list {
		out = append(out, model.PaymentMethod{
			MethodID:    string(pm.MethodID),
			MethodType:  pm.MethodType,
			DisplayName: pm.DisplayName,
			Icon:        pm.Icon,
			IsAvailable: pm.IsAvailable,
		})
	}
	return out
}

func toProduct(w productCardWire) model.Product {
	id := string(w.ProductID)
	if id == "" {
		id = string(w.ID)
	}
	category := w.Category
	if category == "" {
		category = w.Concentration
	}
	return model.Product{
		ID:            id,
		Name:          w.Name,
		Brand:         w.Brand,
		Price:         minorUnits(w.Price),
		Image:         w.ImageURL,
		Category:      category,
		Concentration: w.Concentration,
		Description:   w.Description,
	}
}

func toChatReply(w chatResponse) *model.ChatReply {
	reply := &model.ChatReply{
		Message:        w.Message,
		ResponseType:   w.ResponseType,
		PaymentMethods: toPaymentMethods(w.PaymentMethods),
	}
	for _, p := range w.ProductCards {
		reply.Products = append(reply.Products, toProduct(p))
	}
	for _, qa := range w.QuickActions {
		reply.QuickActions = append(reply.QuickActions, model.QuickAction{
			ID:         qa.ID,
			Label:      qa.Label,
			ActionType: model.ActionType(qa.ActionType),
			Payload:    qa.Payload,
		})
	}
	if w.CartSummary != nil {
		st := toCartState(*w.CartSummary)
		reply.Cart = &st
	}
	if oc := w.OrderConfirmation; oc != nil {
		reply.OrderConfirmation = &model.OrderInfo{
			OrderID:           string(oc.OrderID),
			OrderDate:         oc.OrderDate,
			EstimatedDelivery: oc.EstimatedDelivery,
			TotalAmount:       minorUnits(oc.TotalAmount),
			Status:            model.OrderStatus(oc.Status),
		}
	}
	return reply
}
