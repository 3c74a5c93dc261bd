package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shinyyama/fragrance-assistant/internal/failure"
	"github.com/shinyyama/fragrance-assistant/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, nil)
}

func TestCreateOrder(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders/create" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"order":{"order_id":1042,"order_date":"2026-10-15","total_amount":110000.0,"estimated_delivery":"2026-10-18","status":"confirmed"}}`))
	})

	receipt, err := c.CreateOrder(context.Background(), model.OrderRequest{
		UserID:    "u1",
		SessionID: "s1",
		Items:     []model.CartLine{{ID: "p1", Price: 30000, Quantity: 2}},
		ShippingInfo: model.ShippingInfo{
			RecipientName: "홍길동",
			Phone:         "010-1234-5678",
			Address:       "서울시 강남구 테헤란로 1",
			AddressDetail: "101호",
			PostalCode:    "06236",
		},
		PaymentMethod: model.PaymentMethod{MethodID: "kakaopay", MethodType: "simple", IsAvailable: true},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if receipt.OrderID != "1042" || receipt.TotalAmount != 110000 || receipt.Status != "confirmed" {
		t.Fatalf("receipt=%+v", receipt)
	}
	form, _ := got["checkout_form"].(map[string]any)
	if form["postal_code"] != "06236" || form["recipient_name"] != "홍길동" {
		t.Fatalf("checkout_form=%v", form)
	}
	if got["payment_method"] != "kakaopay" || got["session_id"] != "s1" {
		t.Fatalf("body=%v", got)
	}
}

func TestCreateOrderFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   failure.Kind
	}{
		{"out of stock", http.StatusUnprocessableEntity, `{"detail":"재고가 부족합니다"}`, failure.KindBusiness},
		{"unauthorized", http.StatusUnauthorized, `{"message":"login required"}`, failure.KindValidation},
		{"server down", http.StatusBadGateway, `oops`, failure.KindNetwork},
		{"rejected body", http.StatusOK, `{"success":false,"message":"결제 실패"}`, failure.KindBusiness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.CreateOrder(context.Background(), model.OrderRequest{})
			if err == nil {
				t.Fatalf("expected error")
			}
			if !failure.IsKind(err, tt.kind) {
				t.Fatalf("err=%v want kind %s", err, tt.kind)
			}
		})
	}
}

func TestCreateOrderTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, nil)
	_, err := c.CreateOrder(context.Background(), model.OrderRequest{})
	var fe *failure.Error
	if !errors.As(err, &fe) || !fe.Retryable() {
		t.Fatalf("expected retryable network error, got %v", err)
	}
}

func TestFetchCart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user_id") != "u1" || r.URL.Query().Get("session_id") != "s1" {
			t.Errorf("query=%v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`{"items":[
			{"product_id":7,"name":"Bleu","brand":"Chanel","price":"150000","quantity":2,"image_url":"/b.png","concentration":"EDP"},
			{"product_id":"x9","name":"Zero","brand":"Any","price":1000,"quantity":0}
		],"total_items":2,"total_amount":300000}`))
	})
	st, err := c.FetchCart(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(st.Lines) != 1 {
		t.Fatalf("zero-quantity lines must be dropped, got %d lines", len(st.Lines))
	}
	l := st.Lines[0]
	if l.ID != "7" || l.Price != 150000 || l.Category != "EDP" || l.Image != "/b.png" {
		t.Fatalf("line=%+v", l)
	}
	if st.TotalPrice != 300000 || st.TotalItems != 2 {
		t.Fatalf("totals=%d/%d", st.TotalPrice, st.TotalItems)
	}
}

func TestFetchCartMergesRepeatedProducts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[
			{"product_id":7,"name":"Bleu","price":150000,"quantity":1},
			{"product_id":"8","name":"Santal","price":30000,"quantity":1},
			{"product_id":"7","name":"Bleu","price":150000,"quantity":2}
		]}`))
	})
	st, err := c.FetchCart(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(st.Lines) != 2 || st.Lines[0].ID != "7" || st.Lines[0].Quantity != 3 {
		t.Fatalf("lines=%+v", st.Lines)
	}
	if st.TotalItems != 4 || st.TotalPrice != 480000 {
		t.Fatalf("totals=%d/%d", st.TotalPrice, st.TotalItems)
	}
}

func TestPushCart(t *testing.T) {
	var got struct {
		Items []map[string]any `json:"items"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cart/sync" {
			t.Errorf("path=%s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})
	err := c.PushCart(context.Background(), "u1", "s1", []model.CartLine{{ID: "p1", Price: 50000, Quantity: 3}})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0]["price"] != float64(50000) || got.Items[0]["quantity"] != float64(3) {
		t.Fatalf("items=%v", got.Items)
	}
}

func TestSendChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"추천드려요","response_type":"product_recommendation",
			"product_cards":[{"id":3,"name":"Santal 33","brand":"Le Labo","price":290000,"image_url":"/s.png","concentration":"EDP"}],
			"quick_actions":[{"label":"담기","action_type":"add_to_cart","payload":{"product_id":"3"}}]}`))
	})
	reply, err := c.SendChat(context.Background(), model.ChatRequest{UserID: "u1", SessionID: "s1", Message: "우디 향 추천"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply.ResponseType != "product_recommendation" || len(reply.Products) != 1 {
		t.Fatalf("reply=%+v", reply)
	}
	if reply.Products[0].ID != "3" || reply.Products[0].Category != "EDP" {
		t.Fatalf("product=%+v", reply.Products[0])
	}
	if len(reply.QuickActions) != 1 || reply.QuickActions[0].ActionType != model.ActionAddToCart {
		t.Fatalf("actions=%+v", reply.QuickActions)
	}
}

func TestPaymentMethods(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"payment_methods":[{"method_id":"card","method_type":"credit_card","display_name":"신용카드","is_available":true},{"method_id":"bank","method_type":"bank","display_name":"계좌이체","is_available":false}]}`))
	})
	methods, err := c.PaymentMethods(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("methods: %v", err)
	}
	if len(methods) != 2 || !methods[0].IsAvailable || methods[1].IsAvailable {
		t.Fatalf("methods=%+v", methods)
	}
}
