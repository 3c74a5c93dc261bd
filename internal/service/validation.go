package service

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shinyyama/fragrance-assistant/internal/model"
)

var (
	krMobilePattern   = regexp.MustCompile(`^01[016789]-?\d{3,4}-?\d{4}$`)
	postalCodePattern = regexp.MustCompile(`^\d{5}$`)
)

// ValidationError is a locally rejected checkout input. It never reaches the
// backend and is not classified as a failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

var shippingMessages = map[string]string{
	"recipientName": "받는 분 이름을 2자 이상 입력해 주세요.",
	"phone":         "휴대폰 번호 형식이 올바르지 않아요. (예: 010-1234-5678)",
	"address":       "주소를 5자 이상 입력해 주세요.",
	"addressDetail": "상세 주소를 입력해 주세요.",
	"postalCode":    "우편번호는 숫자 5자리로 입력해 주세요.",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("krmobile", func(fl validator.FieldLevel) bool {
		return krMobilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("postalcode", func(fl validator.FieldLevel) bool {
		return postalCodePattern.MatchString(fl.Field().String())
	})
	return v
}

func normalizeShipping(info model.ShippingInfo) model.ShippingInfo {
	info.RecipientName = strings.TrimSpace(info.RecipientName)
	info.Phone = strings.TrimSpace(info.Phone)
	info.Address = strings.TrimSpace(info.Address)
	info.AddressDetail = strings.TrimSpace(info.AddressDetail)
	info.PostalCode = strings.TrimSpace(info.PostalCode)
	info.DeliveryMessage = strings.TrimSpace(info.DeliveryMessage)
	return info
}

// validateShipping reports the first invalid field in declaration order.
func validateShipping(info model.ShippingInfo) *ValidationError {
	err := validate.Struct(info)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		msg, ok := shippingMessages[field]
		if !ok {
			msg = "배송 정보를 다시 확인해 주세요."
		}
		return &ValidationError{Field: field, Message: msg}
	}
	return &ValidationError{Field: "shippingInfo", Message: "배송 정보를 다시 확인해 주세요."}
}

func validatePayment(m model.PaymentMethod) *ValidationError {
	switch {
	case strings.TrimSpace(m.MethodID) == "":
		return &ValidationError{Field: "methodId", Message: "결제 수단을 선택해 주세요."}
	case strings.TrimSpace(m.MethodType) == "":
		return &ValidationError{Field: "methodType", Message: "결제 수단 정보가 올바르지 않아요."}
	case !m.IsAvailable:
		return &ValidationError{Field: "isAvailable", Message: "선택하신 결제 수단은 현재 사용할 수 없어요. 다른 결제 수단을 선택해 주세요."}
	}
	return nil
}
