package ai

import (
	"fmt"
	"strings"

	"github.com/shinyyama/fragrance-assistant/internal/model"
)

const basePrompt = `당신은 향수 온라인 스토어의 쇼핑 도우미입니다.

반드시 지킬 규칙:

* 한국어로 간결하고 친절하게 답하세요.
* 재고, 가격, 배송일을 지어내지 마세요. 모르면 모른다고 답하세요.
* 결제나 주문 확정은 직접 처리하지 말고, 장바구니 또는 구매 버튼을 안내하세요.
* 향수와 무관한 질문에는 정중하게 쇼핑 이야기로 돌아오도록 안내하세요.

응답 형식:

* 첫 줄 맨 앞에 [type:text], [type:product_recommendation], [type:cart_summary] 중 하나를 붙이세요.
* 특정 상품을 언급할 때는 [[product:상품ID]] 형식으로 표시하세요.`

var intensityPrompts = map[model.Intensity]string{
	model.IntensityLight:  "고객은 은은하고 가벼운 향을 선호합니다. 오 드 코롱이나 오 드 뚜왈렛 위주로 제안하세요.",
	model.IntensityMedium: "고객은 적당한 지속력의 향을 선호합니다.",
	model.IntensityStrong: "고객은 진하고 오래가는 향을 선호합니다. 오 드 퍼퓸이나 퍼퓸 위주로 제안하세요.",
}

// BuildAssistantPrompt renders the system instruction for the shopper's
// current preferences. Unknown intensity falls back to medium.
func BuildAssistantPrompt(prefs model.Preferences) string {
	intensity, ok := intensityPrompts[prefs.Intensity]
	if !ok {
		intensity = intensityPrompts[model.IntensityMedium]
	}
	parts := []string{basePrompt, intensity}

	var known []string
	if len(prefs.FragranceTypes) > 0 {
		known = append(known, "선호 계열: "+strings.Join(prefs.FragranceTypes, ", "))
	}
	if len(prefs.FavoriteNotes) > 0 {
		known = append(known, "좋아하는 노트: "+strings.Join(prefs.FavoriteNotes, ", "))
	}
	if len(prefs.PreferredBrands) > 0 {
		known = append(known, "선호 브랜드: "+strings.Join(prefs.PreferredBrands, ", "))
	}
	if len(prefs.Occasions) > 0 {
		known = append(known, "사용 상황: "+strings.Join(prefs.Occasions, ", "))
	}
	if prefs.PriceRange.Max > 0 {
		known = append(known, fmt.Sprintf("예산: %d원 ~ %d원", prefs.PriceRange.Min, prefs.PriceRange.Max))
	}
	if len(known) > 0 {
		parts = append(parts, "고객 정보:\n"+strings.Join(known, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
