package model

type Intensity string

const (
	IntensityLight  Intensity = "light"
	IntensityMedium Intensity = "medium"
	IntensityStrong Intensity = "strong"
)

type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type Preferences struct {
	FragranceTypes  []string   `json:"fragranceTypes"`
	PriceRange      PriceRange `json:"priceRange"`
	FavoriteNotes   []string   `json:"favoriteNotes"`
	PreferredBrands []string   `json:"preferredBrands"`
	Occasions       []string   `json:"occasions"`
	Intensity       Intensity  `json:"intensity"`
	PurchaseHistory []string   `json:"purchaseHistory"`
	ViewHistory     []string   `json:"viewHistory"`
	CartHistory     []string   `json:"cartHistory"`
}

// PreferencesPatch is a partial update: nil fields are left untouched.
type PreferencesPatch struct {
	FragranceTypes  *[]string   `json:"fragranceTypes,omitempty"`
	PriceRange      *PriceRange `json:"priceRange,omitempty"`
	FavoriteNotes   *[]string   `json:"favoriteNotes,omitempty"`
	PreferredBrands *[]string   `json:"preferredBrands,omitempty"`
	Occasions       *[]string   `json:"occasions,omitempty"`
	Intensity       *Intensity  `json:"intensity,omitempty"`
	PurchaseHistory *[]string   `json:"purchaseHistory,omitempty"`
	ViewHistory     *[]string   `json:"viewHistory,omitempty"`
	CartHistory     *[]string   `json:"cartHistory,omitempty"`
}

func (p Preferences) Merge(patch PreferencesPatch) Preferences {
	if patch.FragranceTypes != nil {
		p.FragranceTypes = *patch.FragranceTypes
	}
	if patch.PriceRange != nil {
		p.PriceRange = *patch.PriceRange
	}
	if patch.FavoriteNotes != nil {
		p.FavoriteNotes = *patch.FavoriteNotes
	}
	if patch.PreferredBrands != nil {
		p.PreferredBrands = *patch.PreferredBrands
	}
	if patch.Occasions != nil {
		p.Occasions = *patch.Occasions
	}
	if patch.Intensity != nil {
		p.Intensity = *patch.Intensity
	}
	if patch.PurchaseHistory != nil {
		p.PurchaseHistory = *patch.PurchaseHistory
	}
	if patch.ViewHistory != nil {
		p.ViewHistory = *patch.ViewHistory
	}
	if patch.CartHistory != nil {
		p.CartHistory = *patch.CartHistory
	}
	return p
}

func DefaultPreferences() Preferences {
	return Preferences{
		FragranceTypes:  []string{},
		PriceRange:      PriceRange{Min: 0, Max: 500000},
		FavoriteNotes:   []string{},
		PreferredBrands: []string{},
		Occasions:       []string{},
		Intensity:       IntensityMedium,
		PurchaseHistory: []string{},
		ViewHistory:     []string{},
		CartHistory:     []string{},
	}
}

type ConversationContext struct {
	SessionID       string      `json:"sessionId"`
	Preferences     Preferences `json:"preferences"`
	RecentProducts  []Product   `json:"recentProducts"`
	PurchaseHistory []OrderInfo `json:"purchaseHistory"`
}
