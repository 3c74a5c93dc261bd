package model

// Product is the catalog view of a fragrance as the assistant presents it.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	Price         int64  `json:"price"`
	Image         string `json:"image"`
	Category      string `json:"category"`
	Concentration string `json:"concentration,omitempty"`
	Description   string `json:"description,omitempty"`
}

// CartLine is one product entry in the cart. Quantity is always >= 1.
type CartLine struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image"`
	Category string `json:"category"`
}

func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}

func LineFromProduct(p Product) CartLine {
	return CartLine{
		ID:       p.ID,
		Name:     p.Name,
		Brand:    p.Brand,
		Price:    p.Price,
		Quantity: 1,
		Image:    p.Image,
		Category: p.Category,
	}
}

type CartState struct {
	Lines      []CartLine `json:"lines"`
	TotalPrice int64      `json:"totalPrice"`
	TotalItems int        `json:"totalItems"`
	SessionID  string     `json:"sessionId,omitempty"`
	UserID     string     `json:"userId,omitempty"`
	Syncing    bool       `json:"syncing"`
}

// Recalculate derives the totals from the current lines.
func (s *CartState) Recalculate() {
	var price int64
	var items int
	for _, l := range s.Lines {
		price += l.Subtotal()
		items += l.Quantity
	}
	s.TotalPrice = price
	s.TotalItems = items
}

func (s *CartState) IndexOf(id string) int {
	for i, l := range s.Lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers never share the line slice.
func (s CartState) Clone() CartState {
	out := s
	out.Lines = CloneLines(s.Lines)
	return out
}

func CloneLines(lines []CartLine) []CartLine {
	if lines == nil {
		return []CartLine{}
	}
	out := make([]CartLine, len(lines))
	copy(out, lines)
	return out
}

func SumLines(lines []CartLine) (int64, int) {
	s := CartState{Lines: lines}
	s.Recalculate()
	return s.TotalPrice, s.TotalItems
}
