package domain

// CartLine is one cart entry. Name, price and image are copied from the
// product when the line is created and never refreshed.
type CartLine struct {
	ProductID int     `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url,omitempty"`
	Quantity  int     `json:"quantity"`
	Variant   string  `json:"selectedFlavor,omitempty"`
}

// Cart is an ordered list of lines. At most one line exists per
// (product, variant) key. Methods never modify the receiver; they return a
// new Cart so callers can compare before and after.
type Cart []CartLine

func (c Cart) index(productID int, variant string) int {
	for i, line := range c {
		if line.ProductID == productID && line.Variant == variant {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Add merges quantity into the line for (product, variant), appending a new
// line when none exists.
func (c Cart) Add(p Product, quantity int, variant string) (Cart, error) {
	if quantity < 1 {
		return c, ErrInvalidQuantity
	}
	out := c.clone()
	if i := out.index(p.ID, variant); i >= 0 {
		out[i].Quantity += quantity
		return out, nil
	}
	return append(out, CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Quantity:  quantity,
		Variant:   variant,
	}), nil
}

// Remove drops the matching line. Removing an absent line is a no-op.
func (c Cart) Remove(productID int, variant string) Cart {
	i := c.index(productID, variant)
	if i < 0 {
		return c
	}
	out := make(Cart, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...)
}

// UpdateQuantity sets the quantity of the matching line.
func (c Cart) UpdateQuantity(productID int, quantity int, variant string) (Cart, error) {
	if quantity < 1 {
		return c, ErrInvalidQuantity
	}
	i := c.index(productID, variant)
	if i < 0 {
		return c, ErrNotFound
	}
	out := c.clone()
	out[i].Quantity = quantity
	return out, nil
}

func (c Cart) Clear() Cart {
	return Cart{}
}

// Quantity returns how many units of (product, variant) are in the cart.
func (c Cart) Quantity(productID int, variant string) int {
	if i := c.index(productID, variant); i >= 0 {
		return c[i].Quantity
	}
	return 0
}

// ItemCount is the sum of all line quantities.
func (c Cart) ItemCount() int {
	n := 0
	for _, line := range c {
		n += line.Quantity
	}
	return n
}

// Subtotal is the sum of price times quantity over all lines.
func (c Cart) Subtotal() float64 {
	total := 0.0
	for _, line := range c {
		total += line.Price * float64(line.Quantity)
	}
	return total
}
