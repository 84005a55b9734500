package cart

import (
	"github.com/drstein77/cartview/internal/models"
	"github.com/drstein77/cartview/internal/money"
)

// State is the ordered list of items currently in the cart.
// Totals are always derived from it, never stored.
type State struct {
	items []models.CartItem
}

func NewState(items []models.CartItem) State {
	cp := make([]models.CartItem, len(items))
	copy(cp, items)
	return State{items: cp}
}

func (s *State) Len() int {
	return len(s.items)
}

func (s *State) index(id string) int {
	for i := range s.items {
		if s.items[i].ID.String() == id {
			return i
		}
	}
	return -1
}

// SetQuantity changes one item's quantity. The change is undone if any
// subtotal or the total would no longer fit in int64 minor units.
func (s *State) SetQuantity(id string, quantity int) error {
	i := s.index(id)
	if i < 0 {
		return ErrItemNotFound
	}

	prev := s.items[i].Quantity
	s.items[i].Quantity = quantity
	if _, err := Sum(s.items); err != nil {
		s.items[i].Quantity = prev
		return err
	}
	return nil
}

func (s *State) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// Lines returns each item with its subtotal, in cart order.
func (s *State) Lines() []models.Line {
	lines := make([]models.Line, 0, len(s.items))
	for _, item := range s.items {
		lines = append(lines, models.Line{
			Item:     item,
			Subtotal: money.Multiply(item.Price, item.Quantity),
		})
	}
	return lines
}

// Total is the sum of all line subtotals. There is no tax or shipping.
func (s *State) Total() int64 {
	var total int64
	for _, item := range s.items {
		total += money.Multiply(item.Price, item.Quantity)
	}
	return total
}

// Sum adds up price × quantity over items, failing with money.ErrOverflow
// when a subtotal or the running total leaves the int64 range.
func Sum(items []models.CartItem) (int64, error) {
	var total int64
	for _, item := range items {
		sub, err := money.Subtotal(item.Price, item.Quantity)
		if err != nil {
			return 0, err
		}
		if total, err = money.Add(total, sub); err != nil {
			return 0, err
		}
	}
	return total, nil
}
