package domain

import (
	"sort"
)

// QuickAddQuantities are the bulk amounts offered by the configurator's
// quick-add shortcuts.
var QuickAddQuantities = []int{51, 101}

// QuickAddFlowerIDs designates the flowers eligible for quick-add shortcuts
// (the red and white rose entries of the master directory).
var QuickAddFlowerIDs = []string{"roses", "euro"}

// QuickAddAllowed reports whether the flower id may use bulk quick-add.
func QuickAddAllowed(flowerID string) bool {
	for _, id := range QuickAddFlowerIDs {
		if id == flowerID {
			return true
		}
	}
	return false
}

// Selection is the transient configurator state mapping flower id to a
// positive quantity. It never holds zero or negative entries: mutations that
// would drop a quantity to zero remove the key instead.
type Selection map[string]int

// Increase adds one to the flower's quantity, creating the entry when absent.
func (s Selection) Increase(flowerID string) {
	if flowerID == "" {
		return
	}
	s[flowerID] = s[flowerID] + 1
}

// Decrease subtracts one from the flower's quantity, deleting the entry when
// it would reach zero.
func (s Selection) Decrease(flowerID string) {
	current, ok := s[flowerID]
	if !ok {
		return
	}
	if current <= 1 {
		delete(s, flowerID)
		return
	}
	s[flowerID] = current - 1
}

// Set overwrites the flower's quantity. Non-positive amounts remove the
// entry; repeated calls are last-write-wins, never cumulative.
func (s Selection) Set(flowerID string, quantity int) {
	if flowerID == "" {
		return
	}
	if quantity <= 0 {
		delete(s, flowerID)
		return
	}
	s[flowerID] = quantity
}

// IDs returns the selected flower ids in stable lexical order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone copies the selection so callers can mutate without aliasing.
func (s Selection) Clone() Selection {
	dup := make(Selection, len(s))
	for id, qty := range s {
		dup[id] = qty
	}
	return dup
}

// BouquetTotal computes the configurator total: the sum of price x quantity
// over the selection plus the chosen wrapping's price (zero when none).
// Flowers missing from the block's catalog contribute nothing.
func BouquetTotal(sel Selection, flowers []CatalogItem, wrapping *CatalogItem) int64 {
	var total int64
	for id, qty := range sel {
		for _, f := range flowers {
			if f.ID == id {
				total += f.Price * int64(qty)
				break
			}
		}
	}
	if wrapping != nil {
		total += wrapping.Price
	}
	return total
}
