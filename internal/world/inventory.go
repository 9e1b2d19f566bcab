package world

import "math"

// InvItem is a stack of identical loot items.
type InvItem struct {
	Name  string
	Count int
}

// Inventory holds an actor's in-memory loot list.
// Accessed only from the simulation goroutine.
type Inventory struct {
	Items []*InvItem
}

// NewInventory creates an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{
		Items: make([]*InvItem, 0, 4),
	}
}

// FindByName returns the stack with the given name.
func (inv *Inventory) FindByName(name string) *InvItem {
	for _, it := range inv.Items {
		if it.Name == name {
			return it
		}
	}
	return nil
}

// AddItem adds or stacks count items of name. Returns the affected stack.
func (inv *Inventory) AddItem(name string, count int) *InvItem {
	if existing := inv.FindByName(name); existing != nil {
		existing.Count += count
		return existing
	}
	item := &InvItem{Name: name, Count: count}
	inv.Items = append(inv.Items, item)
	return item
}

// Size returns the number of stacks.
func (inv *Inventory) Size() int {
	return len(inv.Items)
}

// Total returns the number of items across all stacks.
func (inv *Inventory) Total() int {
	n := 0
	for _, it := range inv.Items {
		n += it.Count
	}
	return n
}

// TransferAll empties inv into dst. Each stack is multiplied by scale and
// rounded, keeping at least one item per non-empty stack. Returns the number
// of items dst received.
func (inv *Inventory) TransferAll(dst *Inventory, scale float64) int {
	moved := 0
	for _, it := range inv.Items {
		if it.Count <= 0 {
			continue
		}
		n := int(math.Round(float64(it.Count) * scale))
		if n < 1 {
			n = 1
		}
		dst.AddItem(it.Name, n)
		moved += n
	}
	inv.Items = inv.Items[:0]
	return moved
}
