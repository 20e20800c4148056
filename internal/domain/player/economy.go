package player

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient coins")
	// ErrInsufficientItems is returned when removing more items than held.
	ErrInsufficientItems = errors.New("insufficient items")
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrBalanceOverflow is returned when a credit or item grant would wrap the counter.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// Credit adds coins.
func (p *Player) Credit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if amount > math.MaxInt64-p.Coins {
		return fmt.Errorf("%w: have %d, adding %d", ErrBalanceOverflow, p.Coins, amount)
	}
	p.Coins += amount
	return nil
}

// Debit removes coins, leaving the balance untouched when it cannot cover amount.
func (p *Player) Debit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if p.Coins < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, p.Coins, amount)
	}
	p.Coins -= amount
	return nil
}

// AddItem puts n of item into the inventory.
func (p *Player) AddItem(item string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, n)
	}
	if have := p.Inventory[item]; n > math.MaxInt-have {
		return fmt.Errorf("%w: %s have %d, adding %d", ErrBalanceOverflow, item, have, n)
	}
	if p.Inventory == nil {
		p.Inventory = make(map[string]int)
	}
	p.Inventory[item] += n
	return nil
}

// RemoveItem takes n of item out; an emptied slot is dropped, and an emptied
// inventory is nil so it saves and loads the same.
func (p *Player) RemoveItem(item string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, n)
	}
	have := p.Inventory[item]
	if have < n {
		return fmt.Errorf("%w: %s have %d, need %d", ErrInsufficientItems, item, have, n)
	}
	if have == n {
		delete(p.Inventory, item)
		if len(p.Inventory) == 0 {
			p.Inventory = nil
		}
		return nil
	}
	p.Inventory[item] = have - n
	return nil
}
