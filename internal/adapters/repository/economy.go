package repository

import (
	"context"

	"github.com/okian/duckhunt/internal/domain/player"
)

// The economy collaborator mutates currency and inventory only through these
// helpers. Each one is a saved transaction and never drives coins below zero.

// CreditCoins adds amount to nick's balance and returns the new balance.
func (s *PlayerStore) CreditCoins(ctx context.Context, channel, nick string, amount int64) (int64, error) {
	var balance int64
	err := s.Update(ctx, channel, func(r player.Roster) (bool, error) {
		p, _ := r.Get(nick)
		if err := p.Credit(amount); err != nil {
			return false, err
		}
		balance = p.Coins
		return true, nil
	})
	return balance, err
}

// DebitCoins removes amount from nick's balance. It fails with
// player.ErrInsufficientFunds and leaves the balance untouched when the
// balance cannot cover it.
func (s *PlayerStore) DebitCoins(ctx context.Context, channel, nick string, amount int64) (int64, error) {
	var balance int64
	err := s.Update(ctx, channel, func(r player.Roster) (bool, error) {
		p, _ := r.Get(nick)
		if err := p.Debit(amount); err != nil {
			return false, err
		}
		balance = p.Coins
		return true, nil
	})
	return balance, err
}

// AddItem adds n of item to nick's inventory and returns the held count.
func (s *PlayerStore) AddItem(ctx context.Context, channel, nick, item string, n int) (int, error) {
	var held int
	err := s.Update(ctx, channel, func(r player.Roster) (bool, error) {
		p, _ := r.Get(nick)
		if err := p.AddItem(item, n); err != nil {
			return false, err
		}
		held = p.Inventory[item]
		return true, nil
	})
	return held, err
}

// RemoveItem takes n of item from nick's inventory and returns what is left.
func (s *PlayerStore) RemoveItem(ctx context.Context, channel, nick, item string, n int) (int, error) {
	var held int
	err := s.Update(ctx, channel, func(r player.Roster) (bool, error) {
		p, ok := r.Find(nick)
		if !ok {
			return false, player.ErrInsufficientItems
		}
		if err := p.RemoveItem(item, n); err != nil {
			return false, err
		}
		held = p.Inventory[item]
		return true, nil
	})
	return held, err
}
