package repository

import (
	"fmt"
	"sort"

	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/pkg/metrics"
)

// TopN returns the channel's best n players by XP, then ducks, then nick.
func (s *PlayerStore) TopN(channel string, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	entries := s.ranked(channel)
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Rank returns nick's leaderboard row in channel.
func (s *PlayerStore) Rank(channel, nick string) (Entry, error) {
	key := names.Nick(nick)
	for _, e := range s.ranked(channel) {
		if names.Nick(e.Nick) == key {
			return e, nil
		}
	}
	metrics.RecordErrorByComponent("repository", "not_found")
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, nick)
}

func (s *PlayerStore) ranked(channel string) []Entry {
	channel = names.Channel(channel)

	s.mu.RLock()
	entries := make([]Entry, 0, len(s.players[channel]))
	for _, p := range s.players[channel] {
		entries = append(entries, Entry{
			Nick:            p.Nick,
			XP:              p.XP,
			Level:           p.Level,
			DucksShot:       p.DucksShot,
			DucksBefriended: p.DucksBefriended,
		})
	}
	s.mu.RUnlock()

	sortEntries(entries)
	assignRanksWithTies(entries)
	return entries
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.XP != b.XP {
			return a.XP > b.XP
		}
		if ad, bd := a.DucksShot+a.DucksBefriended, b.DucksShot+b.DucksBefriended; ad != bd {
			return ad > bd
		}
		return names.Nick(a.Nick) < names.Nick(b.Nick)
	})
}

// assignRanksWithTies gives equal XP the same rank; ranks stay consecutive.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].XP != entries[i-1].XP {
			rank++
		}
		entries[i].Rank = rank
	}
}
