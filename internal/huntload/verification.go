package huntload

import (
	"context"
	"fmt"
	"net/url"

	"github.com/okian/duckhunt/internal/domain/types"
	"github.com/okian/duckhunt/pkg/logger"
)

// verifyChannel fetches the channel leaderboard and every listed player and
// checks the two views agree.
func verifyChannel(ctx context.Context, cfg *Config, c *client, channel string, stats *Stats) error {
	var board []types.Entry
	path := fmt.Sprintf("/v1/channels/%s/leaderboard?limit=%d", channelPath(channel), cfg.TopN)
	if err := c.getJSON(ctx, path, &board); err != nil {
		return fmt.Errorf("leaderboard %s: %w", channel, err)
	}
	stats.Leaderboard += len(board)

	if err := verifyOrdering(board); err != nil {
		return fmt.Errorf("leaderboard %s: %w", channel, err)
	}

	for _, e := range board {
		var p types.Player
		path := fmt.Sprintf("/v1/channels/%s/players/%s", channelPath(channel), url.PathEscape(e.Nick))
		if err := c.getJSON(ctx, path, &p); err != nil {
			return fmt.Errorf("player %s in %s: %w", e.Nick, channel, err)
		}
		stats.Players++
		if err := verifyEntry(e, p); err != nil {
			return fmt.Errorf("%s: %w", channel, err)
		}
	}

	if len(board) > 0 {
		cfg.Logger.Info(ctx, "channel verified",
			logger.String("channel", channel),
			logger.Int("entries", len(board)),
			logger.String("leader", board[0].Nick),
			logger.Int("leader_xp", board[0].XP))
	}
	return nil
}

// verifyOrdering checks rows are sorted by XP and ranks never go backwards.
func verifyOrdering(board []types.Entry) error {
	for i := 1; i < len(board); i++ {
		prev, cur := board[i-1], board[i]
		if cur.XP > prev.XP {
			return fmt.Errorf("entry %d (%s, %d xp) outranks entry %d (%s, %d xp)",
				i, cur.Nick, cur.XP, i-1, prev.Nick, prev.XP)
		}
		if cur.Rank < prev.Rank {
			return fmt.Errorf("rank %d follows rank %d", cur.Rank, prev.Rank)
		}
	}
	return nil
}

// verifyEntry checks a leaderboard row against the player view.
func verifyEntry(e types.Entry, p types.Player) error {
	if e.XP != p.XP || e.DucksShot != p.DucksShot || e.DucksBefriended != p.DucksBefriended {
		return fmt.Errorf("%s: leaderboard says %d xp/%d shot/%d befriended, player says %d/%d/%d",
			e.Nick, e.XP, e.DucksShot, e.DucksBefriended, p.XP, p.DucksShot, p.DucksBefriended)
	}
	return nil
}
