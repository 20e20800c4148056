package player

// Roster is one channel's players as seen inside a store transaction.
// Pointers it returns are only valid until the transaction ends.
type Roster interface {
	// Channel is the normalized channel name.
	Channel() string
	// Get returns the player for nick, creating it with defaults if absent.
	Get(nick string) (p *Player, created bool)
	// Find returns the player for nick without creating one.
	Find(nick string) (*Player, bool)
	// Range visits players in unspecified order until fn returns false.
	Range(fn func(*Player) bool)
}
