package hunt

import "time"

// Rules are the gameplay tunables. Accuracy, befriend rate and jam chance are
// percentages; the friendly-fire and scare chances are probabilities.
type Rules struct {
	AccuracyGainOnHit  int
	AccuracyLossOnMiss int
	MinAccuracy        int
	MaxAccuracy        int

	MissXPPenalty     int
	WildShotXPPenalty int
	TeamkillXPPenalty int

	FriendlyFire       bool
	FriendlyFireChance float64

	BefriendRate          int
	MinBefriendRate       int
	MaxBefriendRate       int
	BefriendXP            int
	BefriendFailXPPenalty int
	ScaredAwayChance      float64

	JamChanceBase int

	AutoRearm              bool
	RearmConfiscatedOnKill bool

	// MaxEffect caps any status effect duration.
	MaxEffect time.Duration
}

func (r Rules) effectFor(d time.Duration) time.Duration {
	if r.MaxEffect > 0 && d > r.MaxEffect {
		return r.MaxEffect
	}
	return d
}
