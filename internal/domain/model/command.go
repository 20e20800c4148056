// Package model contains the command and reply types passed between the
// ingress adapters, the dispatcher and the service.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/hunt"
	"github.com/okian/duckhunt/internal/domain/names"
)

// ErrInvalidCommand marks a command that failed validation.
var ErrInvalidCommand = errors.New("invalid command")

// Verb names what a command asks for.
type Verb string

const (
	VerbShoot    Verb = "shoot"
	VerbBefriend Verb = "befriend"
	VerbReload   Verb = "reload"

	// Admin verbs.
	VerbLaunch Verb = "ducklaunch"
	VerbRearm  Verb = "rearm"
	VerbDisarm Verb = "disarm"
	VerbReset  Verb = "reset"
	VerbJoin   Verb = "join"
	VerbPart   Verb = "part"
	VerbFlush  Verb = "flush"
)

// Admin reports whether v requires admin rights.
func (v Verb) Admin() bool {
	switch v {
	case VerbLaunch, VerbRearm, VerbDisarm, VerbReset, VerbJoin, VerbPart, VerbFlush:
		return true
	case VerbShoot, VerbBefriend, VerbReload:
		return false
	}
	return false
}

// ParseVerb maps a wire name to a Verb.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case VerbShoot, VerbBefriend, VerbReload, VerbLaunch, VerbRearm, VerbDisarm,
		VerbReset, VerbJoin, VerbPart, VerbFlush:
		return v, nil
	}
	return "", fmt.Errorf("%w: unknown verb %q", ErrInvalidCommand, s)
}

// Command is one inbound request, issued by Nick in Channel.
type Command struct {
	// ID makes redelivery idempotent; it is assigned on submit when empty.
	ID       string
	Verb     Verb
	Channel  string
	Nick     string
	Hostmask string

	// Target is an explicit duck id for shoot and befriend.
	Target *uint64
	// Subject is the player an admin verb acts on; empty means everyone.
	Subject string
	// Kind forces the kind of a launched duck.
	Kind string

	ReceivedAt time.Time
}

// Validate checks the fields each verb needs.
func (c *Command) Validate() error {
	if c.Verb == "" {
		return fmt.Errorf("%w: missing verb", ErrInvalidCommand)
	}
	if names.Nick(c.Nick) == "" {
		return fmt.Errorf("%w: missing nick", ErrInvalidCommand)
	}
	if c.Verb != VerbFlush && !names.IsChannel(c.Channel) {
		return fmt.Errorf("%w: %q is not a channel", ErrInvalidCommand, c.Channel)
	}
	if c.Target != nil && c.Verb != VerbShoot && c.Verb != VerbBefriend {
		return fmt.Errorf("%w: %s takes no target", ErrInvalidCommand, c.Verb)
	}
	if c.Kind != "" {
		if c.Verb != VerbLaunch {
			return fmt.Errorf("%w: %s takes no kind", ErrInvalidCommand, c.Verb)
		}
		if _, err := duck.ParseKind(c.Kind); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
	}
	return nil
}

// Reply is the result of a handled command. Exactly one of the payload
// fields is set, depending on the verb.
type Reply struct {
	CommandID string
	Verb      Verb
	Channel   string

	Result   *hunt.Result
	Ducks    []duck.Duck
	Affected []string
	// Changed reports whether an admin verb had any effect.
	Changed bool
}

// Response carries a Reply or the error that prevented one.
type Response struct {
	Reply Reply
	Err   error
}

// Envelope is what flows through the dispatcher queues.
type Envelope struct {
	Command Command
	// Reply receives exactly one Response. It must be buffered.
	Reply chan Response
}

// NewEnvelope wraps cmd with a single-slot reply channel.
func NewEnvelope(cmd Command) Envelope {
	return Envelope{Command: cmd, Reply: make(chan Response, 1)}
}
