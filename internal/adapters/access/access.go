// Package access decides who may run admin commands.
package access

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/match"

	"github.com/okian/duckhunt/internal/domain/names"
)

// ErrInvalidEntry is returned for a blank admin entry.
var ErrInvalidEntry = errors.New("invalid admin entry")

// Authorizer reports whether a user holds admin rights.
type Authorizer interface {
	IsAdmin(nick, hostmask string) bool
}

// Static is a fixed admin list. Entries containing '!' or '@' are matched as
// case-insensitive globs against the full nick!user@host mask; anything else
// is a bare nick.
type Static struct {
	nicks map[string]struct{}
	masks []string
}

// NewStatic builds a Static authorizer from entries.
func NewStatic(entries []string) (*Static, error) {
	s := &Static{nicks: make(map[string]struct{})}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			return nil, fmt.Errorf("%w: blank", ErrInvalidEntry)
		}
		if strings.ContainsAny(e, "!@") {
			s.masks = append(s.masks, names.Nick(e))
			continue
		}
		s.nicks[names.Nick(e)] = struct{}{}
	}
	return s, nil
}

// IsAdmin implements Authorizer.
func (s *Static) IsAdmin(nick, hostmask string) bool {
	if _, ok := s.nicks[names.Nick(nick)]; ok {
		return true
	}
	if hostmask == "" {
		return false
	}
	hm := names.Nick(hostmask)
	for _, m := range s.masks {
		if match.Match(hm, m) {
			return true
		}
	}
	return false
}

// Size is the number of configured entries.
func (s *Static) Size() int { return len(s.nicks) + len(s.masks) }
