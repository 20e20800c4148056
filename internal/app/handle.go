package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/duckhunt/internal/domain/duck"
	"github.com/okian/duckhunt/internal/domain/hunt"
	"github.com/okian/duckhunt/internal/domain/model"
	"github.com/okian/duckhunt/internal/domain/names"
	"github.com/okian/duckhunt/internal/domain/player"
	"github.com/okian/duckhunt/internal/domain/spawn"
	"github.com/okian/duckhunt/pkg/logger"
)

// Handle executes one command. The dispatcher calls it from the worker that
// owns cmd's channel.
func (s *Service) Handle(ctx context.Context, cmd model.Command) (model.Reply, error) {
	reply := model.Reply{CommandID: cmd.ID, Verb: cmd.Verb}
	if cmd.Verb != model.VerbFlush {
		reply.Channel = names.Channel(cmd.Channel)
	}

	if cmd.Verb.Admin() && !s.auth.IsAdmin(cmd.Nick, cmd.Hostmask) {
		s.logger.Warn(ctx, "admin command refused",
			logger.String("verb", string(cmd.Verb)),
			logger.String("nick", cmd.Nick),
			logger.String("hostmask", cmd.Hostmask))
		return reply, fmt.Errorf("%w: %s", ErrUnauthorized, cmd.Verb)
	}

	var err error
	switch cmd.Verb {
	case model.VerbShoot, model.VerbBefriend, model.VerbReload:
		err = s.act(ctx, cmd, &reply)
	case model.VerbLaunch:
		err = s.launch(ctx, cmd, &reply)
	case model.VerbRearm:
		err = s.rearm(ctx, cmd, &reply)
	case model.VerbDisarm:
		err = s.disarm(ctx, cmd, &reply)
	case model.VerbReset:
		err = s.reset(ctx, cmd, &reply)
	case model.VerbJoin:
		err = s.join(ctx, reply.Channel, &reply)
	case model.VerbPart:
		err = s.part(ctx, reply.Channel, &reply)
	case model.VerbFlush:
		err = s.players.Flush(ctx)
		reply.Changed = err == nil
	default:
		err = fmt.Errorf("%w: unknown verb %q", model.ErrInvalidCommand, cmd.Verb)
	}
	return reply, err
}

func (s *Service) act(ctx context.Context, cmd model.Command, reply *model.Reply) error {
	if !s.scheduler.Joined(reply.Channel) {
		return fmt.Errorf("%w: %s", spawn.ErrNotJoined, reply.Channel)
	}

	var (
		res hunt.Result
		err error
	)
	switch cmd.Verb {
	case model.VerbShoot:
		res, err = s.resolver.Shoot(ctx, reply.Channel, cmd.Nick, cmd.Target)
	case model.VerbBefriend:
		res, err = s.resolver.Befriend(ctx, reply.Channel, cmd.Nick, cmd.Target)
	default:
		res, err = s.resolver.Reload(ctx, reply.Channel, cmd.Nick)
	}
	if err != nil {
		return err
	}
	reply.Result = &res
	reply.Changed = !res.Outcome.Failure()
	s.say(ctx, reply.Channel, resultText(&res))
	return nil
}

func (s *Service) launch(ctx context.Context, cmd model.Command, reply *model.Reply) error {
	var kind *duck.Kind
	if cmd.Kind != "" {
		k, err := duck.ParseKind(cmd.Kind)
		if err != nil {
			return fmt.Errorf("%w: %w", model.ErrInvalidCommand, err)
		}
		kind = &k
	}
	ds, err := s.scheduler.Launch(ctx, reply.Channel, kind)
	if err != nil {
		return err
	}
	reply.Ducks = ds
	reply.Changed = true
	return nil
}

// rearm gives the subject's gun back, or every confiscated gun in the
// channel when there is no subject.
func (s *Service) rearm(ctx context.Context, cmd model.Command, reply *model.Reply) error {
	err := s.players.Update(ctx, reply.Channel, func(ros player.Roster) (bool, error) {
		if cmd.Subject != "" {
			p, ok := ros.Find(cmd.Subject)
			if !ok || !p.Confiscated {
				return false, nil
			}
			p.Rearm()
			reply.Affected = append(reply.Affected, p.Nick)
			return true, nil
		}
		ros.Range(func(p *player.Player) bool {
			if p.Confiscated {
				p.Rearm()
				reply.Affected = append(reply.Affected, p.Nick)
			}
			return true
		})
		return len(reply.Affected) > 0, nil
	})
	if err != nil {
		reply.Affected = nil
		return err
	}
	sort.Strings(reply.Affected)
	reply.Changed = len(reply.Affected) > 0
	if reply.Changed {
		s.say(ctx, reply.Channel, fmt.Sprintf("%s rearmed %s.", cmd.Nick, joinNicks(reply.Affected)))
	}
	return nil
}

func (s *Service) disarm(ctx context.Context, cmd model.Command, reply *model.Reply) error {
	if cmd.Subject == "" {
		return fmt.Errorf("%w: disarm needs a subject", model.ErrInvalidCommand)
	}
	err := s.players.Update(ctx, reply.Channel, func(ros player.Roster) (bool, error) {
		p, _ := ros.Get(cmd.Subject)
		if p.Confiscated {
			return false, nil
		}
		p.Confiscate()
		reply.Affected = []string{p.Nick}
		return true, nil
	})
	if err != nil {
		reply.Affected = nil
		return err
	}
	reply.Changed = len(reply.Affected) > 0
	if reply.Changed {
		s.say(ctx, reply.Channel, fmt.Sprintf("%s confiscated %s's gun.", cmd.Nick, cmd.Subject))
	}
	return nil
}

func (s *Service) reset(ctx context.Context, cmd model.Command, reply *model.Reply) error {
	if cmd.Subject == "" {
		return fmt.Errorf("%w: reset needs a subject", model.ErrInvalidCommand)
	}
	ok, err := s.players.Reset(ctx, reply.Channel, cmd.Subject)
	if err != nil {
		return err
	}
	reply.Changed = ok
	if ok {
		reply.Affected = []string{cmd.Subject}
	}
	return nil
}

func (s *Service) join(ctx context.Context, channel string, reply *model.Reply) error {
	added, err := s.players.Join(ctx, channel)
	if err != nil {
		return err
	}
	s.mu.RLock()
	runCtx := s.runCtx
	s.mu.RUnlock()
	started := s.scheduler.Join(runCtx, channel)
	reply.Changed = added || started
	return nil
}

func (s *Service) part(ctx context.Context, channel string, reply *model.Reply) error {
	removed, err := s.players.Part(ctx, channel)
	if err != nil {
		return err
	}
	stopped := s.scheduler.Part(channel)
	reply.Changed = removed || stopped
	return nil
}

func (s *Service) say(ctx context.Context, channel, text string) {
	if text == "" {
		return
	}
	if err := s.sender.Send(ctx, channel, text); err != nil {
		s.logger.Warn(ctx, "announce failed", logger.String("channel", channel), logger.Error(err))
	}
}
