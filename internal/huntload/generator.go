package huntload

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/duckhunt/internal/domain/dice"
	"github.com/okian/duckhunt/internal/domain/model"
	"github.com/okian/duckhunt/internal/domain/types"
)

// weighted verb mix, in percent.
var verbMix = []struct {
	verb   model.Verb
	weight int
}{
	{model.VerbShoot, 45},
	{model.VerbReload, 20},
	{model.VerbBefriend, 15},
	{model.VerbLaunch, 12},
	{model.VerbRearm, 8},
}

// nicks returns the deterministic player pool for a run.
func nicks(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("hunter%03d", i)
	}
	return out
}

// Generate builds cfg.Commands requests. The same seed yields the same plan
// apart from the generated IDs.
func Generate(cfg *Config, r dice.Roller) []types.ActionRequest {
	pool := nicks(cfg.Players)
	out := make([]types.ActionRequest, 0, cfg.Commands)
	for i := 0; i < cfg.Commands; i++ {
		if cfg.Replays > 0 && i > 0 && i%cfg.Replays == 0 {
			// Same ID and payload as an earlier command; the server must drop it.
			out = append(out, out[r.IntN(len(out))])
			continue
		}
		req := types.ActionRequest{
			ID:      uuid.NewString(),
			Verb:    string(pickVerb(r)),
			Channel: cfg.Channels[r.IntN(len(cfg.Channels))],
			Nick:    pool[r.IntN(len(pool))],
		}
		switch model.Verb(req.Verb) {
		case model.VerbLaunch:
			req.Nick = cfg.Admin
			req.Kind = "normal"
		case model.VerbRearm:
			req.Nick = cfg.Admin
		}
		out = append(out, req)
	}
	return out
}

func pickVerb(r dice.Roller) model.Verb {
	roll := r.IntN(100)
	for _, m := range verbMix {
		if roll < m.weight {
			return m.verb
		}
		roll -= m.weight
	}
	return model.VerbShoot
}
