package api

import (
	"context"
	"net/http"

	"github.com/okian/duckhunt/internal/domain/types"
)

// ChannelDependencies defines the per-channel read models.
type ChannelDependencies interface {
	Ducks(ctx context.Context, channel string) []types.Duck
	Player(ctx context.Context, channel, nick string) (types.Player, error)
}

// ChannelHandler serves live ducks and player state.
type ChannelHandler struct {
	deps ChannelDependencies
}

// NewChannelHandler creates a new channel handler.
func NewChannelHandler(deps ChannelDependencies) *ChannelHandler {
	return &ChannelHandler{deps: deps}
}

// HandleGetDucks handles GET /v1/channels/{channel}/ducks requests.
func (h *ChannelHandler) HandleGetDucks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Ducks(r.Context(), channelParam(r)))
}

// HandleGetPlayer handles GET /v1/channels/{channel}/players/{nick} requests.
func (h *ChannelHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	p, err := h.deps.Player(r.Context(), channelParam(r), r.PathValue("nick"))
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
