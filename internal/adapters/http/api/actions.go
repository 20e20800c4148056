package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/duckhunt/internal/domain/model"
	"github.com/okian/duckhunt/internal/domain/types"
	"github.com/okian/duckhunt/pkg/logger"
)

// maxActionBody bounds the POST /v1/actions body.
const maxActionBody = 16 << 10

// ActionDependencies defines the interface for command submission.
type ActionDependencies interface {
	Submit(ctx context.Context, cmd model.Command) (model.Reply, error)
}

// ActionsHandler handles action requests.
type ActionsHandler struct {
	deps   ActionDependencies
	logger logger.Logger
}

// NewActionsHandler creates a new actions handler.
func NewActionsHandler(deps ActionDependencies, l logger.Logger) *ActionsHandler {
	return &ActionsHandler{deps: deps, logger: l}
}

// HandlePostAction handles POST /v1/actions requests. The command runs
// synchronously and its result is the response body.
func (h *ActionsHandler) HandlePostAction(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_action"

	var req types.ActionRequest
	d := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxActionBody))
	d.DisallowUnknownFields()
	if err := d.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest))
		return
	}
	cmd, err := toCommand(req)
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}

	reply, err := h.deps.Submit(r.Context(), cmd)
	if err != nil {
		status, code := classify(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "action failed",
				logger.String("verb", string(cmd.Verb)),
				logger.String("channel", cmd.Channel),
				logger.Error(err))
		}
		writeError(w, status, code, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toResponse(reply, time.Now()))
}

func toCommand(req types.ActionRequest) (model.Command, error) {
	verb, err := model.ParseVerb(req.Verb)
	if err != nil {
		return model.Command{}, err
	}
	cmd := model.Command{
		ID:       req.ID,
		Verb:     verb,
		Channel:  req.Channel,
		Nick:     req.Nick,
		Hostmask: req.Hostmask,
		Target:   req.Target,
		Subject:  req.Subject,
		Kind:     req.Kind,
	}
	if err := cmd.Validate(); err != nil {
		return model.Command{}, err
	}
	return cmd, nil
}

func toResponse(reply model.Reply, now time.Time) types.ActionResponse {
	var out types.ActionResponse
	if reply.Result != nil {
		out = types.FromResult(reply.Result, now)
	}
	out.ID = reply.CommandID
	out.Verb = string(reply.Verb)
	out.Channel = reply.Channel
	if len(reply.Ducks) > 0 {
		out.Ducks = types.FromDucks(reply.Ducks)
	}
	if len(reply.Affected) > 0 {
		out.Affected = reply.Affected
	}
	out.Changed = reply.Changed
	return out
}
