package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// EconomyDependencies defines the currency and inventory primitives.
type EconomyDependencies interface {
	CreditCoins(ctx context.Context, channel, nick string, amount int64) (int64, error)
	DebitCoins(ctx context.Context, channel, nick string, amount int64) (int64, error)
	AddItem(ctx context.Context, channel, nick, item string, n int) (int, error)
	RemoveItem(ctx context.Context, channel, nick, item string, n int) (int, error)
}

// EconomyHandler handles coin and item adjustments.
type EconomyHandler struct {
	deps EconomyDependencies
}

// NewEconomyHandler creates a new economy handler.
func NewEconomyHandler(deps EconomyDependencies) *EconomyHandler {
	return &EconomyHandler{deps: deps}
}

type coinsRequest struct {
	// Delta is credited when positive and debited when negative.
	Delta int64 `json:"delta"`
}

type coinsResponse struct {
	Nick    string `json:"nick"`
	Balance int64  `json:"balance"`
}

type itemsRequest struct {
	Item  string `json:"item"`
	Delta int    `json:"delta"`
}

type itemsResponse struct {
	Nick  string `json:"nick"`
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// HandleCoins handles POST /v1/channels/{channel}/players/{nick}/coins requests.
func (h *EconomyHandler) HandleCoins(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_coins"
	var req coinsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest))
		return
	}
	ch, nick := channelParam(r), r.PathValue("nick")

	var (
		balance int64
		err     error
	)
	if req.Delta > 0 {
		balance, err = h.deps.CreditCoins(r.Context(), ch, nick, req.Delta)
	} else {
		balance, err = h.deps.DebitCoins(r.Context(), ch, nick, -req.Delta)
	}
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, coinsResponse{Nick: nick, Balance: balance})
}

// HandleItems handles POST /v1/channels/{channel}/players/{nick}/items requests.
func (h *EconomyHandler) HandleItems(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_items"
	var req itemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Delta == 0 || strings.TrimSpace(req.Item) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrap(op, ErrBadRequest))
		return
	}
	req.Item = strings.TrimSpace(req.Item)
	ch, nick := channelParam(r), r.PathValue("nick")

	var (
		count int
		err   error
	)
	if req.Delta > 0 {
		count, err = h.deps.AddItem(r.Context(), ch, nick, req.Item, req.Delta)
	} else {
		count, err = h.deps.RemoveItem(r.Context(), ch, nick, req.Item, -req.Delta)
	}
	if err != nil {
		writeFailure(w, wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, itemsResponse{Nick: nick, Item: req.Item, Count: count})
}
