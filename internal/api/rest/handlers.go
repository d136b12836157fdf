package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathangreen1632/MineralCache-sub000/internal/api/websocket"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/watchlist"
)

// Handler exposes the auction engine over HTTP
type Handler struct {
	bids             *bidding.Service
	watchlist        *watchlist.Service
	ws               *websocket.Handler
	auth             *AuthMiddleware
	validate         *validator.Validate
	logger           *zap.Logger
	defaultIncrement int64
	clock            func() time.Time
}

// NewHandler wires the REST handlers
func NewHandler(
	bids *bidding.Service,
	wl *watchlist.Service,
	ws *websocket.Handler,
	auth *AuthMiddleware,
	defaultIncrementCents int64,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bids:             bids,
		watchlist:        wl,
		ws:               ws,
		auth:             auth,
		validate:         validator.New(),
		logger:           logger,
		defaultIncrement: defaultIncrementCents,
		clock:            func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRoutes mounts all endpoints on the mux. Reads are public; every
// mutation requires a valid token.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	public := func(fn http.HandlerFunc) http.Handler { return fn }
	private := func(fn http.HandlerFunc) http.Handler { return h.auth.Require(fn) }

	mux.Handle("GET /healthz", public(h.handleHealth))
	mux.Handle("GET /api/v1/auctions/{id}", public(h.handleGetAuction))
	mux.Handle("GET /api/v1/auctions/{id}/bids", public(h.handleListBids))
	mux.Handle("GET /api/v1/auctions/{id}/next-min", public(h.handleNextMin))

	mux.Handle("POST /api/v1/auctions", private(h.handleCreateAuction))
	mux.Handle("PATCH /api/v1/auctions/{id}", private(h.handleEditAuction))
	mux.Handle("POST /api/v1/auctions/{id}/publish", private(h.handlePublishAuction))
	mux.Handle("POST /api/v1/auctions/{id}/bids", private(h.handlePlaceBid))
	mux.Handle("POST /api/v1/auctions/{id}/buy-now", private(h.handleBuyNow))
	mux.Handle("POST /api/v1/auctions/{id}/close", private(h.handleClose))
	mux.Handle("POST /api/v1/auctions/{id}/cancel", private(h.handleCancel))

	mux.Handle("GET /api/v1/watchlist", private(h.handleListWatchlist))
	mux.Handle("PUT /api/v1/watchlist/{id}", private(h.handleWatch))
	mux.Handle("DELETE /api/v1/watchlist/{id}", private(h.handleUnwatch))

	mux.Handle("GET /ws/auctions/{id}",
		h.auth.Authenticate(h.ws.HandleAuctionRoom(h.auth.Identity)))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.bids.GetAuction(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionView(a, h.defaultIncrement, h.clock()))
}

func (h *Handler) handleListBids(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	bids, err := h.bids.ListBids(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": toBidViews(bids)})
}

func (h *Handler) handleNextMin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	next, err := h.bids.NextMin(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nextMinView{AuctionID: id, NextMinCents: next})
}

func (h *Handler) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	var req createAuctionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ladder := make([]auction.LadderTier, 0, len(req.Ladder))
	for _, t := range req.Ladder {
		ladder = append(ladder, auction.LadderTier{
			ThresholdCents: t.ThresholdCents,
			IncrementCents: t.IncrementCents,
		})
	}
	a, err := h.bids.CreateAuction(r.Context(),
		req.ListingID, claims.UserID, req.Title,
		req.StartingBidCents, req.ReserveCents, req.BuyNowCents, ladder)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuctionView(a, h.defaultIncrement, h.clock()))
}

func (h *Handler) handleEditAuction(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req editAuctionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	edits := bidding.AuctionEdits{
		Title:            req.Title,
		StartingBidCents: req.StartingBidCents,
		ReserveCents:     req.ReserveCents,
		ClearReserve:     req.ClearReserve,
		BuyNowCents:      req.BuyNowCents,
		ClearBuyNow:      req.ClearBuyNow,
	}
	if req.Ladder != nil {
		edits.Ladder = make([]auction.LadderTier, 0, len(req.Ladder))
		for _, t := range req.Ladder {
			edits.Ladder = append(edits.Ladder, auction.LadderTier{
				ThresholdCents: t.ThresholdCents,
				IncrementCents: t.IncrementCents,
			})
		}
	}
	a, err := h.bids.EditAuction(r.Context(), id, claims.UserID, roleFromClaims(claims), edits)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionView(a, h.defaultIncrement, h.clock()))
}

func (h *Handler) handlePublishAuction(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req publishAuctionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.bids.PublishAuction(r.Context(), id, claims.UserID,
		roleFromClaims(claims), req.StartAt, req.EndAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionView(a, h.defaultIncrement, h.clock()))
}

func (h *Handler) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	if !claims.AgeVerified {
		writeError(w, errors.ErrNotEligible)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req placeBidRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.bids.PlaceBid(r.Context(), id, claims.UserID, req.MaxProxyCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBidResultView(result))
}

func (h *Handler) handleBuyNow(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	if !claims.AgeVerified {
		writeError(w, errors.ErrNotEligible)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.bids.BuyNow(r.Context(), id, claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBidResultView(result))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, false)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.terminate(w, r, true)
}

func (h *Handler) terminate(w http.ResponseWriter, r *http.Request, cancel bool) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var a *auction.Auction
	if cancel {
		a, err = h.bids.Cancel(r.Context(), id, claims.UserID, roleFromClaims(claims))
	} else {
		a, err = h.bids.Close(r.Context(), id, claims.UserID, roleFromClaims(claims))
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuctionView(a, h.defaultIncrement, h.clock()))
}

func (h *Handler) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	ids, err := h.watchlist.List(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, watchlistView{AuctionIDs: ids})
}

func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	// Watching requires the auction to exist; a dangling watch is harmless
	// but confusing in the UI.
	if _, err := h.bids.GetAuction(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := h.watchlist.Watch(r.Context(), claims.UserID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.watchlist.Unwatch(r.Context(), claims.UserID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewValidationError("INVALID_BODY", "request body is not valid JSON")
	}
	if err := h.validate.Struct(v); err != nil {
		return errors.NewValidationError("INVALID_REQUEST", err.Error())
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.NewValidationError("INVALID_ID", "path id must be a UUID")
	}
	return id, nil
}
