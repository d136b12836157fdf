package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nathangreen1632/MineralCache-sub000/internal/api/rest"
	"github.com/nathangreen1632/MineralCache-sub000/internal/api/websocket"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/infrastructure/config"
	"github.com/nathangreen1632/MineralCache-sub000/internal/metrics"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/watchlist"
	"github.com/nathangreen1632/MineralCache-sub000/internal/testutil"
)

const testSecret = "unit-test-secret"

type apiFixture struct {
	srv    *httptest.Server
	store  *testutil.MemStore
	auth   *rest.AuthMiddleware
	engine *bidding.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	store := testutil.NewMemStore()
	actors := bidding.NewActorRegistry(time.Second, logger)
	t.Cleanup(actors.Close)

	m := metrics.NewAuction(prometheus.NewRegistry())
	hub := websocket.NewAuctionEventHub(config.BroadcasterConfig{}, m, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	engine := bidding.NewService(store, actors, hub, nil, nil, m,
		bidding.DefaultPolicy(), logger)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })
	wl := watchlist.NewService(redisClient, logger)

	auth := rest.NewAuthMiddleware(testSecret)
	handler := rest.NewHandler(engine, wl, websocket.NewHandler(hub, logger), auth, 100, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &apiFixture{srv: srv, store: store, auth: auth, engine: engine}
}

func (f *apiFixture) token(t *testing.T, userID uuid.UUID, role string, ageVerified bool) string {
	t.Helper()
	token, err := f.auth.IssueToken(userID, role, ageVerified, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) seedLive(startingCents int64) *auction.Auction {
	a := auction.New(uuid.New(), uuid.New(), "Malachite stalactite", startingCents)
	a.Status = auction.StatusLive
	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)
	a.StartAt = &start
	a.EndAt = &end
	a.InitialEndAt = &end
	f.store.Seed(a)
	return a
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGetAuction_PublicProjection(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	reserve := int64(5000)
	a.ReserveCents = &reserve
	f.store.Seed(a)

	resp := f.do(t, http.MethodGet, "/api/v1/auctions/"+a.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	assert.Equal(t, a.ID.String(), body["id"])
	assert.Equal(t, "live", body["status"])
	assert.Equal(t, float64(1000), body["next_min_cents"])
	assert.Equal(t, "$10.00", body["price_display"])
	assert.Equal(t, true, body["has_reserve"])
	assert.Equal(t, false, body["reserve_met"])
	_, leaked := body["reserve_cents"]
	assert.False(t, leaked, "the reserve amount never leaves the server")
}

func TestGetAuction_NotFound(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/api/v1/auctions/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGetAuction_InvalidID(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/api/v1/auctions/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPlaceBid_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/bids", "",
		map[string]interface{}{"max_proxy_cents": 5000})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPlaceBid_RequiresAgeVerification(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	token := f.token(t, uuid.New(), "bidder", false)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/bids", token,
		map[string]interface{}{"max_proxy_cents": 5000})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPlaceBid_Succeeds(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	bidder := uuid.New()
	token := f.token(t, bidder, "bidder", true)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/bids", token,
		map[string]interface{}{"max_proxy_cents": 5000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	assert.Equal(t, true, body["you_lead"])
	assert.Equal(t, float64(1000), body["visible_price_cents"])
	assert.Equal(t, float64(1100), body["next_min_cents"])
	assert.Equal(t, bidder.String(), body["leader_id"])
}

func TestPlaceBid_TooLowCarriesNextMin(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	token := f.token(t, uuid.New(), "bidder", true)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/bids", token,
		map[string]interface{}{"max_proxy_cents": 500})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeBody(t, resp)

	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, "BID_TOO_LOW", errObj["code"])
	details := errObj["details"].(map[string]interface{})
	assert.Equal(t, float64(1000), details["next_min_cents"])
}

func TestPlaceBid_MalformedBody(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	token := f.token(t, uuid.New(), "bidder", true)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/bids", token,
		map[string]interface{}{"max_proxy_cents": 5000, "surprise": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateAndPublishAuction(t *testing.T) {
	f := newAPIFixture(t)
	seller := uuid.New()
	token := f.token(t, seller, "seller", true)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions", token, map[string]interface{}{
		"listing_id":         uuid.NewString(),
		"title":              "Azurite with malachite",
		"starting_bid_cents": 2500,
		"buy_now_cents":      50000,
		"increment_ladder": []map[string]interface{}{
			{"threshold_cents": 0, "increment_cents": 100},
			{"threshold_cents": 10000, "increment_cents": 500},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody(t, resp)
	assert.Equal(t, "draft", created["status"])
	id := created["id"].(string)

	resp = f.do(t, http.MethodPost, "/api/v1/auctions/"+id+"/publish", token, map[string]interface{}{
		"start_at": time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
		"end_at":   time.Now().UTC().Add(25 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	published := decodeBody(t, resp)
	assert.Equal(t, "scheduled", published["status"])
}

func TestPublishAuction_OwnerOnly(t *testing.T) {
	f := newAPIFixture(t)
	a := auction.New(uuid.New(), uuid.New(), "Pyrite cube", 1000)
	f.store.Seed(a)
	stranger := f.token(t, uuid.New(), "seller", true)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/publish", stranger,
		map[string]interface{}{
			"start_at": time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
			"end_at":   time.Now().UTC().Add(2 * time.Hour).Format(time.RFC3339),
		})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestCloseAuction_Idempotent(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	token := f.token(t, a.SellerID, "seller", true)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/close", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeBody(t, resp)
	assert.Equal(t, "ended", first["status"])

	resp = f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/close", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decodeBody(t, resp)
	assert.Equal(t, "ended", second["status"])
}

func TestWatchlistFlow(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	user := uuid.New()
	token := f.token(t, user, "bidder", true)

	resp := f.do(t, http.MethodPut, "/api/v1/watchlist/"+a.ID.String(), token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/v1/watchlist", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	ids := body["auction_ids"].([]interface{})
	require.Len(t, ids, 1)
	assert.Equal(t, a.ID.String(), ids[0])

	resp = f.do(t, http.MethodDelete, "/api/v1/watchlist/"+a.ID.String(), token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/v1/watchlist", token, nil)
	body = decodeBody(t, resp)
	assert.Empty(t, body["auction_ids"])
}

func TestWatchlist_UnknownAuctionRejected(t *testing.T) {
	f := newAPIFixture(t)
	token := f.token(t, uuid.New(), "bidder", true)

	resp := f.do(t, http.MethodPut, "/api/v1/watchlist/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestNextMinEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	leader := uuid.New()
	visible := int64(2000)
	a.HighBidCents = &visible
	a.HighBidderID = &leader
	f.store.Seed(a)

	resp := f.do(t, http.MethodGet, "/api/v1/auctions/"+a.ID.String()+"/next-min", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(2100), body["next_min_cents"])
}

func TestListBids_HidesProxyCeilings(t *testing.T) {
	f := newAPIFixture(t)
	a := f.seedLive(1000)
	token := f.token(t, uuid.New(), "bidder", true)

	resp := f.do(t, http.MethodPost, "/api/v1/auctions/"+a.ID.String()+"/bids", token,
		map[string]interface{}{"max_proxy_cents": 5000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.do(t, http.MethodGet, "/api/v1/auctions/"+a.ID.String()+"/bids", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	bids := body["bids"].([]interface{})
	require.Len(t, bids, 1)
	bid := bids[0].(map[string]interface{})
	assert.Equal(t, float64(1000), bid["visible_price_cents"])
	_, leaked := bid["max_proxy_cents"]
	assert.False(t, leaked, "proxy ceilings never appear in the ledger projection")
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
