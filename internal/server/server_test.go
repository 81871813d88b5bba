package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/logging"
	"github.com/lherron/boardq/internal/store"
	"github.com/lherron/boardq/internal/testutil"
	"github.com/lherron/boardq/internal/webhooks"
)

func newTestServer(t *testing.T, token string) (*echo.Echo, *store.Store) {
	t.Helper()
	s := store.New(testutil.TempDatabase(t))
	e := New(Options{Directory: s, Remote: s, Token: token, Logger: logging.Discard()})
	return e, s
}

// seedBoard creates B-00001 with "Todo" (K-00001, K-00002) and "Done" (K-00003).
func seedBoard(t *testing.T, s *store.Store) domain.Board {
	t.Helper()
	ctx := context.Background()
	b, err := s.CreateBoard(ctx, "Sprint")
	require.NoError(t, err)
	todo, err := s.CreateColumn(ctx, domain.Column{BoardID: b.ID, Title: "Todo"})
	require.NoError(t, err)
	done, err := s.CreateColumn(ctx, domain.Column{BoardID: b.ID, Title: "Done"})
	require.NoError(t, err)
	for _, c := range []domain.Card{
		{ColumnID: todo.ID, Title: "Write"},
		{ColumnID: todo.ID, Title: "Review"},
		{ColumnID: done.ID, Title: "Ship"},
	} {
		_, err := s.CreateCard(ctx, c)
		require.NoError(t, err)
	}
	b, err = s.FetchBoard(ctx, b.ID)
	require.NoError(t, err)
	return b
}

func do(e *echo.Echo, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBoard(t *testing.T, rec *httptest.ResponseRecorder) domain.Board {
	t.Helper()
	var b domain.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b), rec.Body.String())
	return b
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, "secret")
	rec := do(e, http.MethodGet, "/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAuth(t *testing.T) {
	e, _ := newTestServer(t, "secret")

	rec := do(e, http.MethodGet, "/v1/boards", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/v1/boards", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/v1/boards", "", "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/v1/boards", "", "X-Boardq-Token", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateAndListBoards(t *testing.T) {
	e, _ := newTestServer(t, "")

	rec := do(e, http.MethodPost, "/v1/boards", `{"title":"  Roadmap "}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decodeBoard(t, rec)
	assert.Equal(t, "B-00001", b.ID)
	assert.Equal(t, "Roadmap", b.Title)

	rec = do(e, http.MethodPost, "/v1/boards", `{"title":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"title"`)

	rec = do(e, http.MethodGet, "/v1/boards", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Boards []domain.Board `json:"boards"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Boards, 1)
	assert.Equal(t, "Roadmap", out.Boards[0].Title)
}

func TestGetBoard(t *testing.T) {
	e, s := newTestServer(t, "")
	seeded := seedBoard(t, s)

	rec := do(e, http.MethodGet, "/v1/boards/"+seeded.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	b := decodeBoard(t, rec)
	assert.Equal(t, domain.OrderList{"L-00001", "L-00002"}, b.ColumnOrder)
	require.NoError(t, domain.CheckBoard(b))

	rec = do(e, http.MethodGet, "/v1/boards/B-09999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestColumnLifecycle(t *testing.T) {
	e, s := newTestServer(t, "")
	seedBoard(t, s)

	rec := do(e, http.MethodPost, "/v1/boards/B-00001/columns", `{"title":"Review"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decodeBoard(t, rec)
	assert.Equal(t, domain.OrderList{"L-00001", "L-00002", "L-00003"}, b.ColumnOrder)

	rec = do(e, http.MethodPatch, "/v1/boards/B-00001/columns/L-00003", `{"title":"QA"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	col, ok := decodeBoard(t, rec).Column("L-00003")
	require.True(t, ok)
	assert.Equal(t, "QA", col.Title)

	rec = do(e, http.MethodDelete, "/v1/boards/B-00001/columns/L-00001", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderList{"L-00002", "L-00003"}, decodeBoard(t, rec).ColumnOrder)

	fetched, err := s.FetchBoard(context.Background(), "B-00001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderList{"L-00002", "L-00003"}, fetched.ColumnOrder)
	_, _, found := fetched.FindCard("K-00001")
	assert.False(t, found, "cards of a deleted column are tombstoned")

	rec = do(e, http.MethodPatch, "/v1/boards/B-00001/columns/L-00099", `{"title":"Nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardLifecycle(t *testing.T) {
	e, s := newTestServer(t, "")
	seedBoard(t, s)

	rec := do(e, http.MethodPost, "/v1/boards/B-00001/columns/L-00002/cards", `{"title":"Celebrate","cover":"party.png"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	done, _ := decodeBoard(t, rec).Column("L-00002")
	assert.Equal(t, domain.OrderList{"K-00003", "K-00004"}, done.CardOrder)
	require.NotNil(t, done.Cards[1].Cover)
	assert.Equal(t, "party.png", *done.Cards[1].Cover)

	rec = do(e, http.MethodPatch, "/v1/boards/B-00001/cards/K-00001", `{"title":"Draft"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	card, _, ok := decodeBoard(t, rec).FindCard("K-00001")
	require.True(t, ok)
	assert.Equal(t, "Draft", card.Title)

	rec = do(e, http.MethodDelete, "/v1/boards/B-00001/cards/K-00002", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	todo, _ := decodeBoard(t, rec).Column("L-00001")
	assert.Equal(t, domain.OrderList{"K-00001"}, todo.CardOrder)

	rec = do(e, http.MethodDelete, "/v1/boards/B-00001/cards/K-00002", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenameToSameTitleIsNoop(t *testing.T) {
	e, s := newTestServer(t, "")
	seedBoard(t, s)

	rec := do(e, http.MethodPatch, "/v1/boards/B-00001", `{"title":"Sprint"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), decodeBoard(t, rec).ETag)

	rec = do(e, http.MethodPatch, "/v1/boards/B-00001", `{"title":"Sprint 2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	b := decodeBoard(t, rec)
	assert.Equal(t, "Sprint 2", b.Title)
	assert.Equal(t, int64(2), b.ETag)
}

func TestDropColumn(t *testing.T) {
	e, s := newTestServer(t, "")
	seedBoard(t, s)

	rec := do(e, http.MethodPost, "/v1/boards/B-00001/drops/columns", `{"removed_index":0,"added_index":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderList{"L-00002", "L-00001"}, decodeBoard(t, rec).ColumnOrder)

	fetched, err := s.FetchBoard(context.Background(), "B-00001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderList{"L-00002", "L-00001"}, fetched.ColumnOrder)
}

func TestDropCard(t *testing.T) {
	e, s := newTestServer(t, "")
	seedBoard(t, s)

	body := `{"source_key":"L-00001","removed_index":1,"target_key":"L-00002","added_index":0}`
	rec := do(e, http.MethodPost, "/v1/boards/B-00001/drops/cards", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fetched, err := s.FetchBoard(context.Background(), "B-00001")
	require.NoError(t, err)
	todo, _ := fetched.Column("L-00001")
	done, _ := fetched.Column("L-00002")
	assert.Equal(t, domain.OrderList{"K-00001"}, todo.CardOrder)
	assert.Equal(t, domain.OrderList{"K-00002", "K-00003"}, done.CardOrder)
	card, colID, ok := fetched.FindCard("K-00002")
	require.True(t, ok)
	assert.Equal(t, "L-00002", colID)
	assert.Equal(t, "L-00002", card.ColumnID)
}

func TestDropErrors(t *testing.T) {
	e, s := newTestServer(t, "")
	seedBoard(t, s)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"half drag", "/v1/boards/B-00001/drops/columns", `{"removed_index":0}`, http.StatusBadRequest},
		{"index out of range", "/v1/boards/B-00001/drops/columns", `{"removed_index":7,"added_index":0}`, http.StatusBadRequest},
		{"unknown source", "/v1/boards/B-00001/drops/cards", `{"source_key":"L-00042","removed_index":0,"added_index":0}`, http.StatusNotFound},
		{"malformed", "/v1/boards/B-00001/drops/cards", `{"removed_index":`, http.StatusBadRequest},
		{"no-op", "/v1/boards/B-00001/drops/cards", `{"source_key":"L-00001"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestEvents(t *testing.T) {
	e, s := newTestServer(t, "")
	seedBoard(t, s)

	rec := do(e, http.MethodGet, "/v1/boards/B-00001/events?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Events     []domain.Event `json:"events"`
		NextCursor string         `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Events, 2)
	assert.Equal(t, "card.created", out.Events[1].EventType)
	require.NotEmpty(t, out.NextCursor)

	rec = do(e, http.MethodGet, "/v1/boards/B-00001/events?limit=10&cursor="+out.NextCursor, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rest struct {
		Events     []domain.Event `json:"events"`
		NextCursor string         `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rest))
	assert.Len(t, rest.Events, 4)
	assert.Empty(t, rest.NextCursor)

	rec = do(e, http.MethodGet, "/v1/boards/B-00001/events?cursor=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/v1/boards/B-00001/events?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotifiesWebhooks(t *testing.T) {
	got := make(chan webhooks.Payload, 4)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhooks.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		got <- p
	}))
	defer hook.Close()

	s := store.New(testutil.TempDatabase(t))
	seedBoard(t, s)
	e := New(Options{
		Directory: s,
		Remote:    s,
		Notifier:  webhooks.New([]string{hook.URL + "/{board_id}"}, logging.Discard()),
		Logger:    logging.Discard(),
	})

	rec := do(e, http.MethodPatch, "/v1/boards/B-00001/cards/K-00001", `{"title":"Draft"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	select {
	case p := <-got:
		assert.Equal(t, "B-00001", p.BoardID)
		assert.Equal(t, "rename_card", p.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
	}

	// A no-op is not a change.
	rec = do(e, http.MethodPatch, "/v1/boards/B-00001/cards/K-00001", `{"title":"Draft"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	select {
	case p := <-got:
		t.Fatalf("unexpected notification %+v", p)
	case <-time.After(100 * time.Millisecond):
	}
}
