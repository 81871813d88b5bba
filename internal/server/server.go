// Package server exposes boards over HTTP for boardqd.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/lherron/boardq/internal/domain"
	"github.com/lherron/boardq/internal/optimistic"
	"github.com/lherron/boardq/internal/webhooks"
)

// Directory lists, creates and audits boards. The store satisfies it.
type Directory interface {
	CreateBoard(ctx context.Context, title string) (domain.Board, error)
	ListBoards(ctx context.Context) ([]domain.Board, error)
	EventsPage(ctx context.Context, boardID string, limit int, after string) ([]domain.Event, string, error)
}

// Options configures the HTTP API.
type Options struct {
	Directory Directory
	// Remote persists board edits; usually the Redis cache wrapping the store.
	Remote optimistic.Remote
	Token  string
	// Notifier is told about every confirmed change. Optional.
	Notifier *webhooks.Notifier
	Logger   *log.Logger
}

type server struct {
	dir    Directory
	coord  *optimistic.Coordinator
	notify *webhooks.Notifier
	token  string
	log    *log.Logger
}

// New returns an Echo instance with all routes registered.
func New(opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Boardq-Token"},
	}))
	Register(e, opts)
	return e
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, opts Options) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &server{
		dir:    opts.Directory,
		coord:  optimistic.New(opts.Remote, logger),
		notify: opts.Notifier,
		token:  opts.Token,
		log:    logger,
	}

	e.GET("/v1/health", s.health)

	g := e.Group("/v1/boards", s.requestLog, s.auth)
	g.GET("", s.listBoards)
	g.POST("", s.createBoard)
	g.GET("/:id", s.getBoard)
	g.PATCH("/:id", s.renameBoard)
	g.GET("/:id/events", s.events)
	g.POST("/:id/columns", s.createColumn)
	g.PATCH("/:id/columns/:col", s.renameColumn)
	g.DELETE("/:id/columns/:col", s.deleteColumn)
	g.POST("/:id/columns/:col/cards", s.createCard)
	g.PATCH("/:id/cards/:card", s.renameCard)
	g.DELETE("/:id/cards/:card", s.deleteCard)
	g.POST("/:id/drops/columns", s.dropColumn)
	g.POST("/:id/drops/cards", s.dropCard)
}

func (s *server) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.token == "" {
			return next(c)
		}
		token := strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if token == "" {
			token = c.Request().Header.Get("X-Boardq-Token")
		}
		if token != s.token {
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		}
		return next(c)
	}
}

func (s *server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.log.WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": c.Response().Status,
		}).Debug("request")
		return err
	}
}

func (s *server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "in_flight": s.coord.InFlight()})
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// fail maps engine and store errors onto HTTP statuses.
func (s *server) fail(c echo.Context, err error) error {
	var (
		verr     *domain.ValidationError
		mismatch *domain.ETagMismatchError
		oerr     *domain.OrderConsistencyError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Field: verr.Field})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &mismatch), errors.As(err, &oerr):
		return c.JSON(http.StatusConflict, errorBody{Error: err.Error()})
	}
	s.log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
}

func (s *server) listBoards(c echo.Context) error {
	boards, err := s.dir.ListBoards(c.Request().Context())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"boards": boards})
}

type titleRequest struct {
	Title string  `json:"title"`
	Cover *string `json:"cover,omitempty"`
}

func (s *server) createBoard(c echo.Context) error {
	var req titleRequest
	if err := c.Bind(&req); err != nil {
		return s.fail(c, &domain.ValidationError{Field: "body", Reason: "malformed JSON"})
	}
	b, err := s.dir.CreateBoard(c.Request().Context(), req.Title)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (s *server) getBoard(c echo.Context) error {
	b, err := s.coord.Load(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (s *server) events(c echo.Context) error {
	limit := 50
	if v := strings.TrimSpace(c.QueryParam("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return s.fail(c, &domain.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
		}
		limit = n
	}
	evs, next, err := s.dir.EventsPage(c.Request().Context(), c.Param("id"), limit, c.QueryParam("cursor"))
	if err != nil {
		return s.fail(c, err)
	}
	body := map[string]any{"events": evs}
	if next != "" {
		body["next_cursor"] = next
	}
	return c.JSON(http.StatusOK, body)
}

// apply loads the board, syncs m and writes the resulting board. A mutation
// that changes nothing answers 200 with the board as loaded.
func (s *server) apply(c echo.Context, status int, build func(b domain.Board) (optimistic.Mutation, error)) error {
	ctx := c.Request().Context()
	b, err := s.coord.Load(ctx, c.Param("id"))
	if err != nil {
		return s.fail(c, err)
	}
	m, err := build(b)
	if err != nil {
		return s.fail(c, err)
	}
	out, err := s.coord.Sync(ctx, b, m)
	if errors.Is(err, optimistic.ErrNoop) {
		return c.JSON(http.StatusOK, b)
	}
	if err != nil {
		return s.fail(c, err)
	}
	go s.notify.Dispatch(context.Background(), webhooks.Payload{BoardID: out.ID, ETag: out.ETag, Op: string(m.Kind)})
	return c.JSON(status, out)
}

func bindTitle(c echo.Context) (titleRequest, error) {
	var req titleRequest
	if err := c.Bind(&req); err != nil {
		return req, &domain.ValidationError{Field: "body", Reason: "malformed JSON"}
	}
	return req, nil
}

func (s *server) renameBoard(c echo.Context) error {
	return s.apply(c, http.StatusOK, func(domain.Board) (optimistic.Mutation, error) {
		req, err := bindTitle(c)
		return optimistic.RenameBoard(req.Title), err
	})
}

func (s *server) createColumn(c echo.Context) error {
	return s.apply(c, http.StatusCreated, func(domain.Board) (optimistic.Mutation, error) {
		req, err := bindTitle(c)
		return optimistic.CreateColumn(req.Title), err
	})
}

func (s *server) renameColumn(c echo.Context) error {
	return s.apply(c, http.StatusOK, func(domain.Board) (optimistic.Mutation, error) {
		req, err := bindTitle(c)
		return optimistic.RenameColumn(c.Param("col"), req.Title), err
	})
}

func (s *server) deleteColumn(c echo.Context) error {
	return s.apply(c, http.StatusOK, func(domain.Board) (optimistic.Mutation, error) {
		return optimistic.DeleteColumn(c.Param("col")), nil
	})
}

func (s *server) createCard(c echo.Context) error {
	return s.apply(c, http.StatusCreated, func(domain.Board) (optimistic.Mutation, error) {
		req, err := bindTitle(c)
		return optimistic.CreateCard(c.Param("col"), req.Title, req.Cover), err
	})
}

func (s *server) renameCard(c echo.Context) error {
	return s.apply(c, http.StatusOK, func(domain.Board) (optimistic.Mutation, error) {
		req, err := bindTitle(c)
		return optimistic.RenameCard(c.Param("card"), req.Title), err
	})
}

func (s *server) deleteCard(c echo.Context) error {
	return s.apply(c, http.StatusOK, func(domain.Board) (optimistic.Mutation, error) {
		return optimistic.DeleteCard(c.Param("card")), nil
	})
}

func (s *server) dropColumn(c echo.Context) error {
	return s.apply(c, http.StatusOK, func(b domain.Board) (optimistic.Mutation, error) {
		var ev domain.DragEvent[domain.Column]
		if err := c.Bind(&ev); err != nil {
			return optimistic.Mutation{}, &domain.ValidationError{Field: "body", Reason: "malformed drag event"}
		}
		if ev.SourceKey == "" {
			ev.SourceKey = b.ID
		}
		return optimistic.MoveColumn(ev), nil
	})
}

func (s *server) dropCard(c echo.Context) error {
	return s.apply(c, http.StatusOK, func(domain.Board) (optimistic.Mutation, error) {
		var ev domain.DragEvent[domain.Card]
		if err := c.Bind(&ev); err != nil {
			return optimistic.Mutation{}, &domain.ValidationError{Field: "body", Reason: "malformed drag event"}
		}
		return optimistic.MoveCard(ev), nil
	})
}
