// Package api serves the study service over JSON/HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/medfocus/studycore/internal/domain"
	"github.com/medfocus/studycore/internal/progress"
	"github.com/medfocus/studycore/internal/study"
)

// UserHeader carries the caller's numeric user id.
const UserHeader = "X-User-ID"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	echo         *echo.Echo
	study        *study.Service
	ledger       *progress.Ledger
	db           Pinger
	historyLimit int
	logger       *slog.Logger
}

// NewServer creates and configures a new server. historyLimit is the page
// size used when a history request names none.
func NewServer(svc *study.Service, ledger *progress.Ledger, db Pinger, historyLimit int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &bodyValidator{v: validator.New(validator.WithRequiredStructEnabled())}

	s := &Server{
		echo:         e,
		study:        svc,
		ledger:       ledger,
		db:           db,
		historyLimit: historyLimit,
		logger:       logger,
	}
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(s.requestLogger())
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.echo.GET("/healthz", s.handleHealth())

	v1 := s.echo.Group("/api/v1")

	v1.GET("/decks", s.handleListDecks())
	v1.POST("/decks", s.handleCreateDeck())
	v1.POST("/decks/:deck/cards", s.handleAddCard())
	v1.GET("/decks/:deck/due", s.handleDue())
	v1.GET("/decks/:deck/stats", s.handleDeckStats())

	v1.POST("/cards/:card/review", s.handleReview())
	v1.POST("/cards/:card/reset", s.handleReset())

	v1.GET("/progress", s.handleProgress())
	v1.POST("/progress/activities", s.handleRecordActivity())
	v1.POST("/progress/daily-login", s.handleDailyLogin())
	v1.GET("/progress/history", s.handleHistory())
}

func (s *Server) handleHealth() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.db.Ping(c.Request().Context()); err != nil {
			s.logger.Error("health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "database unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

type createDeckRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Subject string `json:"subject" validate:"max=200"`
}

func (s *Server) handleCreateDeck() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		var req createDeckRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		deck, err := s.study.CreateDeck(c.Request().Context(), userID, req.Name, req.Subject)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, deck)
	}
}

func (s *Server) handleListDecks() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		decks, err := s.study.Decks(c.Request().Context(), userID)
		if err != nil {
			return err
		}
		if decks == nil {
			decks = []domain.Deck{}
		}
		return c.JSON(http.StatusOK, decks)
	}
}

type addCardRequest struct {
	Front string `json:"front" validate:"required"`
	Back  string `json:"back" validate:"required"`
}

// handleAddCard answers 201 for a new card and 200 when the deck already
// held the same content.
func (s *Server) handleAddCard() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		var req addCardRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		card, created, err := s.study.AddCard(c.Request().Context(), userID, c.Param("deck"), req.Front, req.Back)
		if err != nil {
			return err
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		return c.JSON(status, card)
	}
}

func (s *Server) handleDue() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		limit, err := intQuery(c, "limit", 0)
		if err != nil {
			return err
		}
		cards, err := s.study.Due(c.Request().Context(), userID, c.Param("deck"), limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, cards)
	}
}

func (s *Server) handleDeckStats() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		stats, err := s.study.Stats(c.Request().Context(), userID, c.Param("deck"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, stats)
	}
}

type reviewRequest struct {
	// Pointer so a missing grade is told apart from a zero grade.
	Quality *int `json:"quality" validate:"required"`
}

func (s *Server) handleReview() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		var req reviewRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		res, err := s.study.Review(c.Request().Context(), userID, c.Param("card"), *req.Quality)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, reviewResponse{
			Card:     res.Card,
			Progress: newProgressView(res.Progress.Progress),
			Entry:    res.Progress.Entry,
		})
	}
}

func (s *Server) handleReset() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		card, err := s.study.ResetCard(c.Request().Context(), userID, c.Param("card"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, card)
	}
}

func (s *Server) handleProgress() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		state, err := s.ledger.Progress(c.Request().Context(), userID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, newProgressView(state))
	}
}

// activityRequest caps client-supplied XP and minutes per call; the ledger
// still guards the running totals.
type activityRequest struct {
	Action      string `json:"action" validate:"required"`
	XP          *int   `json:"xp" validate:"omitnil,gte=0,lte=10000"`
	Description string `json:"description" validate:"max=500"`
	Minutes     int    `json:"minutes" validate:"gte=0,lte=1440"`
}

func (s *Server) handleRecordActivity() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		var req activityRequest
		if err := bindValid(c, &req); err != nil {
			return err
		}
		kind, err := domain.ParseActionKind(req.Action)
		if err != nil {
			return err
		}
		res, err := s.ledger.RecordActivity(c.Request().Context(), progress.Activity{
			UserID:      userID,
			Kind:        kind,
			XP:          req.XP,
			Description: req.Description,
			Minutes:     req.Minutes,
		})
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, activityResponse{
			Progress: newProgressView(res.Progress),
			Entry:    res.Entry,
			Unlocked: res.Unlocked,
		})
	}
}

// handleDailyLogin answers 201 when the reward was granted and 200 with the
// unchanged progress when it had already been claimed today.
func (s *Server) handleDailyLogin() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		res, claimed, err := s.ledger.ClaimDailyLogin(ctx, userID)
		if err != nil {
			return err
		}
		if !claimed {
			state, err := s.ledger.Progress(ctx, userID)
			if err != nil {
				return err
			}
			return c.JSON(http.StatusOK, dailyLoginResponse{Progress: newProgressView(state)})
		}
		return c.JSON(http.StatusCreated, dailyLoginResponse{
			Claimed:  true,
			Progress: newProgressView(res.Progress),
			Entry:    &res.Entry,
		})
	}
}

func (s *Server) handleHistory() echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := userFrom(c)
		if err != nil {
			return err
		}
		limit, err := intQuery(c, "limit", s.historyLimit)
		if err != nil {
			return err
		}
		entries, err := s.ledger.History(c.Request().Context(), userID, limit)
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []domain.ActivityLogEntry{}
		}
		return c.JSON(http.StatusOK, entries)
	}
}

// requestLogger writes one structured line per request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.Round(time.Microsecond),
			}
			if uid := c.Request().Header.Get(UserHeader); uid != "" {
				attrs = append(attrs, "user_id", uid)
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				s.logger.Error("request", append(attrs, "error", v.Error)...)
			case v.Error != nil:
				s.logger.Info("request", append(attrs, "error", v.Error.Error())...)
			default:
				s.logger.Info("request", attrs...)
			}
			return nil
		},
	})
}

func userFrom(c echo.Context) (int64, error) {
	raw := c.Request().Header.Get(UserHeader)
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "missing "+UserHeader+" header")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+UserHeader+" header")
	}
	return id, nil
}

func intQuery(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" parameter")
	}
	return n, nil
}

func bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}
