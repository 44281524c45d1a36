package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"github.com/vadiminshakov/papertrade/internal/services/accounts"
	"github.com/vadiminshakov/papertrade/internal/services/trades"
)

const maxRequestBodyBytes = 64 << 10

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest accepts the login in either field; username may also hold an email.
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tradeRequest struct {
	Pair     string          `json:"pair"`
	Side     string          `json:"side"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   ServiceVersion,
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !s.bind(c, &req) {
		return
	}

	session, err := s.deps.Accounts.Register(c.Request.Context(), accounts.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !s.bind(c, &req) {
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}

	session, err := s.deps.Accounts.Login(c.Request.Context(), login, req.Password)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (s *Server) handleMe(c *gin.Context) {
	user, err := s.deps.Accounts.Me(c.Request.Context(), c.GetString(UserIDContextKey))
	if err != nil {
		// a valid token for a deleted user carries no identity
		if errors.Is(err, domain.ErrNotFound) {
			err = errors.Wrap(domain.ErrUnauthenticated, "user no longer exists")
		}
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) handleTicker(c *gin.Context) {
	quote, err := s.deps.Market.GetTicker(c.Request.Context(), c.Param("pair"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

func (s *Server) handleCandles(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, s.logger, errors.Wrapf(domain.ErrValidation, "limit %q is not a number", raw))
			return
		}
		limit = n
	}

	series, err := s.deps.Market.GetCandles(c.Request.Context(), c.Param("pair"), c.Param("timeframe"), limit)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, series)
}

func (s *Server) handleExecuteTrade(c *gin.Context) {
	var req tradeRequest
	if !s.bind(c, &req) {
		return
	}

	side, err := domain.ParseSide(req.Side)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	exec, err := s.deps.Trades.RecordTrade(c.Request.Context(), trades.Order{
		UserID:   c.GetString(UserIDContextKey),
		Pair:     req.Pair,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		respondError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusCreated, exec)
}

func (s *Server) handleTradeHistory(c *gin.Context) {
	history, err := s.deps.Trades.History(c.Request.Context(), c.GetString(UserIDContextKey))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if history == nil {
		history = []domain.Trade{}
	}

	c.JSON(http.StatusOK, history)
}

// bind decodes the JSON body into dst and answers 400 on failure.
func (s *Server) bind(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, s.logger, errors.Wrapf(domain.ErrValidation, "malformed request body: %v", err))
		return false
	}
	return true
}
