// Package deviceapi is the local read path: device state, transaction
// history, command injection and, on simulated boards, the input pins.
package deviceapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kumbara-device-go/internal/domain/device/model"
	"kumbara-device-go/internal/platform/logging"
	"kumbara-device-go/internal/platform/storage"
	httptransport "kumbara-device-go/internal/transport/http"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	maxCoinsPerRequest  = 50
)

type Device interface {
	Snapshot() model.Snapshot
	Deliver(ctx context.Context, payload []byte) error
}

type History interface {
	Recent(ctx context.Context, limit int) ([]storage.TransactionLog, error)
}

// Board is the simulated input surface.
type Board interface {
	InsertCoin(n int)
	SetButton(pressed bool)
	HoldButton(d time.Duration)
}

type Service struct {
	device  Device
	history History
	board   Board
	logger  *logging.Logger
}

// NewService wires the handlers. history and board may be nil; their
// routes are then left out.
func NewService(device Device, history History, board Board, logger *logging.Logger) (*Service, error) {
	if device == nil {
		return nil, errors.New("deviceapi: device is required")
	}
	if logger == nil {
		return nil, errors.New("deviceapi: logger is required")
	}
	return &Service{device: device, history: history, board: board, logger: logger}, nil
}

func (s *Service) Register(_ context.Context, router *gin.RouterGroup) {
	dev := router.Group("/device")
	dev.GET("/state", s.handleState)
	dev.POST("/command", s.handleCommand)
	if s.history != nil {
		dev.GET("/transactions", s.handleTransactions)
	}

	if s.board != nil {
		sim := router.Group("/sim")
		sim.POST("/coin", s.handleCoin)
		sim.POST("/button", s.handleButton)
	}
	s.logger.InfoTag(logging.TagHTTP, "device api routes registered (simulation=%t)", s.board != nil)
}

func (s *Service) handleState(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, s.device.Snapshot(), "")
}

// handleCommand feeds the body to the control channel exactly like a
// companion frame. Malformed payloads are still accepted and dropped later.
func (s *Service) handleCommand(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil || len(payload) == 0 {
		httptransport.RespondError(c, http.StatusBadRequest, "empty command", gin.H{})
		return
	}
	if err := s.device.Deliver(c.Request.Context(), payload); err != nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, err.Error(), gin.H{})
		return
	}
	httptransport.RespondSuccess(c, http.StatusAccepted, gin.H{}, "queued")
}

func (s *Service) handleTransactions(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httptransport.RespondError(c, http.StatusBadRequest, "invalid limit", gin.H{})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	logs, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		s.logger.ErrorTag(logging.TagHTTP, "load transaction history: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "history unavailable", gin.H{})
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, logs, "")
}

type coinRequest struct {
	Count int `json:"count"`
}

func (s *Service) handleCoin(c *gin.Context) {
	req := coinRequest{Count: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httptransport.RespondError(c, http.StatusBadRequest, "invalid body", gin.H{"error": err.Error()})
			return
		}
	}
	if req.Count <= 0 || req.Count > maxCoinsPerRequest {
		httptransport.RespondError(c, http.StatusBadRequest, "count out of range", gin.H{})
		return
	}
	s.board.InsertCoin(req.Count)
	httptransport.RespondSuccess(c, http.StatusAccepted, gin.H{"count": req.Count}, "")
}

type buttonRequest struct {
	Pressed *bool `json:"pressed"`
	HoldMs  int   `json:"holdMs"`
}

func (s *Service) handleButton(c *gin.Context) {
	var req buttonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "invalid body", gin.H{"error": err.Error()})
		return
	}
	switch {
	case req.HoldMs > 0:
		s.board.HoldButton(time.Duration(req.HoldMs) * time.Millisecond)
	case req.Pressed != nil:
		s.board.SetButton(*req.Pressed)
	default:
		httptransport.RespondError(c, http.StatusBadRequest, "pressed or holdMs required", gin.H{})
		return
	}
	httptransport.RespondSuccess(c, http.StatusAccepted, gin.H{}, "")
}
