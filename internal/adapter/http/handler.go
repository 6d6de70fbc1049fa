package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"coinquest/internal/app/battle"
	"coinquest/internal/app/ports"
	"coinquest/internal/app/replay"
	"coinquest/internal/app/status"
)

// BattleService is the slice of the battle lifecycle the HTTP surface needs.
type BattleService interface {
	HandleNotification(ctx context.Context, battleID, backendURL string) error
	HandleReset(ctx context.Context, agentID, backendURL string) error
}

type Handler struct {
	Battle   BattleService
	StatusUC status.UseCase
	ReplayUC replay.UseCase
	KPI      kpiSnapshotProvider
	// AgentID is this judge's own id in the coordination backend, reported
	// as ready after a reset.
	AgentID string
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())
	s.POST("/notify", h.notify)
	s.POST("/reset", h.reset)
	s.GET("/status", h.health)

	api := s.Group("/api")
	api.GET("/games/:id", h.gameStatus)
	api.GET("/games/:id/turns/:number", h.gameTurn)

	s.GET("/ops/kpi", h.kpi)
}

type notifyRequest struct {
	BattleID   string `json:"battle_id"`
	BackendURL string `json:"backend_url,omitempty"`
	Type       string `json:"type,omitempty"`
}

// notify acknowledges immediately and runs the battle in the background;
// a battle spans many model calls and cannot finish inside one request.
// Duplicate notifications are deduplicated downstream, not here.
func (h Handler) notify(c context.Context, ctx *app.RequestContext) {
	var body notifyRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	battleID := strings.TrimSpace(body.BattleID)
	if battleID == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_battle_id", "battle_id is required")
		return
	}

	backendURL := strings.TrimSpace(body.BackendURL)

	bg := context.WithoutCancel(c)
	go func() {
		if err := h.Battle.HandleNotification(bg, battleID, backendURL); err != nil {
			hlog.Errorf("battle %s: %v", battleID, err)
		}
	}()

	ctx.JSON(consts.StatusAccepted, map[string]string{
		"status":    "accepted",
		"battle_id": battleID,
	})
}

type resetRequest struct {
	AgentID    string `json:"agent_id,omitempty"`
	BackendURL string `json:"backend_url,omitempty"`
}

func (h Handler) reset(c context.Context, ctx *app.RequestContext) {
	var body resetRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	agentID := body.AgentID
	if agentID == "" {
		agentID = h.AgentID
	}
	if err := h.Battle.HandleReset(c, agentID, strings.TrimSpace(body.BackendURL)); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"status": "reset"})
}

func (h Handler) health(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

func (h Handler) gameStatus(c context.Context, ctx *app.RequestContext) {
	resp, err := h.StatusUC.Execute(c, status.Request{GameID: string(ctx.Param("id"))})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) gameTurn(c context.Context, ctx *app.RequestContext) {
	raw := string(ctx.Param("number"))
	number := -1
	if raw != "latest" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_turn_number", "turn number must be a non-negative integer or \"latest\"")
			return
		}
		number = n
	}
	resp, err := h.ReplayUC.Execute(c, replay.Request{
		GameID: string(ctx.Param("id")),
		Turn:   number,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, battle.ErrInvalidNotification),
		errors.Is(err, status.ErrInvalidRequest),
		errors.Is(err, replay.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
