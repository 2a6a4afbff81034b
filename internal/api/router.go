package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"chinchon-service/internal/chinchon"
	"chinchon-service/internal/middleware"
	"chinchon-service/internal/service"
	adminsvc "chinchon-service/internal/service/admin"
	"chinchon-service/internal/service/game"
	"chinchon-service/internal/service/match"
	playersvc "chinchon-service/internal/service/player"
	"chinchon-service/internal/ws"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Game)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/chinchon/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", handler.Register)
			authGroup.POST("/login", handler.Login)
		}

		playerGroup := v1.Group("/player")
		playerGroup.Use(middleware.AuthRequired())
		{
			playerGroup.GET("/profile", handler.GetProfile)
			playerGroup.PUT("/profile", handler.UpdateProfile)
		}

		v1.POST("/admin/login", handler.AdminLogin)
		adminGroup := v1.Group("/admin")
		adminGroup.Use(middleware.AdminAuthRequired())
		{
			adminGroup.PUT("/players/:id/status", handler.AdminSetPlayerStatus)
			adminGroup.GET("/games", handler.AdminListGames)
		}

		v1.GET("/leaderboard", handler.Leaderboard)
		v1.POST("/analyze", handler.AnalyzeHand)

		gameGroup := v1.Group("/games")
		gameGroup.Use(middleware.AuthRequired())
		{
			gameGroup.POST("", handler.CreateGame)
			gameGroup.GET("", handler.ListGames)
			gameGroup.POST("/join", handler.JoinGame)
			gameGroup.GET("/:gameId", handler.GameState)
			gameGroup.POST("/:gameId/actions", handler.GameAction)
			gameGroup.GET("/:gameId/rounds", handler.RoundHistory)
		}

		matchGroup := v1.Group("/match")
		matchGroup.Use(middleware.AuthRequired())
		{
			matchGroup.POST("/join", handler.MatchJoin)
			matchGroup.POST("/cancel", handler.MatchCancel)
			matchGroup.GET("/status", handler.MatchStatus)
		}
	}

	r.GET("/ws/game/:gameId", wsHandler.HandleGameWS)
}

type registerBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Nickname string `json:"nickname"`
}

type loginBody struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type playerStatusBody struct {
	Status string `json:"status" binding:"required,oneof=active disabled"`
}

type updateProfileBody struct {
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

type createGameBody struct {
	Mode        string `json:"mode" binding:"required,oneof=bot pvp"`
	Difficulty  string `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	TargetScore int    `json:"targetScore" binding:"omitempty,oneof=50 100"`
}

type joinGameBody struct {
	Code string `json:"code" binding:"required"`
}

type actionBody struct {
	Type string          `json:"type" binding:"required"`
	Data json.RawMessage `json:"data"`
}

type analyzeBody struct {
	Cards []string `json:"cards" binding:"required"`
}

type matchQueueBody struct {
	TargetScore int `json:"targetScore" binding:"required,oneof=50 100"`
}

func (h *Handler) Register(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Register(c.Request.Context(), body.Username, body.Password, body.Nickname)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidUsername), errors.Is(err, appErr.ErrWeakPassword):
			status = http.StatusBadRequest
		case errors.Is(err, appErr.ErrUsernameTaken):
			status = http.StatusConflict
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrInvalidCredentials):
			status = http.StatusUnauthorized
		case errors.Is(err, appErr.ErrPlayerDisabled):
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Admin.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, appErr.ErrAdminNotFound), errors.Is(err, appErr.ErrInvalidAdminPassword):
			status = http.StatusUnauthorized
		case errors.Is(err, appErr.ErrAdminDisabled):
			status = http.StatusForbidden
		}
		response.Error(c, status, err.Error())
		return
	}

	response.Success(c, resp)
}

func (h *Handler) AdminSetPlayerStatus(c *gin.Context) {
	playerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || playerID <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid player id")
		return
	}

	var body playerStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	player, err := h.services.Admin.SetPlayerStatus(c.Request.Context(), middleware.AdminID(c), playerID, body.Status)
	if err != nil {
		if errors.Is(err, appErr.ErrInvalidStatus) {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
		h.handleGameError(c, err)
		return
	}
	response.Success(c, player)
}

func (h *Handler) AdminListGames(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	playerID, err := parseInt64Query(c, "playerId")
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Admin.ListGames(c.Request.Context(), adminsvc.GameFilter{
		Status:   c.Query("status"),
		PlayerID: playerID,
		Page:     page,
		Size:     size,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) GetProfile(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := h.services.Player.GetProfile(c.Request.Context(), playerID)
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body updateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.services.Player.UpdateProfile(c.Request.Context(), playerID, playersvc.UpdateProfileRequest{
		Nickname: body.Nickname,
		Avatar:   body.Avatar,
	})
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, updated)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Player.Leaderboard(c.Request.Context(), playersvc.LeaderboardFilter{Page: page, Size: size})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}
	response.Success(c, gin.H{
		"items": result.Items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func (h *Handler) AnalyzeHand(c *gin.Context) {
	var body analyzeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	analysis, err := h.services.Game.AnalyzeHand(body.Cards)
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, analysis)
}

func (h *Handler) CreateGame(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body createGameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.services.Game.CreateGame(c.Request.Context(), game.CreateGameRequest{
		PlayerID:    playerID,
		Mode:        game.Mode(body.Mode),
		Difficulty:  body.Difficulty,
		TargetScore: body.TargetScore,
	})
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, created)
}

func (h *Handler) ListGames(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, err := parsePositiveIntQuery(c, "limit", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	games, err := h.services.Game.ListGames(c.Request.Context(), playerID, limit)
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, gin.H{"games": games})
}

func (h *Handler) JoinGame(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body joinGameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	joined, err := h.services.Game.JoinByCode(c.Request.Context(), playerID, body.Code)
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, joined)
}

func (h *Handler) GameState(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	state, err := h.services.Game.State(c.Request.Context(), playerID, c.Param("gameId"))
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, state)
}

func (h *Handler) GameAction(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body actionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.services.Game.Act(c.Request.Context(), playerID, c.Param("gameId"), body.Type, body.Data)
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, state)
}

func (h *Handler) RoundHistory(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	rounds, err := h.services.Game.RoundHistory(c.Request.Context(), playerID, c.Param("gameId"))
	if err != nil {
		h.handleGameError(c, err)
		return
	}
	response.Success(c, gin.H{"rounds": rounds})
}

func (h *Handler) MatchJoin(c *gin.Context) {
	var body matchQueueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	queueID, err := h.services.Match.JoinQueue(c.Request.Context(), match.JoinQueueRequest{
		PlayerID:    playerID,
		TargetScore: body.TargetScore,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		h.handleMatchError(c, err)
		return
	}

	response.Success(c, gin.H{
		"queueId": queueID,
		"status":  match.QueueStatusQueued,
	})
}

func (h *Handler) MatchCancel(c *gin.Context) {
	var body matchQueueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.services.Match.CancelQueue(c.Request.Context(), match.CancelQueueRequest{
		PlayerID:    playerID,
		TargetScore: body.TargetScore,
		Reason:      "player_cancel",
	}); err != nil {
		h.handleMatchError(c, err)
		return
	}

	response.SuccessWithMsg(c, gin.H{"status": "cancelled"}, "")
}

func (h *Handler) MatchStatus(c *gin.Context) {
	playerID, ok := getPlayerID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	target, err := parsePositiveIntQuery(c, "targetScore", chinchon.TargetLong)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	status, err := h.services.Match.GetStatus(c.Request.Context(), playerID, target)
	if err != nil {
		h.handleMatchError(c, err)
		return
	}

	response.Success(c, status)
}

func (h *Handler) handleGameError(c *gin.Context, err error) {
	if kind := chinchon.KindOf(err); kind != "" {
		status := http.StatusUnprocessableEntity
		switch kind {
		case chinchon.KindNotYourTurn, chinchon.KindWrongPhase, chinchon.KindRoundOver:
			status = http.StatusConflict
		}
		response.Rejected(c, status, string(kind), err.Error())
		return
	}

	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, appErr.ErrGameAccessDenied):
		response.Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, appErr.ErrGameNotFound),
		errors.Is(err, appErr.ErrInviteNotFound),
		errors.Is(err, appErr.ErrPlayerNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrGameFull), errors.Is(err, appErr.ErrGameNotPlaying):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrInvalidGameMode),
		errors.Is(err, appErr.ErrInvalidDifficulty),
		errors.Is(err, appErr.ErrInvalidPayload),
		errors.Is(err, appErr.ErrUnsupportedAction),
		errors.Is(err, chinchon.ErrInvalidTarget):
		response.Error(c, http.StatusBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleMatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrPlayerNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrPlayerDisabled):
		response.Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, chinchon.ErrInvalidTarget):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, appErr.ErrAlreadyInQueue):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrQueueProcessing):
		response.Error(c, http.StatusTooManyRequests, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, err.Error())
	}
}

func parseInt64Query(c *gin.Context, key string) (int64, error) {
	val := c.Query(key)
	if val == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

func getPlayerID(c *gin.Context) (int64, bool) {
	id := middleware.PlayerID(c)
	return id, id > 0
}
