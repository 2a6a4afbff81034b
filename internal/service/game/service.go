package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"chinchon-service/internal/bot"
	"chinchon-service/internal/chinchon"
	"chinchon-service/internal/config"
	"chinchon-service/internal/model"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/logger"
	"chinchon-service/pkg/utils/random"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	inviteCodeLength = 6
	maxAnalyzeCards  = chinchon.HandSize + 1
	defaultListLimit = 20
)

// Settings are the table rules and timings every runtime of a service shares.
type Settings struct {
	Rules             chinchon.Rules
	Solver            chinchon.Solver
	TargetScore       int
	DefaultDifficulty bot.Difficulty
	TurnTimeout       time.Duration
	SnapshotTTL       time.Duration
	InviteTTL         time.Duration
	// NewSource feeds shuffles and bot decisions; crypto randomness when nil.
	NewSource func() random.Source
}

func SettingsFromConfig(cfg config.GameConfig) Settings {
	var solver chinchon.Solver = chinchon.BruteForce{}
	if strings.EqualFold(cfg.Solver, "backtrack") {
		solver = chinchon.Backtrack{}
	}
	return Settings{
		Rules:             cfg.Rules(),
		Solver:            solver,
		TargetScore:       cfg.TargetScore,
		DefaultDifficulty: bot.Difficulty(cfg.DefaultDifficulty),
		TurnTimeout:       cfg.TurnTimeout(),
		SnapshotTTL:       time.Duration(cfg.SnapshotTTL) * time.Minute,
		InviteTTL:         time.Duration(cfg.InviteTTL) * time.Minute,
	}
}

func (s Settings) Analyzer() *chinchon.Analyzer {
	if s.Solver == nil {
		return chinchon.NewAnalyzer(s.Rules)
	}
	return chinchon.NewAnalyzer(s.Rules, chinchon.WithSolver(s.Solver))
}

func (s Settings) source() random.Source {
	if s.NewSource != nil {
		return s.NewSource()
	}
	return random.NewCrypto()
}

// Service owns game records and the in-memory runtime of every active game.
type Service struct {
	db       *gorm.DB
	store    Store
	settings Settings
	analyzer *chinchon.Analyzer

	runtimes sync.Map // gameID -> *Runtime
}

func NewService(db *gorm.DB, store Store, settings Settings) *Service {
	if settings.TargetScore == 0 {
		settings.TargetScore = chinchon.TargetLong
	}
	if settings.DefaultDifficulty == "" {
		settings.DefaultDifficulty = bot.Medium
	}
	return &Service{
		db:       db,
		store:    store,
		settings: settings,
		analyzer: settings.Analyzer(),
	}
}

type CreateGameRequest struct {
	PlayerID    int64
	Mode        Mode
	Difficulty  string
	TargetScore int
}

// CreateGame opens a bot game, dealt immediately, or a private game that waits for a
// second player holding the invite code.
func (s *Service) CreateGame(ctx context.Context, req CreateGameRequest) (*model.Game, error) {
	if req.PlayerID == 0 {
		return nil, appErr.ErrUnauthorized
	}
	target := req.TargetScore
	if target == 0 {
		target = s.settings.TargetScore
	}
	if _, err := chinchon.NewGameScore(target); err != nil {
		return nil, err
	}
	if _, err := s.loadSeat(ctx, req.PlayerID, chinchon.Player1); err != nil {
		return nil, err
	}

	game := model.Game{
		ID:          uuid.NewString(),
		Mode:        string(req.Mode),
		Status:      string(PhaseWaiting),
		TargetScore: target,
		Player1ID:   req.PlayerID,
		RulesJSON:   mustJSON(s.settings.Rules),
	}

	switch req.Mode {
	case ModeBot:
		name := req.Difficulty
		if name == "" {
			name = string(s.settings.DefaultDifficulty)
		}
		d, err := bot.ParseDifficulty(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", appErr.ErrInvalidDifficulty, name)
		}
		game.Difficulty = string(d)
		game.Status = string(PhasePlaying)
	case ModePvP:
		game.InviteCode = random.Code(inviteCodeLength)
		if err := s.store.SaveInvite(ctx, game.InviteCode, game.ID, s.settings.InviteTTL); err != nil {
			return nil, err
		}
	default:
		return nil, appErr.ErrInvalidGameMode
	}

	if err := s.db.WithContext(ctx).Create(&game).Error; err != nil {
		return nil, err
	}
	logger.Log.Info("game created",
		zap.String("gameID", game.ID),
		zap.String("mode", game.Mode),
		zap.Int64("playerID", req.PlayerID),
		zap.Int("target", target),
	)

	if req.Mode == ModeBot {
		if _, err := s.GetRuntime(ctx, game.ID); err != nil {
			return nil, err
		}
	}
	return &game, nil
}

// JoinByCode seats playerID in a private game. Joining a game one already sits in is a no-op.
func (s *Service) JoinByCode(ctx context.Context, playerID int64, code string) (*model.Game, error) {
	if playerID == 0 {
		return nil, appErr.ErrUnauthorized
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	gameID, err := s.store.ResolveInvite(ctx, code)
	if err != nil {
		return nil, err
	}
	seat, err := s.loadSeat(ctx, playerID, chinchon.Player2)
	if err != nil {
		return nil, err
	}

	var (
		game   model.Game
		joined bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&game, "id = ?", gameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrGameNotFound
			}
			return err
		}
		if isParticipant(game, playerID) {
			return nil
		}
		if game.Player2ID != nil || game.Mode != string(ModePvP) {
			return appErr.ErrGameFull
		}
		game.Player2ID = &playerID
		game.Status = string(PhasePlaying)
		joined = true
		return tx.Save(&game).Error
	})
	if err != nil {
		return nil, err
	}
	if !joined {
		return &game, nil
	}

	if err := s.store.DeleteInvite(ctx, code); err != nil {
		logger.Log.Warn("delete invite failed", zap.String("code", code), zap.Error(err))
	}
	logger.Log.Info("player joined game", zap.String("gameID", game.ID), zap.Int64("playerID", playerID))

	if v, ok := s.runtimes.Load(game.ID); ok {
		v.(*Runtime).join(seat)
	} else if _, err := s.GetRuntime(ctx, game.ID); err != nil {
		return nil, err
	}
	return &game, nil
}

// CreateMatchedGame opens a game between two queued players and deals the first round.
func (s *Service) CreateMatchedGame(ctx context.Context, player1, player2 int64, target int) (*model.Game, error) {
	if _, err := chinchon.NewGameScore(target); err != nil {
		return nil, err
	}
	p2 := player2
	game := model.Game{
		ID:          uuid.NewString(),
		Mode:        string(ModePvP),
		Status:      string(PhasePlaying),
		TargetScore: target,
		Player1ID:   player1,
		Player2ID:   &p2,
		RulesJSON:   mustJSON(s.settings.Rules),
	}
	if err := s.db.WithContext(ctx).Create(&game).Error; err != nil {
		return nil, err
	}
	if _, err := s.GetRuntime(ctx, game.ID); err != nil {
		return nil, err
	}
	return &game, nil
}

// GetRuntime returns the live runtime of a game, restoring it from its snapshot or from
// the stored totals when the process does not hold it.
func (s *Service) GetRuntime(ctx context.Context, gameID string) (*Runtime, error) {
	if v, ok := s.runtimes.Load(gameID); ok {
		return v.(*Runtime), nil
	}

	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	snap, err := s.restoreSnapshot(ctx, game)
	if err != nil {
		return nil, err
	}
	rt, err := newRuntime(snap, s.settings, s)
	if err != nil {
		return nil, err
	}
	if actual, loaded := s.runtimes.LoadOrStore(gameID, rt); loaded {
		rt.Close()
		return actual.(*Runtime), nil
	}
	rt.resume()
	return rt, nil
}

func (s *Service) restoreSnapshot(ctx context.Context, game *model.Game) (Snapshot, error) {
	if game.Status != string(PhaseEnded) {
		data, err := s.store.LoadSnapshot(ctx, game.ID)
		switch {
		case err == nil:
			var snap Snapshot
			jsonErr := json.Unmarshal(data, &snap)
			if jsonErr == nil {
				return snap, nil
			}
			logger.Log.Warn("discarding unreadable snapshot", zap.String("gameID", game.ID), zap.Error(jsonErr))
		case !errors.Is(err, appErr.ErrSnapshotNotFound):
			logger.Log.Warn("load snapshot failed", zap.String("gameID", game.ID), zap.Error(err))
		}
	}
	return s.snapshotFromGame(ctx, game)
}

// snapshotFromGame rebuilds a runtime between rounds from the persisted totals.
func (s *Service) snapshotFromGame(ctx context.Context, game *model.Game) (Snapshot, error) {
	score, err := chinchon.NewGameScore(game.TargetScore)
	if err != nil {
		return Snapshot{}, err
	}
	score.Player1 = game.Score1
	score.Player2 = game.Score2
	score.Round = game.Rounds

	snap := Snapshot{
		GameID:     game.ID,
		Mode:       Mode(game.Mode),
		Difficulty: bot.Difficulty(game.Difficulty),
		Phase:      PhaseWaiting,
		Score:      score,
		Starter:    chinchon.Player1,
	}
	if game.Rounds%2 == 1 {
		snap.Starter = chinchon.Player2
	}
	if game.Status == string(PhaseEnded) {
		snap.Phase = PhaseEnded
	}

	if snap.Seats[0], err = s.loadSeat(ctx, game.Player1ID, chinchon.Player1); err != nil {
		return Snapshot{}, err
	}
	switch {
	case snap.Mode == ModeBot:
		snap.Seats[1] = SeatState{
			Seat:     chinchon.Player2,
			Nickname: fmt.Sprintf("Bot (%s)", game.Difficulty),
			Bot:      true,
		}
	case game.Player2ID != nil:
		if snap.Seats[1], err = s.loadSeat(ctx, *game.Player2ID, chinchon.Player2); err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

// ValidateAccess reports whether playerID sits in the game.
func (s *Service) ValidateAccess(ctx context.Context, playerID int64, gameID string) error {
	if playerID == 0 {
		return appErr.ErrUnauthorized
	}
	game, err := s.loadGame(ctx, gameID)
	if err != nil {
		return err
	}
	if !isParticipant(*game, playerID) {
		return appErr.ErrGameAccessDenied
	}
	return nil
}

func (s *Service) State(ctx context.Context, playerID int64, gameID string) (*GameState, error) {
	if err := s.ValidateAccess(ctx, playerID, gameID); err != nil {
		return nil, err
	}
	rt, err := s.GetRuntime(ctx, gameID)
	if err != nil {
		return nil, err
	}
	state, err := rt.State(playerID)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Act applies one action for playerID and returns the resulting state.
func (s *Service) Act(ctx context.Context, playerID int64, gameID, action string, data json.RawMessage) (*GameState, error) {
	if err := s.ValidateAccess(ctx, playerID, gameID); err != nil {
		return nil, err
	}
	rt, err := s.GetRuntime(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := rt.HandleAction(playerID, action, data); err != nil {
		return nil, err
	}
	state, err := rt.State(playerID)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Service) RoundHistory(ctx context.Context, playerID int64, gameID string) ([]model.RoundLog, error) {
	if err := s.ValidateAccess(ctx, playerID, gameID); err != nil {
		return nil, err
	}
	var logs []model.RoundLog
	if err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("round_no ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListGames returns the player's most recent games.
func (s *Service) ListGames(ctx context.Context, playerID int64, limit int) ([]model.Game, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	var games []model.Game
	if err := s.db.WithContext(ctx).
		Where("player1_id = ? OR player2_id = ?", playerID, playerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

// AnalyzeHand evaluates an arbitrary hand of card IDs under the service rules.
func (s *Service) AnalyzeHand(ids []string) (chinchon.Analysis, error) {
	if len(ids) == 0 || len(ids) > maxAnalyzeCards {
		return chinchon.Analysis{}, fmt.Errorf("%w: hand must hold 1 to %d cards", appErr.ErrInvalidPayload, maxAnalyzeCards)
	}
	hand := make([]chinchon.Card, 0, len(ids))
	seen := make(map[chinchon.Card]bool, len(ids))
	for _, id := range ids {
		c, err := chinchon.ParseCard(id)
		if err != nil {
			return chinchon.Analysis{}, fmt.Errorf("%w: %v", appErr.ErrInvalidPayload, err)
		}
		if seen[c] {
			return chinchon.Analysis{}, fmt.Errorf("%w: duplicate card %s", appErr.ErrInvalidPayload, id)
		}
		seen[c] = true
		hand = append(hand, c)
	}
	return s.analyzer.Analyze(hand), nil
}

// Shutdown stops every live runtime.
func (s *Service) Shutdown() {
	s.runtimes.Range(func(key, value any) bool {
		value.(*Runtime).Close()
		s.runtimes.Delete(key)
		return true
	})
}

func (s *Service) loadGame(ctx context.Context, gameID string) (*model.Game, error) {
	if gameID == "" {
		return nil, appErr.ErrGameNotFound
	}
	var game model.Game
	if err := s.db.WithContext(ctx).First(&game, "id = ?", gameID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func (s *Service) loadSeat(ctx context.Context, playerID int64, seat chinchon.PlayerID) (SeatState, error) {
	var player model.Player
	if err := s.db.WithContext(ctx).First(&player, playerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SeatState{}, appErr.ErrPlayerNotFound
		}
		return SeatState{}, err
	}
	nickname := player.Nickname
	if nickname == "" {
		nickname = player.Username
	}
	return SeatState{Seat: seat, PlayerID: player.ID, Nickname: nickname}, nil
}

func isParticipant(game model.Game, playerID int64) bool {
	if game.Player1ID == playerID {
		return true
	}
	return game.Player2ID != nil && *game.Player2ID == playerID
}
