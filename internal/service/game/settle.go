package game

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chinchon-service/internal/chinchon"
	"chinchon-service/internal/model"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type roundHandsRecord struct {
	Player1  []chinchon.Card      `json:"player1"`
	Player2  []chinchon.Card      `json:"player2"`
	Analyses [2]chinchon.Analysis `json:"analyses"`
}

// RecordRound stores the round log and the new totals in one transaction. The round that
// ends the game also closes the game record and updates both players' counters.
func (s *Service) RecordRound(ctx context.Context, rec RoundRecord) error {
	now := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var game model.Game
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&game, "id = ?", rec.GameID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrGameNotFound
			}
			return err
		}
		if game.EndedAt != nil {
			return appErr.ErrGameNotPlaying
		}

		res := rec.Result
		roundLog := model.RoundLog{
			GameID:     rec.GameID,
			RoundNo:    rec.RoundNo,
			Reason:     string(res.Outcome.Reason),
			WinnerSeat: int(res.Outcome.Winner),
			Delta1:     res.Delta.Player1,
			Delta2:     res.Delta.Player2,
			Chinchon:   res.Delta.ChinchonBonus,
			HandsJSON: mustJSON(roundHandsRecord{
				Player1:  rec.Hands[0],
				Player2:  rec.Hands[1],
				Analyses: res.Analyses,
			}),
			ActionsJSON: mustJSON(rec.Actions),
			CreatedAt:   now,
		}
		if err := tx.Create(&roundLog).Error; err != nil {
			return err
		}

		game.Score1 = rec.Score.Player1
		game.Score2 = rec.Score.Player2
		game.Rounds = rec.Score.Round
		if rec.Ended {
			game.Status = string(PhaseEnded)
			game.EndedAt = &now
			if w := rec.Winner; w.Valid() && !rec.Seats[seatIndex(w)].Bot {
				winnerID := rec.Seats[seatIndex(w)].PlayerID
				game.WinnerID = &winnerID
			}
		}
		if err := tx.Save(&game).Error; err != nil {
			return err
		}

		return bumpPlayerStats(tx, rec)
	})
	if err != nil {
		return err
	}

	if rec.Ended {
		// the runtime stays alive for its current subscribers; later lookups rebuild it from the record
		s.runtimes.Delete(rec.GameID)
		if err := s.store.DeleteSnapshot(ctx, rec.GameID); err != nil {
			logger.Log.Warn("delete snapshot failed", zap.String("gameID", rec.GameID), zap.Error(err))
		}
		logger.Log.Info("game ended",
			zap.String("gameID", rec.GameID),
			zap.Int("rounds", rec.Score.Round),
			zap.Int("score1", rec.Score.Player1),
			zap.Int("score2", rec.Score.Player2),
		)
	}
	return nil
}

func bumpPlayerStats(tx *gorm.DB, rec RoundRecord) error {
	outcome := rec.Result.Outcome
	for _, seat := range rec.Seats {
		if seat.Bot || seat.PlayerID == 0 {
			continue
		}
		updates := map[string]interface{}{}
		if rec.Result.Delta.ChinchonBonus && outcome.Winner == seat.Seat {
			updates["chinchones"] = gorm.Expr("chinchones + ?", 1)
		}
		if rec.Ended {
			updates["games_played"] = gorm.Expr("games_played + ?", 1)
			if rec.Winner == seat.Seat {
				updates["games_won"] = gorm.Expr("games_won + ?", 1)
			}
		}
		if len(updates) == 0 {
			continue
		}
		if err := tx.Model(&model.Player{}).
			Where("id = ?", seat.PlayerID).
			UpdateColumns(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot persists the runtime so a restarted process can resume the game.
func (s *Service) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.store.SaveSnapshot(ctx, snap.GameID, data, s.settings.SnapshotTTL)
}

func mustJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
