package model

import (
	"time"

	"gorm.io/datatypes"
)

type Player struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"size:32;unique;not null" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Nickname     string     `json:"nickname"`
	Avatar       string     `json:"avatar"`
	GamesPlayed  int        `gorm:"default:0" json:"gamesPlayed"`
	GamesWon     int        `gorm:"default:0" json:"gamesWon"`
	Chinchones   int        `gorm:"default:0" json:"chinchones"`
	Status       string     `gorm:"default:active;not null" json:"status"` // active/disabled
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Admin struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string     `gorm:"size:32;unique;not null" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"`
	DisplayName  string     `json:"displayName"`
	Status       string     `gorm:"default:active;not null" json:"status"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type Game struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Mode        string         `gorm:"size:8;not null" json:"mode"` // bot/pvp
	Difficulty  string         `gorm:"size:8" json:"difficulty,omitempty"`
	Status      string         `gorm:"size:16;default:waiting;not null" json:"status"` // waiting/playing/ended
	TargetScore int            `json:"targetScore"`
	Player1ID   int64          `gorm:"index" json:"player1Id"`
	Player2ID   *int64         `gorm:"index" json:"player2Id,omitempty"`
	InviteCode  string         `gorm:"size:16;index" json:"inviteCode,omitempty"`
	Score1      int            `json:"score1"`
	Score2      int            `json:"score2"`
	Rounds      int            `json:"rounds"`
	WinnerID    *int64         `json:"winnerId,omitempty"`
	RulesJSON   datatypes.JSON `json:"rules"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	EndedAt     *time.Time     `json:"endedAt,omitempty"`
}

type RoundLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	GameID      string         `gorm:"size:36;index" json:"gameId"`
	RoundNo     int            `json:"roundNo"`
	Reason      string         `gorm:"size:16" json:"reason"` // cut/exhausted
	WinnerSeat  int            `json:"winnerSeat"`
	Delta1      int            `json:"delta1"`
	Delta2      int            `json:"delta2"`
	Chinchon    bool           `json:"chinchon"`
	HandsJSON   datatypes.JSON `json:"hands"`
	ActionsJSON datatypes.JSON `json:"actions"`
	CreatedAt   time.Time      `json:"createdAt"`
}
