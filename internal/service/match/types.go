package match

import "time"

type JoinQueueRequest struct {
	PlayerID    int64
	TargetScore int
	ClientIP    string
}

type CancelQueueRequest struct {
	PlayerID    int64
	TargetScore int
	Reason      string
}

type QueueStatus string

const (
	QueueStatusIdle    QueueStatus = "idle"
	QueueStatusQueued  QueueStatus = "queued"
	QueueStatusMatched QueueStatus = "matched"
)

type StatusResult struct {
	Status      QueueStatus `json:"status"`
	TargetScore int         `json:"targetScore,omitempty"`
	GameID      string      `json:"gameId,omitempty"`
	JoinedAt    *time.Time  `json:"joinedAt,omitempty"`
}

type queueMember struct {
	PlayerID    int64     `json:"playerId"`
	TargetScore int       `json:"targetScore"`
	JoinedAt    time.Time `json:"joinedAt"`
	ClientIP    string    `json:"clientIp,omitempty"`
}

type matchNotifyPayload struct {
	TargetScore int    `json:"targetScore"`
	GameID      string `json:"gameId"`
}
