package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"chinchon-service/internal/bot"
	"chinchon-service/internal/chinchon"
	appErr "chinchon-service/pkg/errors"
	"chinchon-service/pkg/logger"
	"chinchon-service/pkg/utils/random"

	"go.uber.org/zap"
)

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhasePlaying   Phase = "playing"
	PhaseRoundOver Phase = "round_over"
	PhaseEnded     Phase = "ended"
)

type Mode string

const (
	ModeBot Mode = "bot"
	ModePvP Mode = "pvp"
)

const (
	defaultCountdownUnit = time.Second
	maxLogItems          = 50
	recordTimeout        = 5 * time.Second
	// a bot turn is at most a draw and a discard or cut
	maxBotSteps = 4
)

type SeatState struct {
	Seat     chinchon.PlayerID `json:"seat"`
	PlayerID int64             `json:"playerId,string"`
	Nickname string            `json:"nickname"`
	Bot      bool              `json:"bot"`
}

func (s SeatState) occupied() bool {
	return s.Bot || s.PlayerID != 0
}

type LogItem struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Content   string `json:"content"`
}

// ActionLog is one applied move. Drawn is hidden information and never leaves the server
// except through the round history.
type ActionLog struct {
	Move  chinchon.Move  `json:"move"`
	Drawn *chinchon.Card `json:"drawn,omitempty"`
	Auto  bool           `json:"auto,omitempty"`
	At    int64          `json:"at"`
}

// GameState is the per-viewer picture of a game pushed over websocket and returned by the API.
type GameState struct {
	GameID           string                `json:"gameId"`
	Mode             Mode                  `json:"mode"`
	Difficulty       bot.Difficulty        `json:"difficulty,omitempty"`
	Phase            Phase                 `json:"phase"`
	Seat             chinchon.PlayerID     `json:"seat"`
	Seats            []SeatState           `json:"seats"`
	RoundNo          int                   `json:"roundNo"`
	Turn             chinchon.PlayerID     `json:"turn,omitempty"`
	RoundPhase       chinchon.Phase        `json:"roundPhase,omitempty"`
	Hand             []chinchon.Card       `json:"hand"`
	Analysis         *chinchon.Analysis    `json:"analysis,omitempty"`
	TopDiscard       *chinchon.Card        `json:"topDiscard,omitempty"`
	StockCount       int                   `json:"stockCount"`
	DiscardCount     int                   `json:"discardCount"`
	OpponentHandSize int                   `json:"opponentHandSize"`
	Score            chinchon.GameScore    `json:"score"`
	Stats            *chinchon.Stats       `json:"stats,omitempty"`
	LastResult       *chinchon.RoundResult `json:"lastResult,omitempty"`
	Winner           chinchon.PlayerID     `json:"winner,omitempty"`
	Countdown        int                   `json:"countdown"`
	AllowedActions   []string              `json:"allowedActions"`
	Logs             []LogItem             `json:"logs"`
}

type OutgoingMessage struct {
	Type string      `json:"type"`
	Seq  int64       `json:"seq"`
	Data interface{} `json:"data"`
}

// Snapshot is the persisted form of a runtime.
type Snapshot struct {
	GameID     string                `json:"gameId"`
	Mode       Mode                  `json:"mode"`
	Difficulty bot.Difficulty        `json:"difficulty,omitempty"`
	Phase      Phase                 `json:"phase"`
	Seats      [2]SeatState          `json:"seats"`
	Round      *chinchon.Round       `json:"round,omitempty"`
	Score      chinchon.GameScore    `json:"score"`
	Starter    chinchon.PlayerID     `json:"starter"`
	LastResult *chinchon.RoundResult `json:"lastResult,omitempty"`
	Actions    []ActionLog           `json:"actions"`
	Logs       []LogItem             `json:"logs"`
}

// RoundRecord is handed to the Recorder whenever a round settles.
type RoundRecord struct {
	GameID  string
	RoundNo int
	Result  chinchon.RoundResult
	Hands   [2][]chinchon.Card
	Actions []ActionLog
	Score   chinchon.GameScore
	Seats   [2]SeatState
	// Ended is set on the round that decided the game.
	Ended  bool
	Winner chinchon.PlayerID
}

// Recorder persists what a runtime produces. Calls are made while the runtime lock is held.
type Recorder interface {
	RecordRound(ctx context.Context, rec RoundRecord) error
	SaveSnapshot(ctx context.Context, snap Snapshot) error
}

type Runtime struct {
	gameID     string
	mode       Mode
	difficulty bot.Difficulty
	settings   Settings
	analyzer   *chinchon.Analyzer
	rng        random.Source

	phase      Phase
	seats      [2]SeatState
	bots       [2]*bot.Policy
	autoplay   *bot.Policy
	round      *chinchon.Round
	score      chinchon.GameScore
	starter    chinchon.PlayerID
	lastResult *chinchon.RoundResult
	actions    []ActionLog
	logs       []LogItem
	seq        int64

	subscribers  map[int64]chan OutgoingMessage
	timer        *time.Timer
	turnDeadline time.Time
	// turnGen identifies the armed turn clock; a fired callback with an older value is stale.
	turnGen uint64

	mu sync.Mutex

	recorder Recorder
}

func newRuntime(snap Snapshot, settings Settings, recorder Recorder) (*Runtime, error) {
	rt := &Runtime{
		gameID:      snap.GameID,
		mode:        snap.Mode,
		difficulty:  snap.Difficulty,
		settings:    settings,
		analyzer:    settings.Analyzer(),
		rng:         settings.source(),
		phase:       snap.Phase,
		seats:       snap.Seats,
		round:       snap.Round,
		score:       snap.Score,
		starter:     snap.Starter,
		lastResult:  snap.LastResult,
		actions:     snap.Actions,
		logs:        snap.Logs,
		subscribers: make(map[int64]chan OutgoingMessage),
		recorder:    recorder,
	}
	if rt.phase == "" {
		rt.phase = PhaseWaiting
	}
	if !rt.starter.Valid() {
		rt.starter = chinchon.Player1
	}
	if rt.logs == nil {
		rt.logs = []LogItem{}
	}
	if rt.score.Target == 0 {
		score, err := chinchon.NewGameScore(settings.TargetScore)
		if err != nil {
			return nil, err
		}
		rt.score = score
	}
	if rt.round != nil {
		rt.round.UseAnalyzer(rt.analyzer)
		if err := rt.round.Verify(); err != nil {
			return nil, err
		}
	}

	autoplay, err := bot.NewPolicy(bot.Easy, settings.Rules, rt.rng)
	if err != nil {
		return nil, err
	}
	rt.autoplay = autoplay
	for i, seat := range rt.seats {
		if !seat.Bot {
			continue
		}
		policy, err := bot.NewPolicy(rt.difficulty, settings.Rules, rt.rng)
		if err != nil {
			return nil, err
		}
		rt.bots[i] = policy
	}
	return rt, nil
}

// resume starts the clock again for a runtime built from a snapshot, or deals the first
// round when both seats are taken.
func (rt *Runtime) resume() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	switch {
	case rt.phase == PhaseWaiting && rt.seatsFilledLocked():
		rt.startRoundLocked()
	case rt.phase == PhasePlaying && rt.round != nil:
		rt.resetTurnTimerLocked()
		rt.runBotsLocked()
	}
}

func (rt *Runtime) GameID() string {
	return rt.gameID
}

func (rt *Runtime) Subscribe(playerID int64) chan OutgoingMessage {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if old, ok := rt.subscribers[playerID]; ok {
		close(old)
	}
	ch := make(chan OutgoingMessage, 8)
	rt.subscribers[playerID] = ch
	rt.pushStateLocked(playerID)
	return ch
}

// Unsubscribe closes ch if it is still the player's active channel.
func (rt *Runtime) Unsubscribe(playerID int64, ch chan OutgoingMessage) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if cur, ok := rt.subscribers[playerID]; ok && cur == ch {
		delete(rt.subscribers, playerID)
		close(cur)
	}
}

// State returns what playerID currently sees.
func (rt *Runtime) State(playerID int64) (GameState, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, ok := rt.seatOfLocked(playerID); !ok {
		return GameState{}, appErr.ErrGameAccessDenied
	}
	return rt.exportStateLocked(playerID), nil
}

// HandleAction runs one client action. Game rule violations come back as *chinchon.MoveError.
func (rt *Runtime) HandleAction(playerID int64, action string, data json.RawMessage) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	seat, ok := rt.seatOfLocked(playerID)
	if !ok {
		return appErr.ErrGameAccessDenied
	}

	switch action {
	case "draw", "discard", "cut":
		move, err := decodeMove(action, seat, data)
		if err != nil {
			return err
		}
		if err := rt.applyMoveLocked(move, false); err != nil {
			return err
		}
		rt.runBotsLocked()
		rt.saveSnapshotLocked()
		rt.broadcastStateLocked()
		return nil
	case "next_round":
		if rt.phase != PhaseRoundOver {
			return appErr.ErrGameNotPlaying
		}
		rt.startRoundLocked()
		return nil
	case "rejoin":
		rt.pushStateLocked(playerID)
		return nil
	case "ping":
		rt.pushMessageLocked(playerID, OutgoingMessage{Type: "pong", Seq: rt.nextSeqLocked(), Data: map[string]interface{}{"message": "pong"}})
		return nil
	default:
		return appErr.ErrUnsupportedAction
	}
}

func decodeMove(action string, seat chinchon.PlayerID, data json.RawMessage) (chinchon.Move, error) {
	var payload struct {
		Source chinchon.Source `json:"source"`
		Card   *chinchon.Card  `json:"card"`
	}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &payload); err != nil {
			return chinchon.Move{}, fmt.Errorf("%w: %v", appErr.ErrInvalidPayload, err)
		}
	}
	move := chinchon.Move{
		Action: chinchon.ActionType(action),
		Player: seat,
		Card:   payload.Card,
	}
	if move.Action == chinchon.ActionDraw {
		move.Source = payload.Source
		if move.Source == "" {
			move.Source = chinchon.SourceStock
		}
	}
	return move, nil
}

// join seats the second human of a private game and deals the first round.
func (rt *Runtime) join(seat SeatState) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	idx := seatIndex(chinchon.Player2)
	if rt.seats[idx].occupied() {
		return
	}
	seat.Seat = chinchon.Player2
	rt.seats[idx] = seat
	rt.appendLogLocked(fmt.Sprintf("%s joined", seat.Nickname))
	if rt.phase == PhaseWaiting {
		rt.startRoundLocked()
	}
}

func (rt *Runtime) applyMoveLocked(move chinchon.Move, auto bool) error {
	if rt.phase != PhasePlaying || rt.round == nil {
		return appErr.ErrGameNotPlaying
	}

	entry := ActionLog{Move: move, Auto: auto, At: time.Now().UnixMilli()}
	var drawn chinchon.Card
	if move.Action == chinchon.ActionDraw {
		card, err := rt.round.Draw(move.Player, move.Source)
		if err != nil {
			return err
		}
		drawn = card
		entry.Drawn = &card
	} else if _, err := rt.round.Apply(move); err != nil {
		return err
	}

	rt.actions = append(rt.actions, entry)
	rt.appendLogLocked(describeMove(rt.seats[seatIndex(move.Player)], move, auto))
	for i, policy := range rt.bots {
		if policy != nil {
			policy.Observe(chinchon.PlayerID(i+1), move, drawn)
		}
	}

	if rt.round.Over() {
		rt.settleRoundLocked()
		return nil
	}
	if move.Action != chinchon.ActionDraw {
		rt.resetTurnTimerLocked()
	}
	return nil
}

func describeMove(seat SeatState, move chinchon.Move, auto bool) string {
	var text string
	switch move.Action {
	case chinchon.ActionDraw:
		text = fmt.Sprintf("%s drew from the %s", seat.Nickname, move.Source)
	case chinchon.ActionDiscard:
		text = fmt.Sprintf("%s discarded %s", seat.Nickname, move.Card)
	case chinchon.ActionCut:
		text = fmt.Sprintf("%s cut", seat.Nickname)
	}
	if auto {
		text += " (timeout)"
	}
	return text
}

// runBotsLocked lets bot seats play until a human is on turn or the round ends.
func (rt *Runtime) runBotsLocked() {
	for step := 0; step < maxBotSteps; step++ {
		if rt.phase != PhasePlaying || rt.round == nil {
			return
		}
		turn := rt.round.Turn
		policy := rt.bots[seatIndex(turn)]
		if policy == nil {
			return
		}
		if !rt.playTurnStepLocked(policy, turn, false) {
			return
		}
	}
}

// playTurnStepLocked applies one policy move for seat and reports whether it succeeded.
func (rt *Runtime) playTurnStepLocked(policy *bot.Policy, seat chinchon.PlayerID, auto bool) bool {
	move, err := policy.NextMove(rt.round.View(seat), 0)
	if err != nil {
		logger.Log.Warn("policy produced no move",
			zap.String("gameID", rt.gameID),
			zap.Int("seat", int(seat)),
			zap.Error(err),
		)
		return false
	}
	if err := rt.applyMoveLocked(move, auto); err != nil {
		logger.Log.Error("policy move rejected",
			zap.String("gameID", rt.gameID),
			zap.Int("seat", int(seat)),
			zap.String("action", string(move.Action)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func (rt *Runtime) startRoundLocked() {
	rt.round = chinchon.NewRound(rt.settings.Rules, rt.rng)
	rt.round.UseAnalyzer(rt.analyzer)
	rt.round.Turn = rt.starter
	rt.phase = PhasePlaying
	rt.actions = nil
	for _, policy := range rt.bots {
		if policy != nil {
			policy.Memory().Reset()
		}
	}
	rt.appendLogLocked(fmt.Sprintf("round %d dealt", rt.score.Round+1))
	rt.resetTurnTimerLocked()
	rt.runBotsLocked()
	rt.saveSnapshotLocked()
	rt.broadcastStateLocked()
}

func (rt *Runtime) settleRoundLocked() {
	rt.cancelTimerLocked()
	res, err := rt.round.Result()
	if err != nil {
		logger.Log.Error("round result failed", zap.String("gameID", rt.gameID), zap.Error(err))
		return
	}
	rt.score = rt.score.Apply(res.Delta)
	rt.lastResult = &res
	rt.starter = rt.starter.Other()

	rec := RoundRecord{
		GameID:  rt.gameID,
		RoundNo: rt.score.Round,
		Result:  res,
		Hands:   [2][]chinchon.Card{rt.round.Hand(chinchon.Player1), rt.round.Hand(chinchon.Player2)},
		Actions: append([]ActionLog(nil), rt.actions...),
		Score:   rt.score,
		Seats:   rt.seats,
	}

	if rt.score.IsOver() {
		rt.phase = PhaseEnded
		rec.Ended = true
		rec.Winner = rt.score.Winner()
		rt.appendLogLocked(fmt.Sprintf("game over %d-%d", rt.score.Player1, rt.score.Player2))
	} else {
		rt.phase = PhaseRoundOver
		rt.appendLogLocked(fmt.Sprintf("round %d over: %s", rt.score.Round, res.Outcome.Reason))
	}

	if rt.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := rt.recorder.RecordRound(ctx, rec); err != nil {
			logger.Log.Error("record round failed",
				zap.String("gameID", rt.gameID),
				zap.Int("round", rec.RoundNo),
				zap.Error(err),
			)
		}
	}
}

func (rt *Runtime) snapshotLocked() Snapshot {
	return Snapshot{
		GameID:     rt.gameID,
		Mode:       rt.mode,
		Difficulty: rt.difficulty,
		Phase:      rt.phase,
		Seats:      rt.seats,
		Round:      rt.round,
		Score:      rt.score,
		Starter:    rt.starter,
		LastResult: rt.lastResult,
		Actions:    rt.actions,
		Logs:       rt.logs,
	}
}

func (rt *Runtime) saveSnapshotLocked() {
	if rt.recorder == nil || rt.phase == PhaseEnded {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := rt.recorder.SaveSnapshot(ctx, rt.snapshotLocked()); err != nil {
		logger.Log.Warn("save snapshot failed", zap.String("gameID", rt.gameID), zap.Error(err))
	}
}

func (rt *Runtime) pushStateLocked(playerID int64) {
	rt.pushMessageLocked(playerID, OutgoingMessage{
		Type: "state",
		Seq:  rt.nextSeqLocked(),
		Data: rt.exportStateLocked(playerID),
	})
}

func (rt *Runtime) broadcastStateLocked() {
	stateSeq := rt.nextSeqLocked()
	for pid, ch := range rt.subscribers {
		msg := OutgoingMessage{
			Type: "state",
			Seq:  stateSeq,
			Data: rt.exportStateLocked(pid),
		}
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full", zap.Int64("playerID", pid), zap.String("gameID", rt.gameID))
		}
	}
}

func (rt *Runtime) pushMessageLocked(playerID int64, msg OutgoingMessage) {
	if ch, ok := rt.subscribers[playerID]; ok {
		select {
		case ch <- msg:
		default:
			logger.Log.Warn("ws subscriber channel full", zap.Int64("playerID", playerID), zap.String("gameID", rt.gameID))
		}
	}
}

func (rt *Runtime) nextSeqLocked() int64 {
	rt.seq++
	return rt.seq
}

func (rt *Runtime) exportStateLocked(playerID int64) GameState {
	seat, _ := rt.seatOfLocked(playerID)
	seats := make([]SeatState, 0, len(rt.seats))
	for _, s := range rt.seats {
		if s.occupied() {
			seats = append(seats, s)
		}
	}
	state := GameState{
		GameID:         rt.gameID,
		Mode:           rt.mode,
		Difficulty:     rt.difficulty,
		Phase:          rt.phase,
		Seat:           seat,
		Seats:          seats,
		RoundNo:        rt.score.Round,
		Hand:           []chinchon.Card{},
		Score:          rt.score,
		LastResult:     rt.lastResult,
		Countdown:      rt.countdownSecondsLocked(),
		AllowedActions: rt.allowedActionsLocked(seat),
		Logs:           append([]LogItem(nil), rt.logs...),
	}
	if rt.phase == PhaseEnded {
		state.Winner = rt.score.Winner()
	}
	if rt.round == nil {
		return state
	}

	view := rt.round.View(seat)
	analysis := rt.analyzer.Analyze(view.Hand)
	state.Hand = view.Hand
	state.Analysis = &analysis
	state.TopDiscard = view.TopDiscard
	state.StockCount = view.StockCount
	state.DiscardCount = view.DiscardCount
	state.OpponentHandSize = view.OpponentSize
	if rt.phase == PhasePlaying {
		state.RoundNo = rt.score.Round + 1
		state.Turn = view.Turn
		state.RoundPhase = view.Phase
	} else {
		// both hands are shown once the round is over
		stats := chinchon.GameStats(rt.round, rt.score)
		state.Stats = &stats
	}
	return state
}

func (rt *Runtime) allowedActionsLocked(seat chinchon.PlayerID) []string {
	if !seat.Valid() {
		return nil
	}
	switch rt.phase {
	case PhasePlaying:
		if rt.round == nil || rt.round.Turn != seat {
			return nil
		}
		actions := make([]string, 0, 2)
		if rt.round.Phase == chinchon.PhaseAwaitingDraw {
			actions = append(actions, "draw")
			if rt.round.Validate(chinchon.Move{Action: chinchon.ActionCut, Player: seat}) == nil {
				actions = append(actions, "cut")
			}
			return actions
		}
		actions = append(actions, "discard")
		for _, c := range rt.round.Hand(seat) {
			card := c
			if rt.round.Validate(chinchon.Move{Action: chinchon.ActionCut, Player: seat, Card: &card}) == nil {
				actions = append(actions, "cut")
				break
			}
		}
		return actions
	case PhaseRoundOver:
		return []string{"next_round"}
	default:
		return nil
	}
}

func (rt *Runtime) seatOfLocked(playerID int64) (chinchon.PlayerID, bool) {
	if playerID == 0 {
		return 0, false
	}
	for _, s := range rt.seats {
		if !s.Bot && s.PlayerID == playerID {
			return s.Seat, true
		}
	}
	return 0, false
}

func (rt *Runtime) seatsFilledLocked() bool {
	return rt.seats[0].occupied() && rt.seats[1].occupied()
}

func (rt *Runtime) appendLogLocked(content string) {
	now := time.Now()
	rt.logs = append(rt.logs, LogItem{
		ID:        fmt.Sprintf("%d-%d", now.UnixNano(), len(rt.logs)+1),
		Timestamp: now.UnixMilli(),
		Content:   content,
	})
	if len(rt.logs) > maxLogItems {
		rt.logs = append([]LogItem(nil), rt.logs[len(rt.logs)-maxLogItems:]...)
	}
}

func (rt *Runtime) resetTurnTimerLocked() {
	rt.cancelTimerLocked()
	timeout := rt.settings.TurnTimeout
	if timeout <= 0 {
		return
	}
	rt.turnDeadline = time.Now().Add(timeout)
	gen := rt.turnGen
	rt.timer = time.AfterFunc(timeout, func() {
		rt.onTurnTimeout(gen)
	})
}

// onTurnTimeout plays the rest of the idle player's turn with the easy policy. A callback
// whose clock was re-armed or cancelled while it waited for the lock does nothing.
func (rt *Runtime) onTurnTimeout(gen uint64) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if gen != rt.turnGen || rt.phase != PhasePlaying || rt.round == nil {
		return
	}
	seat := rt.round.Turn
	logger.Log.Warn("turn timeout auto-play",
		zap.String("gameID", rt.gameID),
		zap.Int("seat", int(seat)),
	)
	for step := 0; step < maxBotSteps; step++ {
		if rt.phase != PhasePlaying || rt.round.Turn != seat {
			break
		}
		if !rt.playTurnStepLocked(rt.autoplay, seat, true) {
			break
		}
	}
	rt.runBotsLocked()
	rt.saveSnapshotLocked()
	rt.broadcastStateLocked()
}

func (rt *Runtime) cancelTimerLocked() {
	if rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}
	rt.turnGen++
	rt.turnDeadline = time.Time{}
}

// Close stops the turn clock and disconnects subscribers.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	rt.cancelTimerLocked()
	for pid, ch := range rt.subscribers {
		delete(rt.subscribers, pid)
		close(ch)
	}
}

func (rt *Runtime) countdownSecondsLocked() int {
	if rt.turnDeadline.IsZero() {
		return 0
	}
	diff := time.Until(rt.turnDeadline)
	if diff <= 0 {
		return 0
	}
	return int(diff / defaultCountdownUnit)
}

func seatIndex(p chinchon.PlayerID) int {
	return int(p) - 1
}

// IsMoveError reports whether err is a game rule violation rather than a server fault.
func IsMoveError(err error) bool {
	var me *chinchon.MoveError
	return errors.As(err, &me)
}
