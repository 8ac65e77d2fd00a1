package apperrors

import (
	"github.com/palemoky/chkobba/internal/protocol"
)

// GameError 游戏错误（房间和会话共享）
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// 预定义错误
var (
	// 房间
	ErrRoomNotFound  = &GameError{Code: protocol.ErrCodeRoomNotFound, Message: "Room not found."}
	ErrRoomFull      = &GameError{Code: protocol.ErrCodeRoomFull, Message: "Room is full."}
	ErrNotInRoom     = &GameError{Code: protocol.ErrCodeNotInRoom, Message: "You are not in a room."}
	ErrGameStarted   = &GameError{Code: protocol.ErrCodeGameStarted, Message: "Game already started."}
	ErrSessionClosed = &GameError{Code: protocol.ErrCodeSessionGone, Message: "Game session is closed."}
	ErrAlreadyInRoom = &GameError{Code: protocol.ErrCodeInRoom, Message: "You are already in a room."}
	ErrMaintenance   = &GameError{Code: protocol.ErrCodeServerMaintenance, Message: "Server is under maintenance, no new games."}

	// 阶段与轮次
	ErrGameNotStart   = &GameError{Code: protocol.ErrCodeGameNotStart, Message: "Game has not started."}
	ErrGameFinished   = &GameError{Code: protocol.ErrCodeGameFinished, Message: "Game is over."}
	ErrNotYourTurn    = &GameError{Code: protocol.ErrCodeNotYourTurn, Message: "Not your turn."}
	ErrPlayerNotFound = &GameError{Code: protocol.ErrCodePlayerNotFound, Message: "Player not found."}

	// 牌
	ErrCardNotInHand  = &GameError{Code: protocol.ErrCodeCardNotFound, Message: "Card not in your hand."}
	ErrCardNotOnTable = &GameError{Code: protocol.ErrCodeCardNotFound, Message: "One or more cards not on the table."}

	// 吃牌
	ErrInvalidCapture  = &GameError{Code: protocol.ErrCodeInvalidCapture, Message: "Invalid capture. Cards must either all match the rank or sum to the card value."}
	ErrKoomNotLastCard = &GameError{Code: protocol.ErrCodeInvalidCapture, Message: "Koom can only be played with your last card."}
	ErrCannotKoom      = &GameError{Code: protocol.ErrCodeInvalidCapture, Message: "This card cannot Koom."}

	ErrInvalidReorder = &GameError{Code: protocol.ErrCodeInvalidReorder, Message: "Invalid hand reordering."}

	// 组队
	ErrInvalidTeamSelection = &GameError{Code: protocol.ErrCodeInvalidTeam, Message: "Invalid team selection."}
	ErrTeamFull             = &GameError{Code: protocol.ErrCodeInvalidTeam, Message: "Both teams are full."}
)
