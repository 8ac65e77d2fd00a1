package protocol

// 错误码
const (
	ErrCodeUnknown    = 1000
	ErrCodeInvalidMsg = 1001
	ErrCodeRateLimit  = 1002
	ErrCodeReconnect  = 1003

	ErrCodeServerMaintenance = 1100

	ErrCodeRoomNotFound = 2001
	ErrCodeRoomFull     = 2002
	ErrCodeNotInRoom    = 2003
	ErrCodeGameStarted  = 2004
	ErrCodeSessionGone  = 2005
	ErrCodeInRoom       = 2006

	ErrCodeGameNotStart   = 3001
	ErrCodeNotYourTurn    = 3002
	ErrCodeCardNotFound   = 3003
	ErrCodeInvalidCapture = 3004
	ErrCodeInvalidReorder = 3005
	ErrCodeInvalidTeam    = 3006
	ErrCodeGameFinished   = 3007
	ErrCodePlayerNotFound = 3008
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:           "Unknown error.",
	ErrCodeInvalidMsg:        "Invalid message.",
	ErrCodeRateLimit:         "Too many messages, slow down.",
	ErrCodeReconnect:         "Reconnect token is invalid or expired.",
	ErrCodeServerMaintenance: "Server is under maintenance.",
	ErrCodeRoomNotFound:      "Room not found.",
	ErrCodeRoomFull:          "Room is full.",
	ErrCodeNotInRoom:         "You are not in a room.",
	ErrCodeGameStarted:       "Game already started.",
	ErrCodeSessionGone:       "Game session is closed.",
	ErrCodeInRoom:            "You are already in a room.",
	ErrCodeGameNotStart:      "Game has not started.",
	ErrCodeNotYourTurn:       "Not your turn.",
	ErrCodeCardNotFound:      "Card not found.",
	ErrCodeInvalidCapture:    "Invalid capture.",
	ErrCodeInvalidReorder:    "Invalid hand reordering.",
	ErrCodeInvalidTeam:       "Invalid team selection.",
	ErrCodeGameFinished:      "Game is over.",
	ErrCodePlayerNotFound:    "Player not found.",
}
