package service

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToSession(sessionID string, msgType string, payload interface{})
	DisconnectSession(sessionID string)
}

// Live message types sent to session subscribers
const (
	MsgVisibleQuestions = "visible_questions"
	MsgSessionCompleted = "session_completed"
)
