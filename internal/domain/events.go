package domain

// Inbound request types.
const (
	RequestCreateRoom    = "host:create_room"
	RequestStartQuestion = "host:start_question"
	RequestReveal        = "host:reveal"
	RequestJoin          = "player:join"
	RequestAnswer        = "player:answer"
	RequestPresenterJoin = "presenter:join"
)

// Outbound room channel events.
const (
	EventRoomUpdate    = "room:update"
	EventRoomClosed    = "room:closed"
	EventQuestion      = "game:question"
	EventAnsweredCount = "game:answered_count"
	EventReveal        = "game:reveal"
	EventGameOver      = "game:over"
)
