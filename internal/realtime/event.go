package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/kanloop/kanloop/internal/domain"
)

// Wire event names. These names and their payload shapes are the client
// compatibility contract and must not be renamed.
const (
	// client -> server
	EventJoinBoardGroup   = "JoinBoardGroup"
	EventJoinBoard        = "JoinBoard" // alias of JoinBoardGroup
	EventJoinProjectGroup = "JoinProjectGroup"
	EventAddEditBoard     = "addEditBoard"
	EventSendMessage      = "SendMessage"

	// server -> room
	EventUserJoinedBoard = "UserJoinedBoard"
	EventUserLeftBoard   = "UserLeftBoard"
	EventUsersInBoard    = "UsersInBoard"
	EventKanbanUpdate    = "KanbanUpdate"
	EventBoardUpdate     = "BoardUpdate"
	EventBoardListUpdate = "BoardListUpdate"
	EventReceiveMessage  = "ReceiveMessage"
	EventUserInOutMsg    = "UserInOutMsg"
)

// Event is a single wire frame in either direction.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Encode marshals the frame for transport.
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("realtime.Event.Encode: %w", err)
	}
	return b, nil
}

// UpdateKind selects which structural-update event a broadcast carries.
type UpdateKind string

const (
	UpdateKanban    UpdateKind = "kanban"     // card-level change
	UpdateBoard     UpdateKind = "board"      // board metadata change
	UpdateBoardList UpdateKind = "board_list" // list set change
)

// EventName maps an update kind to its wire event.
func (k UpdateKind) EventName() string {
	switch k {
	case UpdateKanban:
		return EventKanbanUpdate
	case UpdateBoard:
		return EventBoardUpdate
	case UpdateBoardList:
		return EventBoardListUpdate
	default:
		return EventKanbanUpdate
	}
}

// MessagePayload is the body of a ReceiveMessage frame.
type MessagePayload struct {
	Text string          `json:"text"`
	From domain.Identity `json:"from"`
}
