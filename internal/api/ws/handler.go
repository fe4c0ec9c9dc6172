// Package ws terminates websocket transports and feeds the realtime
// collaboration core. One goroutine per connection reads client frames;
// outbound fan-out goes through the per-connection write pump.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kanloop/kanloop/internal/domain"
	"github.com/kanloop/kanloop/internal/realtime"
	"github.com/kanloop/kanloop/internal/server/middleware"
)

// Handler owns the websocket endpoint. The board repository is the external
// CRUD collaborator used by addEditBoard; broadcasts go out only after its
// writes return successfully.
type Handler struct {
	svc    *realtime.Service
	boards domain.BoardRepository
}

func NewHandler(svc *realtime.Service, boards domain.BoardRepository) *Handler {
	return &Handler{svc: svc, boards: boards}
}

// Serve upgrades the request and runs the connection until the peer goes
// away. The auth middleware has already verified the identity.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cl := newClient(conn)
	connID := h.svc.Connect(cl)
	// Disconnect is the single cleanup path: it cascades the room leave and
	// the presence broadcast, then drops the registry entry.
	defer h.svc.Disconnect(connID)

	if err := h.svc.Authenticate(connID, user); err != nil {
		log.Error().Err(err).Str("conn_id", connID.String()).Msg("bind user")
		_ = conn.Close(websocket.StatusInternalError, "bind failed")
		return
	}

	go cl.writePump(ctx)

	log.Debug().Str("conn_id", connID.String()).Str("user", user.Username).Msg("websocket connected")

	for {
		_, data, readErr := conn.Read(ctx)
		if readErr != nil {
			if websocket.CloseStatus(readErr) == -1 && !errors.Is(readErr, context.Canceled) {
				log.Debug().Err(readErr).Str("conn_id", connID.String()).Msg("websocket read")
			}
			return
		}
		h.dispatch(ctx, connID, user, data)
	}
}

// clientFrame is one inbound wire frame with the payload left undecoded.
type clientFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// dispatch routes one client frame. A malformed or unknown frame is logged
// and ignored; one misbehaving client must never affect other connections.
func (h *Handler) dispatch(ctx context.Context, connID uuid.UUID, user domain.Identity, raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Debug().Err(err).Str("conn_id", connID.String()).Msg("malformed client frame")
		return
	}

	switch frame.Event {
	case realtime.EventJoinBoardGroup, realtime.EventJoinBoard:
		h.handleJoinBoard(connID, frame.Data)

	case realtime.EventJoinProjectGroup:
		h.handleJoinProject(connID, frame.Data)

	case realtime.EventSendMessage:
		h.handleSendMessage(ctx, connID, user, frame.Data)

	case realtime.EventAddEditBoard:
		h.handleAddEditBoard(ctx, connID, user, frame.Data)

	default:
		log.Debug().Str("event", frame.Event).Str("conn_id", connID.String()).Msg("unhandled client event")
	}
}

type joinPayload struct {
	BoardID   uuid.UUID `json:"boardId"`
	ProjectID uuid.UUID `json:"projectId"`
}

func (h *Handler) handleJoinBoard(connID uuid.UUID, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.BoardID == uuid.Nil {
		log.Debug().Str("conn_id", connID.String()).Msg("join without board id")
		return
	}

	if _, err := h.svc.JoinBoard(connID, p.BoardID); err != nil {
		log.Warn().Err(err).Str("conn_id", connID.String()).Str("board_id", p.BoardID.String()).Msg("join board")
	}
}

func (h *Handler) handleJoinProject(connID uuid.UUID, data json.RawMessage) {
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ProjectID == uuid.Nil {
		log.Debug().Str("conn_id", connID.String()).Msg("join without project id")
		return
	}

	if err := h.svc.JoinProject(connID, p.ProjectID); err != nil {
		log.Warn().Err(err).Str("conn_id", connID.String()).Str("project_id", p.ProjectID.String()).Msg("join project")
	}
}

type messageSendPayload struct {
	Text string `json:"text"`
}

func (h *Handler) handleSendMessage(ctx context.Context, connID uuid.UUID, user domain.Identity, data json.RawMessage) {
	var p messageSendPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Text == "" {
		return
	}

	boardID, ok := h.svc.BoardOf(connID)
	if !ok {
		log.Debug().Str("conn_id", connID.String()).Msg("message from connection outside any board")
		return
	}

	if err := h.svc.Broadcaster().RelayMessage(ctx, boardID, user, p.Text); err != nil {
		log.Warn().Err(err).Str("board_id", boardID.String()).Msg("relay message")
	}
}

type addEditBoardPayload struct {
	BoardID   *uuid.UUID `json:"boardId,omitempty"`
	ProjectID uuid.UUID  `json:"projectId"`
	Title     string     `json:"title"`
}

// handleAddEditBoard forwards a board create/rename to the CRUD collaborator
// and, once the write has committed, broadcasts the updated board.
func (h *Handler) handleAddEditBoard(ctx context.Context, connID uuid.UUID, user domain.Identity, data json.RawMessage) {
	var p addEditBoardPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Title == "" {
		log.Debug().Str("conn_id", connID.String()).Msg("malformed addEditBoard")
		return
	}

	if p.BoardID == nil {
		h.createBoard(ctx, connID, user, p)
		return
	}
	h.renameBoard(ctx, connID, *p.BoardID, p.Title)
}

func (h *Handler) createBoard(ctx context.Context, connID uuid.UUID, user domain.Identity, p addEditBoardPayload) {
	now := time.Now()
	board := &domain.Board{
		ID:        uuid.New(),
		ProjectID: p.ProjectID,
		Title:     p.Title,
		CreatedBy: user.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.boards.Create(ctx, board); err != nil {
		log.Error().Err(err).Str("conn_id", connID.String()).Msg("create board")
		return
	}

	if err := h.svc.Broadcaster().NotifyProject(ctx, board.ProjectID, board); err != nil {
		log.Warn().Err(err).Str("board_id", board.ID.String()).Msg("notify project")
	}
}

func (h *Handler) renameBoard(ctx context.Context, connID, boardID uuid.UUID, title string) {
	board, err := h.boards.GetByID(ctx, boardID)
	if err != nil {
		log.Warn().Err(err).Str("conn_id", connID.String()).Str("board_id", boardID.String()).Msg("edit unknown board")
		return
	}

	board.Title = title
	board.UpdatedAt = time.Now()
	if err := h.boards.Update(ctx, board); err != nil {
		log.Error().Err(err).Str("board_id", boardID.String()).Msg("update board")
		return
	}

	if err := h.svc.Broadcaster().BroadcastUpdate(ctx, board.ID, realtime.UpdateBoard, board); err != nil {
		log.Warn().Err(err).Str("board_id", board.ID.String()).Msg("broadcast board update")
	}
	if err := h.svc.Broadcaster().NotifyProject(ctx, board.ProjectID, board); err != nil {
		log.Warn().Err(err).Str("board_id", board.ID.String()).Msg("notify project")
	}
}
