package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"medichat/internal/chat"
	"medichat/internal/events"
	"medichat/internal/identity"
	internalredis "medichat/internal/redis"
	"medichat/internal/transport/httpdto"
	"medichat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// inboundFrame is the client-to-gateway protocol. Everything a connection
// may do after authentication is one of these.
type inboundFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	IsTyping  bool   `json:"is_typing,omitempty"`
}

const (
	frameJoin   = "join"
	frameLeave  = "leave"
	frameTyping = "typing"
	frameAck    = "ack"
)

// presenceNotice is the payload of presence.joined/left/typing events.
type presenceNotice struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
	IsTyping    bool   `json:"is_typing,omitempty"`
}

type Handler struct {
	provider       identity.Provider
	chatSvc        *chat.Service
	hub            *Hub
	presence       *internalredis.PresenceStore
	publisher      *internalredis.Publisher
	log            *logger.Logger
	connectTimeout time.Duration
}

func NewHandler(provider identity.Provider, chatSvc *chat.Service, hub *Hub, presence *internalredis.PresenceStore, publisher *internalredis.Publisher, log *logger.Logger, connectTimeout time.Duration) *Handler {
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	return &Handler{
		provider:       provider,
		chatSvc:        chatSvc,
		hub:            hub,
		presence:       presence,
		publisher:      publisher,
		log:            log,
		connectTimeout: connectTimeout,
	}
}

// Connect authenticates the connection exactly once, then serves its
// inbound frames in order until it drops. A connection that fails
// authentication is closed and never processes a single frame.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	authCtx, cancelAuth := context.WithTimeout(c.Request.Context(), h.connectTimeout)
	ident, err := h.provider.ResolveIdentity(authCtx, token)
	cancelAuth()
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, ident.UserID, ident.Role, ident.DisplayName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	go client.WriteLoop(ctx)

	if h.presence != nil {
		if err := h.presence.SetOnline(ctx, ident.UserID, client.ID); err != nil {
			h.logErr("presence online: %v", err)
		}
		h.notifyPartners(ctx, client, events.EventTypePresenceOnline)
	}

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if h.presence != nil {
			if err := h.presence.Heartbeat(ctx, ident.UserID); err != nil {
				h.logErr("presence heartbeat: %v", err)
			}
		}
		return nil
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		h.handleFrame(ctx, client, frame)
	}

	h.disconnect(ctx, client)
}

func (h *Handler) handleFrame(ctx context.Context, client *Client, frame inboundFrame) {
	switch frame.Type {
	case frameJoin:
		h.handleJoin(ctx, client, frame.SessionID)
	case frameLeave:
		h.handleLeave(client, frame.SessionID)
	case frameTyping:
		h.relayTyping(client, frame.SessionID, frame.IsTyping)
	case frameAck:
		if err := h.chatSvc.AckDelivered(ctx, frame.MessageID, client.UserID); err != nil {
			h.logErr("ack %s: %v", frame.MessageID, err)
		}
	}
}

// handleJoin verifies session membership before the join so a room never
// gains an unauthorized listener, then announces presence to the others.
func (h *Handler) handleJoin(ctx context.Context, client *Client, sessionID string) {
	if sessionID == "" {
		return
	}
	ok, err := h.chatSvc.IsParticipant(ctx, sessionID, client.UserID)
	if err != nil || !ok {
		return
	}

	room := events.SessionChannel(sessionID)
	h.hub.Join(client, room)
	h.chatSvc.TouchLastSeen(ctx, sessionID, client.UserID)

	h.notifyRoom(room, client, events.EventTypePresenceJoined, sessionID, false)
}

func (h *Handler) handleLeave(client *Client, sessionID string) {
	if sessionID == "" {
		return
	}
	room := events.SessionChannel(sessionID)
	if !client.InRoom(room) {
		return
	}
	h.hub.Leave(client, room)
	h.notifyRoom(room, client, events.EventTypePresenceLeft, sessionID, false)
}

// relayTyping forwards an ephemeral typing signal to the other room
// members. Nothing is persisted; rapid toggling is debounced client-side.
func (h *Handler) relayTyping(client *Client, sessionID string, isTyping bool) {
	if sessionID == "" {
		return
	}
	room := events.SessionChannel(sessionID)
	if !client.InRoom(room) {
		return
	}
	h.notifyRoom(room, client, events.EventTypePresenceTyping, sessionID, isTyping)
}

func (h *Handler) disconnect(ctx context.Context, client *Client) {
	for _, room := range client.Rooms() {
		h.notifyRoom(room, client, events.EventTypePresenceLeft, sessionIDFromRoom(room), false)
	}
	h.hub.Unregister(client)

	if h.presence != nil {
		if err := h.presence.SetOffline(ctx, client.UserID, client.ID); err != nil {
			h.logErr("presence offline: %v", err)
		}
		// Another device may still hold the user online.
		online, err := h.presence.IsOnline(ctx, client.UserID)
		if err != nil {
			h.logErr("presence check: %v", err)
		} else if !online {
			h.notifyPartners(ctx, client, events.EventTypePresenceOffline)
		}
	}
}

// notifyPartners tells the user's session counterparts that the user came
// online or went offline. Delivery goes through the per-user channels so
// partners connected to other instances hear it too.
func (h *Handler) notifyPartners(ctx context.Context, client *Client, eventType string) {
	if h.publisher == nil {
		return
	}
	partners, err := h.chatSvc.SessionPartners(ctx, client.UserID)
	if err != nil {
		h.logErr("list partners: %v", err)
		return
	}
	env, err := events.NewEnvelope(eventType, "", presenceNotice{
		UserID:      client.UserID,
		Role:        string(client.Role),
		DisplayName: client.DisplayName,
	})
	if err != nil {
		return
	}
	data, err := env.Encode()
	if err != nil {
		return
	}
	for _, partner := range partners {
		if err := h.publisher.Publish(ctx, events.UserChannel(partner.UserID), data); err != nil {
			h.logErr("publish %s: %v", eventType, err)
		}
	}
}

func (h *Handler) notifyRoom(room string, from *Client, eventType, sessionID string, isTyping bool) {
	env, err := events.NewEnvelope(eventType, sessionID, presenceNotice{
		UserID:      from.UserID,
		Role:        string(from.Role),
		DisplayName: from.DisplayName,
		IsTyping:    isTyping,
	})
	if err != nil {
		return
	}
	data, err := env.Encode()
	if err != nil {
		return
	}
	h.hub.BroadcastExcept(room, data, from)
}

func sessionIDFromRoom(room string) string {
	if len(room) > len(events.ChannelPrefixSession) {
		return room[len(events.ChannelPrefixSession):]
	}
	return room
}

func (h *Handler) logErr(format string, args ...interface{}) {
	if h.log != nil {
		h.log.Errorf(format, args...)
	}
}
