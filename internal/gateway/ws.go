// ABOUTME: Websocket endpoint carrying live events between the server and browsers
// ABOUTME: Delivers presence events outbound and accepts message/typing frames inbound

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glotdesk/glotdesk/internal/auth"
	"github.com/glotdesk/glotdesk/internal/presence"
	"github.com/glotdesk/glotdesk/internal/relay"
	"github.com/glotdesk/glotdesk/internal/store"
)

const (
	// wsWriteWait bounds how long a single frame write may take.
	wsWriteWait = 10 * time.Second

	// wsPongWait is how long we wait for a pong before dropping the
	// connection. Pings go out at a fraction of this interval.
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10

	// wsMaxFrameSize caps inbound frames. Voice recordings go over HTTP,
	// so websocket frames stay small.
	wsMaxFrameSize = 32 << 10
)

// The chat widget is embedded on customers' own sites, so any origin may
// connect. Authentication happens via the token, not the origin.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsFrame is the envelope for inbound client frames.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsSendMessage is the payload of an inbound "sendMessage" frame.
// The optional timestamp is the sender's clock, stored as given.
type wsSendMessage struct {
	Text      string    `json:"text"`
	ClientID  string    `json:"client_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// wsTyping is the payload of an inbound "typing" frame.
type wsTyping struct {
	ClientID string `json:"client_id,omitempty"`
	Typing   bool   `json:"typing"`
}

// handleWebSocket handles GET /ws. The caller authenticates with a
// ?token= query parameter and then receives presence events as JSON
// frames. Inbound frames carry messages and typing notifications.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		g.sendJSONError(w, http.StatusUnauthorized, "missing token")
		return
	}
	principal, err := g.verifier.Verify(token)
	if err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		g.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	events, connID := g.presence.Join(r.Context(), principal.ID)
	g.logger.Info("websocket connected",
		"identifier", principal.ID,
		"role", principal.Role,
		"conn_id", connID)

	go g.wsWritePump(conn, events)
	g.wsReadPump(r, conn, principal)

	g.presence.Leave(principal.ID, connID)
	_ = conn.Close()
	g.logger.Info("websocket disconnected", "identifier", principal.ID, "conn_id", connID)
}

// wsWritePump is the single writer for the connection. It forwards
// presence events as JSON frames and keeps the connection alive with
// pings. Exits when the event channel closes.
func (g *Gateway) wsWritePump(conn *websocket.Conn, events <-chan *presence.Event) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// wsReadPump consumes inbound frames until the connection drops.
func (g *Gateway) wsReadPump(r *http.Request, conn *websocket.Conn, principal *auth.Principal) {
	conn.SetReadLimit(wsMaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Debug("websocket read error", "identifier", principal.ID, "error", err)
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			g.wsError(principal.ID, "invalid frame")
			continue
		}

		switch frame.Event {
		case "sendMessage":
			g.wsHandleSendMessage(r, principal, frame.Data)
		case "typing":
			g.wsHandleTyping(r, principal, frame.Data)
		default:
			g.wsError(principal.ID, "unknown event "+frame.Event)
		}
	}
}

func (g *Gateway) wsHandleSendMessage(r *http.Request, principal *auth.Principal, data json.RawMessage) {
	var payload wsSendMessage
	if err := json.Unmarshal(data, &payload); err != nil || payload.Text == "" {
		g.wsError(principal.ID, "sendMessage requires text")
		return
	}

	client, agentID, sender, err := g.messagePair(r.Context(), principal, payload.ClientID)
	if err != nil {
		g.wsError(principal.ID, wsPairErrorMessage(err))
		return
	}

	if _, err := g.relay.SendText(r.Context(), &relay.TextMessage{
		Sender:    sender,
		ClientID:  client.ID,
		AgentID:   agentID,
		Text:      payload.Text,
		Timestamp: payload.Timestamp,
	}); err != nil {
		g.logger.Error("sending websocket message", "identifier", principal.ID, "error", err)
		g.wsError(principal.ID, "message could not be delivered")
	}
}

func (g *Gateway) wsHandleTyping(r *http.Request, principal *auth.Principal, data json.RawMessage) {
	var payload wsTyping
	if err := json.Unmarshal(data, &payload); err != nil {
		g.wsError(principal.ID, "invalid typing payload")
		return
	}

	client, agentID, sender, err := g.messagePair(r.Context(), principal, payload.ClientID)
	if err != nil {
		// Typing is best-effort, drop it silently.
		return
	}

	to := agentID
	if sender == store.SenderAgent {
		to = client.ID
	}
	g.relay.NotifyTyping(principal.ID, to, payload.Typing)
}

// wsError pushes an error event through the user's own event channel so
// the write pump stays the only writer on the connection.
func (g *Gateway) wsError(identifier, message string) {
	g.presence.EmitToUser(identifier, &presence.Event{
		Name: "error",
		Data: map[string]string{"message": message},
	})
}

// wsPairErrorMessage keeps websocket error payloads aligned with the HTTP
// error responses for the same failures.
func wsPairErrorMessage(err error) string {
	switch {
	case errors.Is(err, errNoAssignedAgent),
		errors.Is(err, errClientIDRequired),
		errors.Is(err, errNotYourClient):
		return err.Error()
	default:
		return "client not found"
	}
}
