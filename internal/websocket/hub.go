package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxballot/server/adapters/stt"
	"github.com/voxballot/server/adapters/surface"
	"github.com/voxballot/server/adapters/tts"
	"github.com/voxballot/server/domain/entities"
	"github.com/voxballot/server/domain/repositories"
	"github.com/voxballot/server/internal/voice"
	"github.com/voxballot/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Surface syncs are the largest.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the voting app's origin once it is deployed
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients. Each client owns its own engine
// session; the hub only tracks membership and shares the account service.
type Hub struct {
	// Registered clients, keyed by voter ID.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	account *usecase.AccountService
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(account *usecase.AccountService, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		account:    account,
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			previous := h.clients[client.voterID]
			h.clients[client.voterID] = client
			h.mu.Unlock()
			if previous != nil {
				// The replaced connection's pumps are still running; its
				// outbound queue is closed through dispose, which fences
				// off late writers first.
				previous.dispose()
			}
			h.logger.Info("Client registered", zap.String("voterID", client.voterID))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.voterID]; ok && current == client {
				delete(h.clients, client.voterID)
			}
			h.mu.Unlock()
			client.dispose()
			h.logger.Info("Client unregistered", zap.String("voterID", client.voterID))
		}
	}
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is one connected voter: the websocket connection plus the voice
// engine session scoped to it.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages. Writers hold sendMu, so the
	// channel is only closed once every writer is fenced off.
	send       chan WriteData
	sendMu     sync.Mutex
	sendClosed bool

	voterID string

	validator *MessageValidator
	logger    *zap.Logger

	// Engine session, disposed with the connection.
	scheduler  *voice.Scheduler
	surface    *surface.Memory
	remote     *remoteRecognizer
	google     *stt.GoogleRecognizer
	manager    *voice.Manager
	dispatcher *usecase.Dispatcher

	disposeOnce sync.Once
}

// HandleWebSocketWithAuth upgrades the connection and builds the engine
// session for a pre-authenticated voter.
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, voterID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	// Clients without a recognition engine announce it up front so the
	// session manager can report the capability as missing. Clients may
	// also request server-side recognition and stream raw audio instead.
	supported := c.QueryParam("speech") != "unsupported"
	serverSide := c.QueryParam("recognizer") == "server"

	client := newClient(hub, conn, voterID, supported, serverSide, logger)
	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// newClient wires one engine session around a connection.
func newClient(hub *Hub, conn *websocket.Conn, voterID string, supported, serverSide bool, logger *zap.Logger) *Client {
	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, 256),
		voterID:   voterID,
		validator: NewMessageValidator(),
		logger:    logger.With(zap.String("voterID", voterID)),
	}

	client.scheduler = voice.NewScheduler(clock.New())
	client.surface = surface.NewMemory(func(ctx context.Context, e surface.Element) error {
		client.sendJSON(CreateInvokeMessage(e.ID, e.Role))
		return nil
	})

	// Server-side recognition streams the client's raw audio through Google
	// Cloud Speech; otherwise the client's own engine recognizes and sends
	// text results.
	var recognizer repositories.SpeechRecognizer
	if serverSide {
		google, err := stt.NewGoogleRecognizer(stt.DefaultAudioConfig(), client.logger)
		if err != nil {
			client.logger.Warn("server-side recognition unavailable, falling back to client engine", zap.Error(err))
		} else {
			client.google = google
			recognizer = google
		}
	}
	if recognizer == nil {
		client.remote = newRemoteRecognizer(client.sendJSON, supported)
		recognizer = client.remote
	}

	// With an ElevenLabs key the server synthesizes feedback itself and
	// streams audio frames down; otherwise the client's engine speaks.
	var synthesizer repositories.SpeechSynthesizer
	if os.Getenv("ELEVEN_LABS_API_KEY") != "" {
		eleven, err := tts.NewElevenLabs(tts.NewElevenLabsConfigFromEnv(), client.sendAudio, client.logger)
		if err != nil {
			client.logger.Warn("server-side synthesis unavailable, falling back to client engine", zap.Error(err))
		} else {
			synthesizer = eleven
		}
	}
	if synthesizer == nil {
		synthesizer = newRemoteSynthesizer(client.sendJSON)
	}

	router := voice.NewRouter(client.surface, client.logger)
	resolver := voice.NewResolver(client.surface, client.scheduler, client.logger)

	client.dispatcher = usecase.NewDispatcher(
		router,
		resolver,
		client.surface,
		synthesizer,
		client.scheduler,
		client.logout,
		client.logger,
	)

	client.manager = voice.NewManager(
		recognizer,
		synthesizer,
		client.scheduler,
		func(status entities.ListeningStatus) {
			client.sendJSON(CreateStatusMessage(status))
		},
		client.onUtterance,
		client.logger,
	)

	return client
}

// onUtterance runs one dispatch pass per recognized utterance. Utterances
// arrive from the read loop one at a time, so dispatch is synchronous.
func (c *Client) onUtterance(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.dispatcher.Dispatch(ctx, text); err != nil {
		c.logger.Warn("dispatch finished with error", zap.Error(err))
	}
}

// logout clears the voter's session and navigates the client back to login.
func (c *Client) logout(ctx context.Context) error {
	if err := c.hub.account.Logout(ctx, c.voterID); err != nil {
		return err
	}
	c.manager.Stop()
	c.sendJSON(CreateNavigateMessage(entities.ContextLogin))
	return nil
}

// dispose tears down the engine session: pending restart and retry timers
// are cancelled, then the outbound queue is closed so writePump drains and
// exits. The connection's own goroutines may outlive disposal (a replaced
// connection keeps reading until its socket dies), so late sends are
// dropped instead of hitting a closed channel.
func (c *Client) dispose() {
	c.disposeOnce.Do(func() {
		c.manager.Close()
		c.scheduler.Close()

		c.sendMu.Lock()
		c.sendClosed = true
		close(c.send)
		c.sendMu.Unlock()
	})
}

// sendAudio queues one synthesized audio frame for the client.
func (c *Client) sendAudio(chunk []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.BinaryMessage, Payload: chunk}:
	default:
		c.logger.Warn("Outbound queue full, dropping audio frame")
	}
}

// sendJSON marshals v onto the outbound queue. Reports false when the
// session is disposed or the queue is full; the message is dropped rather
// than blocking the engine.
func (c *Client) sendJSON(v interface{}) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal outbound message", zap.Error(err))
		return false
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
		return true
	default:
		c.logger.Warn("Outbound queue full, dropping message")
		return false
	}
}

// readPump pumps messages from the websocket connection into the engine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.processMessage(message)
		case websocket.BinaryMessage:
			// Raw audio for server-side recognition.
			if c.google != nil {
				c.google.Feed(message)
			} else {
				c.logger.Warn("Received audio but server-side recognition is not active")
			}
		default:
			c.logger.Warn("Received unexpected message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the engine to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage validates and routes one incoming message.
func (c *Client) processMessage(message []byte) {
	validated, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch msg := validated.(type) {
	case *SpeechResultMessage:
		if c.remote != nil {
			c.remote.handleResult(msg.Text)
		}

	case *SpeechErrorMessage:
		if c.remote != nil {
			c.remote.handleError(repositories.RecognitionErrorKind(msg.Kind))
		}

	case *BaseMessage:
		if c.remote == nil {
			return
		}
		switch msg.Type {
		case MessageTypeSpeechStarted:
			c.remote.handleStarted()
		case MessageTypeSpeechEnded:
			c.remote.handleEnded()
		}

	case *SurfaceSyncMessage:
		c.surface.Replace(msg.Elements)
		c.logger.Debug("Surface synced", zap.Int("elements", len(msg.Elements)))

	case *ContextSetMessage:
		page := entities.PageContext(msg.Context)
		c.dispatcher.SetContext(page)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.hub.account.SetContext(ctx, c.voterID, page); err != nil {
			c.logger.Warn("Failed to persist page context", zap.Error(err))
		}

	case *ToggleMessage:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.manager.Toggle(ctx); err != nil {
			c.logger.Warn("Toggle failed", zap.Error(err))
		}

	case *PingMessage:
		c.sendJSON(CreatePongMessage(msg.Data))

	default:
		c.logger.Warn("Unhandled message", zap.Any("message", validated))
	}
}
