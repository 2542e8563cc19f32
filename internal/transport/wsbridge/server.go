// Package wsbridge exposes the currency screen to remote renderers over
// WebSocket. Each connection drives its own engine.Screen.
package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"local_currency/internal/engine"
)

// ScreenFactory builds the screen of a new session. The navigator is
// signaled when the session's selection has been committed.
type ScreenFactory func(sessionID string, nav engine.Navigator) *engine.Screen

// SessionObserver is notified about session lifetimes (metrics).
type SessionObserver interface {
	SessionOpened()
	SessionClosed()
}

// Inbound operations.
const (
	OpActivate = "activate"
	OpRetry    = "retry"
	OpQuery    = "query"
	OpSelect   = "select"
	OpDismiss  = "dismiss"
)

// Outbound frame types.
const (
	FrameState = "state"
	FrameDone  = "done"
	FrameError = "error"
)

// Intent is a message received from the renderer.
type Intent struct {
	Op     string `json:"op"`
	Text   string `json:"text,omitempty"`
	Symbol string `json:"symbol,omitempty"`
}

// Frame is a message sent to the renderer.
type Frame struct {
	Type    string           `json:"type"`
	Session string           `json:"session,omitempty"`
	State   *engine.Snapshot `json:"state,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Server upgrades HTTP requests and runs one session per connection.
type Server struct {
	newScreen ScreenFactory
	observer  SessionObserver
	upgrader  websocket.Upgrader
	wg        sync.WaitGroup

	ReadTimeout  time.Duration
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// NewServer creates a bridge. observer may be nil.
func NewServer(newScreen ScreenFactory, observer SessionObserver) *Server {
	return &Server{
		newScreen: newScreen,
		observer:  observer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Renderers are served from arbitrary local origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// ServeHTTP handles the upgrade and blocks until the session ends.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WS Upgrade failed", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	sess := newSession(uuid.NewString(), conn, s)
	if s.observer != nil {
		s.observer.SessionOpened()
		defer s.observer.SessionClosed()
	}
	sess.run(r.Context())
}

// Wait blocks until every session has ended.
func (s *Server) Wait() {
	s.wg.Wait()
}

type session struct {
	id     string
	conn   *websocket.Conn
	srv    *Server
	screen *engine.Screen

	writeMu sync.Mutex
	done    chan struct{}
	doneMu  sync.Once
}

func newSession(id string, conn *websocket.Conn, srv *Server) *session {
	sess := &session{id: id, conn: conn, srv: srv, done: make(chan struct{})}
	sess.screen = srv.newScreen(id, engine.NavigatorFunc(sess.finish))
	return sess
}

// finish is called from the screen loop once the commit succeeded.
func (s *session) finish() {
	s.doneMu.Do(func() { close(s.done) })
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.conn.Close()

	log := slog.With(slog.String("session", s.id))
	log.Info("WS Session opened", slog.String("remote", s.conn.RemoteAddr().String()))
	defer log.Info("WS Session closed")

	go s.screen.Run(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Closing the socket unblocks the reader.
		defer s.conn.Close()
		defer cancel()
		s.writeLoop(ctx, log)
	}()

	s.readLoop(ctx, log)
	cancel()
	wg.Wait()
}

func (s *session) readLoop(ctx context.Context, log *slog.Logger) {
	if err := s.extendReadDeadline(); err != nil {
		log.Warn("WS Read deadline error", slog.Any("error", err))
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.extendReadDeadline()
	})

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("WS Read error", slog.Any("error", err))
			}
			return
		}
		if err := s.extendReadDeadline(); err != nil {
			log.Warn("WS Read deadline error", slog.Any("error", err))
			return
		}

		var in Intent
		if err := json.Unmarshal(msg, &in); err != nil {
			s.sendError(fmt.Sprintf("malformed message: %v", err))
			continue
		}
		if err := s.dispatch(in); err != nil {
			s.sendError(err.Error())
		}
	}
}

func (s *session) dispatch(in Intent) error {
	switch in.Op {
	case OpActivate:
		s.screen.Activate()
	case OpRetry:
		s.screen.Retry()
	case OpQuery:
		s.screen.UpdateQuery(in.Text)
	case OpSelect:
		s.screen.SelectCurrency(in.Symbol)
	case OpDismiss:
		s.screen.DismissError()
	default:
		return fmt.Errorf("unknown op %q", in.Op)
	}
	return nil
}

// writeLoop streams snapshots until the screen completes or ctx ends.
func (s *session) writeLoop(ctx context.Context, log *slog.Logger) {
	snaps, unsubscribe := s.screen.Subscribe()
	defer unsubscribe()

	var ping <-chan time.Time
	if s.srv.PingInterval > 0 {
		ticker := time.NewTicker(s.srv.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-snaps:
			if err := s.write(Frame{Type: FrameState, Session: s.id, State: &snap}); err != nil {
				log.Warn("WS Write error", slog.Any("error", err))
				return
			}
		case <-s.done:
			// The final snapshot is published before the navigator fires.
			select {
			case snap := <-snaps:
				if err := s.write(Frame{Type: FrameState, Session: s.id, State: &snap}); err != nil {
					return
				}
			default:
			}
			if err := s.write(Frame{Type: FrameDone, Session: s.id}); err != nil {
				return
			}
			s.closeNormally()
			return
		case <-ping:
			if err := s.control(websocket.PingMessage, nil); err != nil {
				log.Warn("WS Ping error", slog.Any("error", err))
				return
			}
		}
	}
}

func (s *session) sendError(msg string) {
	if err := s.write(Frame{Type: FrameError, Session: s.id, Message: msg}); err != nil {
		slog.Warn("WS Write error", slog.String("session", s.id), slog.Any("error", err))
	}
}

func (s *session) write(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.srv.WriteTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *session) extendReadDeadline() error {
	return s.conn.SetReadDeadline(time.Now().Add(s.srv.ReadTimeout))
}

func (s *session) control(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteControl(msgType, data, time.Now().Add(s.srv.WriteTimeout))
}

func (s *session) closeNormally() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "selection committed")
	if err := s.control(websocket.CloseMessage, msg); err != nil {
		slog.Debug("WS Close frame not sent", slog.String("session", s.id), slog.Any("error", err))
	}
}
