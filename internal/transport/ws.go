package transport

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/BillStark001/meetscript/internal/auth"
	"github.com/BillStark001/meetscript/internal/codes"
	"github.com/BillStark001/meetscript/internal/meeting"
	"github.com/BillStark001/meetscript/internal/models"
	"github.com/BillStark001/meetscript/internal/observability/logging"
)

// timestampHeaderLen is the big-endian millisecond timestamp prefix on every
// upload data frame.
const timestampHeaderLen = 8

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler serves the upload (provide) and observe WebSocket channels.
type WSHandler struct {
	auth      *auth.Authenticator
	scheduler *meeting.Scheduler
	log       zerolog.Logger
}

// NewWSHandler creates the streaming channel handler.
func NewWSHandler(authenticator *auth.Authenticator, scheduler *meeting.Scheduler) *WSHandler {
	return &WSHandler{
		auth:      authenticator,
		scheduler: scheduler,
		log:       logging.WithComponent("ws"),
	}
}

type controlFrame struct {
	Code *int `json:"code"`
}

// parseControl opportunistically parses a frame as a JSON control message.
// Anything that fails to parse is ordinary audio data, never an error.
func parseControl(payload []byte) (int, bool) {
	var frame controlFrame
	if err := json.Unmarshal(payload, &frame); err != nil || frame.Code == nil {
		return 0, false
	}
	return *frame.Code, true
}

func closeWith(conn *websocket.Conn, c codes.Code) {
	msg := websocket.FormatCloseMessage(c.WSClose(), c.Detail())
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}

func closeProtocol(conn *websocket.Conn, wsCode int, reason string) {
	msg := websocket.FormatCloseMessage(wsCode, reason)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}

func sendAck(conn *websocket.Conn) error {
	return conn.WriteJSON(codes.Envelope{Code: codes.Done, Detail: "Connection Accepted."})
}

// Provide handles an upload connection: format negotiation at setup, token
// verification, then a stream of timestamped binary audio frames.
func (h *WSHandler) Provide(w http.ResponseWriter, r *http.Request) {
	format, err := ParseSampleFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Upgrade failed")
		return
	}
	defer conn.Close()

	if _, err := h.auth.Verify(r.URL.Query().Get("token"), auth.ScopeProvide); err != nil {
		closeWith(conn, codes.ErrAuthFailed)
		return
	}
	sess := h.scheduler.Active()
	if sess == nil {
		closeWith(conn, codes.ErrMeetingNotStarted)
		return
	}
	if err := sendAck(conn); err != nil {
		return
	}

	connID := conn.RemoteAddr().String()
	defer sess.ReleaseProvider(connID)
	log := logging.WithConnection("provide", sess.ID, connID)
	log.Info().Str("format", format.String()).Msg("Provider connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("Provider read ended")
			return
		}

		if code, ok := parseControl(payload); ok {
			if code == 1 {
				closeProtocol(conn, websocket.CloseNormalClosure, "")
				return
			}
			continue
		}

		if len(payload) < timestampHeaderLen {
			closeProtocol(conn, websocket.CloseProtocolError, "frame shorter than timestamp header")
			return
		}

		chunk := models.AudioChunk{
			TimestampMillis: binary.BigEndian.Uint64(payload[:timestampHeaderLen]),
			Samples:         format.Decode(payload[timestampHeaderLen:]),
		}
		if err := sess.EnqueueAudio(connID, chunk); err != nil {
			if errors.Is(err, meeting.ErrBufferFull) {
				closeProtocol(conn, websocket.CloseTryAgainLater, "audio buffer at capacity")
				return
			}
			log.Error().Err(err).Msg("Enqueue failed")
			return
		}
	}
}

// wsSink adapts an observer connection to the broadcaster. All writes share
// one mutex; gorilla connections allow a single concurrent writer.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(event meeting.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(event.Payload)
}

func (s *wsSink) close(wsCode int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(wsCode, reason)
	_ = s.conn.WriteMessage(websocket.CloseMessage, msg)
}

// Observe handles an observer connection: after the acceptance ack it pushes
// transcript and translation events until disconnect.
func (h *WSHandler) Observe(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("Upgrade failed")
		return
	}
	defer conn.Close()

	if _, err := h.auth.Verify(r.URL.Query().Get("token"), auth.ScopeConsume); err != nil {
		closeWith(conn, codes.ErrAuthFailed)
		return
	}
	sess := h.scheduler.Active()
	if sess == nil {
		closeWith(conn, codes.ErrMeetingNotStarted)
		return
	}
	if err := sendAck(conn); err != nil {
		return
	}

	connID := uuid.NewString()
	sink := &wsSink{conn: conn}
	sess.Join(connID, sink)
	defer sess.Leave(connID)
	log := logging.WithConnection("observe", sess.ID, connID)
	log.Info().Msg("Observer connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("Observer read ended")
			return
		}
		if code, ok := parseControl(payload); ok && code == 1 {
			sink.close(websocket.CloseNormalClosure, "")
			return
		}
	}
}
