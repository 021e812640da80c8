package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"lecnote/internal/logger"
	"lecnote/internal/transcript"
)

// Message types on the transcript feed.
const (
	MsgTranscript  = "transcript"
	MsgToggle      = "toggle"
	MsgLanguage    = "language"
	MsgTranslate   = "translate"
	MsgLines       = "lines"
	MsgTranslation = "translation"
	MsgError       = "error"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedMaxMessage = 64 * 1024
)

// FeedRequest is a client message on /ws/transcript.
type FeedRequest struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript,omitempty"`
	Language   string `json:"language,omitempty"`
	Index      int    `json:"index,omitempty"`
}

// FeedReply is a server message on /ws/transcript.
type FeedReply struct {
	Type       string            `json:"type"`
	Session    string            `json:"session"`
	Lines      []transcript.Line `json:"lines,omitempty"`
	Listening  bool              `json:"listening"`
	Index      int               `json:"index,omitempty"`
	Translated string            `json:"translated,omitempty"`
	Error      string            `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// same open policy as the HTTP CORS headers
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleFeed runs one transcript session per websocket connection. The
// browser reports recognizer output; the server answers with new lines.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", logger.Err(err))
		return
	}
	defer conn.Close()

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = s.opts.Language
	}
	id := uuid.NewString()
	log := s.log.With(logger.String("session", id))
	sess := transcript.NewSession(transcript.Options{Language: lang, ChunkWords: s.opts.ChunkWords})
	log.Info("transcript feed opened", logger.String("language", sess.Language()))

	conn.SetReadLimit(feedMaxMessage)
	conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	out := make(chan FeedReply, 16)
	go s.feedWriter(ctx, conn, out, log)

	send := func(reply FeedReply) {
		reply.Session = id
		select {
		case out <- reply:
		case <-ctx.Done():
		}
	}
	send(FeedReply{Type: MsgLines, Listening: sess.Listening()})

	for {
		var req FeedRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("transcript feed read failed", logger.Err(err))
			}
			break
		}
		s.handleFeedRequest(ctx, sess, req, send, log)
	}
	log.Info("transcript feed closed", logger.Int("lines", len(sess.Lines())))
}

func (s *Server) handleFeedRequest(ctx context.Context, sess *transcript.Session, req FeedRequest, send func(FeedReply), log logger.Logger) {
	switch req.Type {
	case MsgTranscript:
		lines := sess.Update(req.Transcript)
		if len(lines) > 0 {
			send(FeedReply{Type: MsgLines, Lines: lines, Listening: true})
		}
	case MsgToggle:
		listening, lines, err := sess.Toggle()
		if err != nil {
			send(FeedReply{Type: MsgError, Error: err.Error()})
			return
		}
		send(FeedReply{Type: MsgLines, Lines: lines, Listening: listening})
	case MsgLanguage:
		if err := sess.SetLanguage(req.Language); err != nil {
			send(FeedReply{Type: MsgError, Error: err.Error()})
		}
	case MsgTranslate:
		line, err := sess.Line(req.Index)
		if err != nil {
			send(FeedReply{Type: MsgError, Error: err.Error()})
			return
		}
		translated, err := s.translator.Translate(ctx, line.Text)
		if err != nil {
			log.Error("line translation failed", err, logger.Int("index", req.Index))
			send(FeedReply{Type: MsgError, Index: req.Index, Error: ErrorBody})
			return
		}
		sess.SetTranslation(req.Index, line.Text, translated)
		send(FeedReply{Type: MsgTranslation, Index: req.Index, Translated: translated, Listening: sess.Listening()})
	default:
		send(FeedReply{Type: MsgError, Error: "unknown message type: " + req.Type})
	}
}

// feedWriter owns all writes to conn, including keepalive pings.
func (s *Server) feedWriter(ctx context.Context, conn *websocket.Conn, out <-chan FeedReply, log logger.Logger) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case reply := <-out:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(reply); err != nil {
				log.Warn("transcript feed write failed", logger.Err(err))
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
