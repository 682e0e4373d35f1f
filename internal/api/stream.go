// WebSocket frame stream: pushes a compact world snapshot to each
// connected viewer at a fixed cadence.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/world"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// frame is one streamed snapshot. Viewers re-fetch /api/v1/world for
// terrain; frames carry only what moves.
type frame struct {
	Tick     uint64        `json:"tick"`
	Time     float64       `json:"time"`
	Entities []frameEntity `json:"entities"`
}

type frameEntity struct {
	ID        entity.ID         `json:"id"`
	Pos       world.Vec2        `json:"pos"`
	State     string            `json:"state"`
	Food      float64           `json:"food"`
	Energy    float64           `json:"energy"`
	Thinking  bool              `json:"thinking,omitempty"`
	Territory *entity.Territory `json:"territory,omitempty"`
}

// handleStream upgrades to a websocket and pushes frames until the
// client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	slog.Info("stream client connected", "remote", r.RemoteAddr)

	go s.writeFrames(conn)
	go readUntilClose(conn)
}

func (s *Server) writeFrames(conn *websocket.Conn) {
	interval := s.StreamInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	frames := time.NewTicker(interval)
	pings := time.NewTicker(pingPeriod)
	defer func() {
		frames.Stop()
		pings.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-frames.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(s.buildFrame()); err != nil {
				slog.Debug("stream write failed", "error", err)
				return
			}
		case <-pings.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readUntilClose drains client messages so pong handling works and
// close frames are noticed.
func readUntilClose(conn *websocket.Conn) {
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("stream read error", "error", err)
			}
			return
		}
	}
}

func (s *Server) buildFrame() frame {
	tick, now, summaries := s.Sim.FrameSnapshot()
	f := frame{Tick: tick, Time: now}
	for _, e := range summaries {
		f.Entities = append(f.Entities, frameEntity{
			ID:        e.ID,
			Pos:       e.Pos,
			State:     entity.StateName(e.State),
			Food:      e.Food,
			Energy:    e.Energy,
			Thinking:  e.Inference == entity.InferThinking,
			Territory: e.Territory,
		})
	}
	return f
}
