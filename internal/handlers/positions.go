package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/logistics-tracker/internal/models"
	"github.com/ukydev/logistics-tracker/internal/simulator"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Broadcaster is the live position feed the stream relays.
type Broadcaster interface {
	Subscribe(fn simulator.Listener) func()
	Vehicles() []models.Vehicle
}

// PositionHandler streams simulated vehicle positions over a websocket.
type PositionHandler struct {
	feed     Broadcaster
	upgrader websocket.Upgrader
}

func NewPositionHandler(feed Broadcaster) *PositionHandler {
	return &PositionHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Stream sends the current fleet, then every broadcast, until the client goes
// away. A slow client misses updates rather than stalling the simulator.
func (h *PositionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := make(chan []models.Vehicle, 8)
	if current := h.feed.Vehicles(); len(current) > 0 {
		updates <- current
	}
	unsubscribe := h.feed.Subscribe(func(vehicles []models.Vehicle) {
		select {
		case updates <- vehicles:
		default:
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case vehicles := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(vehicles); err != nil {
				log.WithError(err).Debug("Position stream write failed")
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
