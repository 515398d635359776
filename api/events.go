package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vocdoni/prodeposit-dapp/log"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// events streams a JSON snapshot over a websocket every time the state
// changes. The current snapshot is sent right after the upgrade.
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnw("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()
	snapshots, cancel := a.ctrl.Subscribe()
	defer cancel()

	// the client is not expected to send anything, reading is only needed
	// to process control frames and detect the disconnection
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-a.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(wsWriteTimeout))
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				log.Debugw("websocket write failed", "error", err.Error())
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
