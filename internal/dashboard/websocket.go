package dashboard

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/curatordash/internal/session"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
)

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	opts := session.Options{
		Client:       d.client,
		PollInterval: d.cfg.PollInterval,
		ToastTTL:     d.cfg.ToastTTL,
		ClientID:     clientID(r),
		Logger:       d.logger,
	}
	if d.prefs != nil {
		opts.Themes = d.prefs
	}
	if d.journal != nil {
		opts.Journal = d.journal
	}
	t := &tab{clientID: opts.ClientID, session: session.New(opts)}
	d.register(t)
	defer d.unregister(t)
	defer t.session.Close()

	writerDone := make(chan struct{})
	go d.writeFrames(conn, t.session, writerDone)

	if d.prefs != nil && t.clientID != "" {
		if p, err := d.prefs.Lookup(r.Context(), t.clientID); err == nil && p.DarkMode {
			t.session.SetTheme(true)
		}
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Debug("websocket read", zap.Error(err))
			}
			break
		}
		t.session.Handle(msg)
	}

	t.session.Close()
	<-writerDone
}

// writeFrames is the only writer on conn. It closes conn when the session
// ends or a write fails, which also unblocks the reader.
func (d *Dashboard) writeFrames(conn *websocket.Conn, s *session.Session, done chan<- struct{}) {
	defer close(done)
	defer conn.Close()
	for {
		select {
		case f := <-s.Frames():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(f); err != nil {
				d.logger.Debug("websocket write", zap.Error(err))
				return
			}
		case <-s.Done():
			return
		}
	}
}
