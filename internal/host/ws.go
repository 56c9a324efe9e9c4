package host

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/tagstamp/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "event", "ws_upgrade", "error", err)
		return
	}
	defer conn.Close()

	// gorilla/websocket forbids concurrent writes.
	var writeMu sync.Mutex
	writeMsg := func(msg Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	id, out := s.hub.Register()
	defer s.hub.Unregister(id)

	state := s.engine.State()
	if err := writeMsg(Message{Type: TypeHello, ClientID: id, Update: &engine.Update{State: state}}); err != nil {
		return
	}

	// Pump hub messages to the client until Unregister closes the channel.
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-out:
				if !ok {
					return
				}
				if err := writeMsg(msg); err != nil {
					conn.Close()
					return
				}
			case <-ticker.C:
				writeMu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				writeMu.Unlock()
				if err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if errMsg := s.dispatch(msg); errMsg != "" {
			if err := writeMsg(Message{Type: TypeError, Error: errMsg}); err != nil {
				break
			}
		}
	}

	s.hub.Unregister(id)
	<-pumpDone
}

// dispatch forwards a client message to the engine. It returns a non-empty
// error text for messages that cannot be handled.
func (s *Server) dispatch(msg Message) string {
	switch msg.Type {
	case TypeSelection:
		if msg.Selection == nil {
			return "selection message without selection"
		}
		s.hub.SetSelection(*msg.Selection)
		s.engine.SelectionInvalidated()
	case TypeModifiers:
		if msg.Modifiers == nil {
			return "modifiers message without modifiers"
		}
		s.engine.ModifiersChanged(*msg.Modifiers)
	case TypeDatasetChanged:
		s.engine.DatasetChanged()
	case TypeClick:
		if _, ok := s.catalog.Template(msg.TemplateID); !ok {
			return "template not found: " + msg.TemplateID
		}
		s.engine.Click(msg.TemplateID, min(msg.Clicks, engine.MaxClicks))
	case TypeSelect:
		if _, ok := s.catalog.Template(msg.TemplateID); !ok {
			return "template not found: " + msg.TemplateID
		}
		s.engine.SelectTemplate(msg.TemplateID)
	case TypeToggle:
		s.engine.Toggle()
	case TypeDeactivate:
		s.engine.Deactivate()
	default:
		return "unknown message type: " + msg.Type
	}
	return ""
}
