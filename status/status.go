package status

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mogaika/scene_browser/logger"
	"github.com/mogaika/scene_browser/scene/media"
)

const (
	INFO = iota
	ERROR
	PROGRESS
)

type status struct {
	Message  string
	Time     time.Time
	Type     int
	Progress float32
	URL      string `json:",omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		unregisterClient(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("ws write msg error", "err", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("ws write ping error", "err", err)
				return
			}
		}
	}
}

// readPump drains control frames and drops the client once the peer goes away.
func (c *client) readPump() {
	defer func() {
		unregisterClient(c)
		close(c.send)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func NewClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, 32)}
	globalLock.Lock()
	if lastMessage != nil {
		c.send <- lastMessage
	}
	globalLock.Unlock()
	registerClient(c)
	go c.writePump()
	go c.readPump()
	return c
}

var statusBroadcast chan *status
var broadcastList map[*client]bool
var globalLock sync.Mutex
var lastMessage []byte = nil
var log = logger.Nop()

func SetLogger(l *logger.Logger) {
	log = l.Component("status")
}

func registerClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	broadcastList[c] = true
}

func unregisterClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	delete(broadcastList, c)
}

func ClientsCount() int {
	globalLock.Lock()
	defer globalLock.Unlock()
	return len(broadcastList)
}

func init() {
	statusBroadcast = make(chan *status, 64)
	broadcastList = make(map[*client]bool)
	go func() {
		for s := range statusBroadcast {
			data, err := json.Marshal(s)
			if err != nil {
				log.Error("status marshal failed", "err", err)
				continue
			}
			globalLock.Lock()
			lastMessage = data
			for c := range broadcastList {
				// slow clients lose messages
				select {
				case c.send <- data:
				default:
				}
			}
			globalLock.Unlock()
		}
	}()
}

// Status never blocks, messages are dropped when the broadcaster is behind.
func Status(msg string, _type int, progress float32) {
	publish(&status{Message: msg, Type: _type, Progress: progress})
}

func publish(s *status) {
	if math.IsNaN(float64(s.Progress)) || math.IsInf(float64(s.Progress), 0) {
		s.Progress = 0
	}
	s.Time = time.Now()
	select {
	case statusBroadcast <- s:
	default:
		log.Debug("status dropped", "msg", s.Message)
	}
}

func Info(format string, a ...interface{}) {
	Status(fmt.Sprintf(format, a...), INFO, 0.0)
}

func Error(format string, a ...interface{}) {
	Status(fmt.Sprintf(format, a...), ERROR, 0.0)
}

func Progress(progress float32, format string, a ...interface{}) {
	Status(fmt.Sprintf(format, a...), PROGRESS, progress)
}

// MediaEvent forwards loading manager events, usable as a media.Listener.
func MediaEvent(e media.Event) {
	s := &status{URL: e.URL, Type: PROGRESS}
	if e.Total > 0 {
		s.Progress = float32(e.Loaded) / float32(e.Total)
	}
	switch e.Type {
	case media.EventStart:
		s.Message = fmt.Sprintf("Loading %s", e.URL)
	case media.EventEnd:
		s.Message = fmt.Sprintf("Settled %s (%d/%d)", e.URL, e.Loaded, e.Total)
	case media.EventError:
		s.Type = ERROR
		s.Message = fmt.Sprintf("Failed %s: %v", e.URL, e.Err)
	case media.EventLoad:
		s.Type = INFO
		s.Progress = 1
		s.Message = fmt.Sprintf("All %d media settled", e.Total)
	}
	publish(s)
}
