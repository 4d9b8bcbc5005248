package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60

	// EventAttendanceMarked is sent when a badge is checked in for the first time.
	EventAttendanceMarked = "attendance_marked"
	// EventDashboards carries the number of dashboards watching an event.
	EventDashboards = "dashboards"
)

// Hub maintains partition -> set of dashboard connections and broadcasts check-ins.
// With Redis configured, publishes go through Redis so every instance delivers once.
type Hub struct {
	// partition -> map[clientID]*Client
	rooms    map[string]map[string]*Client
	subs     map[string]func() // cancel Redis subscription per partition
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes feed events for cross-instance broadcast.
type RedisPublisher interface {
	PublishFeedEvent(partition, event string, payload []byte) error
}

// RedisSubscriber subscribes to a partition channel and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeFeed(partition string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new attendance feed hub. Either Redis side may be nil.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a dashboard to a partition room. Starts the Redis subscription for the first one.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.Partition] == nil {
		h.rooms[c.Partition] = make(map[string]*Client)
		if h.redisSub != nil {
			partition := c.Partition
			cancel, err := h.redisSub.SubscribeFeed(partition, func(event string, payload []byte) {
				h.Broadcast(partition, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("feed subscribe failed", zap.Error(err), zap.String("partition", partition))
			} else {
				h.subs[partition] = cancel
			}
		}
	}
	h.rooms[c.Partition][c.ID] = c
	count := len(h.rooms[c.Partition])
	h.mu.Unlock()

	h.Broadcast(c.Partition, EventDashboards, map[string]int{"count": count})
	h.logger.Debug("dashboard joined", zap.String("client_id", c.ID), zap.String("partition", c.Partition))
}

// Unregister removes a dashboard. Cancels the Redis subscription when the room empties.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.rooms[c.Partition]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.rooms, c.Partition)
			if cancel, ok := h.subs[c.Partition]; ok {
				cancel()
				delete(h.subs, c.Partition)
			}
		}
	}
	h.mu.Unlock()
	if count > 0 {
		h.Broadcast(c.Partition, EventDashboards, map[string]int{"count": count})
	}
	h.logger.Debug("dashboard left", zap.String("client_id", c.ID), zap.String("partition", c.Partition))
}

// Broadcast sends a message to local dashboards of a partition.
func (h *Hub) Broadcast(partition, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("feed payload marshal failed", zap.Error(err), zap.String("event", event))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[partition] {
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("dashboard buffer full, dropping", zap.String("client_id", c.ID))
		}
	}
}

// PublishAttendance announces a fresh check-in to every dashboard watching the partition.
// With Redis it only publishes, and the subscription performs the local broadcast.
func (h *Hub) PublishAttendance(partition string, payload interface{}) {
	if h.redis == nil {
		h.Broadcast(partition, EventAttendanceMarked, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("feed payload marshal failed", zap.Error(err))
		return
	}
	if err := h.redis.PublishFeedEvent(partition, EventAttendanceMarked, data); err != nil {
		h.logger.Warn("feed publish failed, broadcasting locally", zap.Error(err), zap.String("partition", partition))
		h.Broadcast(partition, EventAttendanceMarked, json.RawMessage(data))
	}
}

// Dashboards returns the number of connected dashboards for a partition.
func (h *Hub) Dashboards(partition string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[partition])
}
