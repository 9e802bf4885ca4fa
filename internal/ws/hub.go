package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisPubSubChannel = "chat_events"

// GroupKey is the broadcast group for one conversation
func GroupKey(conversationID uint64) string {
	return fmt.Sprintf("conversation:%d", conversationID)
}

// Hub maintains the mapping from group key to live connections and
// fans events out to every member registered at send time. There is
// no replay: a connection that is not registered when an event is
// sent never sees it; the message ledger is the durable source of
// truth.
type Hub struct {
	// Registered clients grouped by conversation group key
	clients map[string]map[*Client]bool

	// Register/unregister channels
	register   chan *Client
	unregister chan *Client

	// Broadcast to a group
	broadcast chan *groupEvent

	mu          sync.RWMutex
	redisClient *redis.Client
	// instanceID tags published events so this node's own publishes,
	// already delivered locally, are not delivered a second time when
	// they come back over the subscription.
	instanceID string
	ctx        context.Context
	cancel     context.CancelFunc
}

type groupEvent struct {
	Group string `json:"group"`
	// ExcludeUserID suppresses delivery to every connection of one
	// user (all of their tabs), used when the typing policy excludes
	// the sender.
	ExcludeUserID *uint64 `json:"exclude_user_id,omitempty"`
	Origin        string  `json:"origin,omitempty"`
	Event         *Event  `json:"event"`
}

// NewHub creates a new Hub. redisClient may be nil; cross-instance
// republish is then disabled and the hub is purely in-process.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *groupEvent, 256),
		redisClient: redisClient,
		instanceID:  uuid.NewString(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a client to its group
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	// Start Redis subscriber if Redis is available
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.group] == nil {
				h.clients[client.group] = make(map[*Client]bool)
			}
			h.clients[client.group][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.group]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					client.closeSend()
					if len(clients) == 0 {
						delete(h.clients, client.group)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliverLocal(msg)

		case <-h.ctx.Done():
			return
		}
	}
}

// deliverLocal fans one event out to local group members. A send to a
// group with no members is a no-op. A client whose buffer is full is
// dropped rather than allowed to block the rest of the group.
func (h *Hub) deliverLocal(msg *groupEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[msg.Group]
	if !ok {
		return
	}
	data, err := json.Marshal(msg.Event)
	if err != nil {
		return
	}
	for client := range clients {
		if msg.ExcludeUserID != nil && client.userID == *msg.ExcludeUserID {
			continue
		}
		if !client.enqueue(data) {
			client.closeSend()
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, msg.Group)
	}
}

// Broadcast sends an event to every connection in the group
func (h *Hub) Broadcast(group string, event *Event) {
	h.dispatch(&groupEvent{Group: group, Event: event})
}

// BroadcastExcept sends an event to the group, skipping all of one
// user's connections
func (h *Hub) BroadcastExcept(group string, excludeUserID uint64, event *Event) {
	h.dispatch(&groupEvent{Group: group, ExcludeUserID: &excludeUserID, Event: event})
}

func (h *Hub) dispatch(msg *groupEvent) {
	msg.Origin = h.instanceID

	// Local broadcast
	h.broadcast <- msg

	// Publish to Redis for multi-instance deployments
	if h.redisClient != nil {
		data, err := json.Marshal(msg)
		if err == nil {
			h.redisClient.Publish(h.ctx, redisPubSubChannel, data) //nolint:errcheck
		}
	}
}

// subscribeRedis listens for events published by other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRemote([]byte(msg.Payload))
		case <-h.ctx.Done():
			return
		}
	}
}

// handleRemote delivers a subscribed event locally. Events this
// instance published itself were already delivered in dispatch and
// are skipped; nothing is ever re-published.
func (h *Hub) handleRemote(payload []byte) {
	var ge groupEvent
	if err := json.Unmarshal(payload, &ge); err != nil {
		return
	}
	if ge.Origin == h.instanceID {
		return
	}
	h.broadcast <- &ge
}

// GroupSize returns the number of live connections in a group
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[group])
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
