package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	channelPrefix  = "routes:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans route events out to websocket clients. With Redis configured,
// events go through pub/sub so every instance sees them.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	RouteID string
	Send    chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx := context.Background()
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Warn().Err(err).Msg("redis subscribe failed, events stay local")
			_ = pubsub.Close()
			h.redis = nil
			return h
		}
		h.pubsub = pubsub
		go h.forward(pubsub.Channel())
	}
	return h
}

func (h *Hub) Register(routeID string) *Client {
	client := &Client{
		RouteID: routeID,
		Send:    make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[routeID] == nil {
		h.clients[routeID] = map[*Client]struct{}{}
	}
	h.clients[routeID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if routeClients, ok := h.clients[client.RouteID]; ok {
		delete(routeClients, client)
		if len(routeClients) == 0 {
			delete(h.clients, client.RouteID)
		}
	}
	close(client.Send)
}

// Subscribers returns the number of local clients watching a route.
func (h *Hub) Subscribers(routeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[routeID])
}

// Broadcast sends payload to everyone watching routeID. When Redis is set the
// event is only published; the subscription delivers it locally.
func (h *Hub) Broadcast(routeID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(routeID), payload).Err()
		if err == nil {
			return
		}
		log.Error().Err(err).Str("route_id", routeID).Msg("redis publish failed")
	}
	h.deliver(routeID, payload)
}

// Close stops the Redis subscription.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

func (h *Hub) forward(ch <-chan *redis.Message) {
	for msg := range ch {
		routeID := routeIDFromChannel(msg.Channel)
		if routeID == "" {
			continue
		}
		h.deliver(routeID, []byte(msg.Payload))
	}
}

func (h *Hub) deliver(routeID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[routeID] {
		select {
		case client.Send <- payload:
		default:
			log.Debug().Str("route_id", routeID).Msg("dropping event for slow client")
		}
	}
}

func redisChannel(routeID string) string {
	return channelPrefix + routeID + channelSuffix
}

// routeIDFromChannel extracts the id from routes:{id}:events.
func routeIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
