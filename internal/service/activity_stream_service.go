package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/oakbyte/pulse-api/internal/dto"
	"github.com/oakbyte/pulse-api/internal/models"
	"github.com/oakbyte/pulse-api/internal/observability"
)

const streamSendBufferSize = 32

// StreamConnectionOptions carries metadata extracted during the HTTP upgrade.
type StreamConnectionOptions struct {
	UserID        string
	Role          string
	LogName       string
	Event         string
	CorrelationID string
	Context       context.Context
}

// ActivityStreamService fans freshly committed activity records out to
// connected websocket subscribers, across nodes via Redis and NATS.
type ActivityStreamService interface {
	Broadcaster
	ServeConnection(conn *websocket.Conn, opts StreamConnectionOptions)
	Start(ctx context.Context)
}

type activityStreamService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	tracer       trace.Tracer
	hub          *streamHub
	nodeID       string
}

// streamHub tracks connected subscribers and delivers records to them.
type streamHub struct {
	mu      sync.RWMutex
	clients map[*streamClient]struct{}
	log     zerolog.Logger
}

type streamClient struct {
	conn    *websocket.Conn
	send    chan dto.ActivityResponse
	options StreamConnectionOptions
	service *activityStreamService
	closed  chan struct{}
	once    sync.Once
	baseCtx context.Context
}

type activityEvent struct {
	Source   string               `json:"source"`
	Activity dto.ActivityResponse `json:"activity"`
	SentAt   time.Time            `json:"sent_at"`
}

// NewActivityStreamService creates the live activity fan-out. Redis and NATS
// are both optional; with neither, delivery stays node-local.
func NewActivityStreamService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ActivityStreamService {
	hub := &streamHub{
		clients: make(map[*streamClient]struct{}),
		log:     logger.With().Str("component", "activity_stream_hub").Logger(),
	}

	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":stream"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".stream"
	}

	return &activityStreamService{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		logger:       logger.With().Str("component", "activity_stream_service").Logger(),
		tracer:       otel.Tracer("github.com/oakbyte/pulse-api/internal/service/stream"),
		hub:          hub,
		nodeID:       uuid.NewString(),
	}
}

func (s *activityStreamService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *activityStreamService) ServeConnection(conn *websocket.Conn, opts StreamConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &streamClient{
		conn:    conn,
		send:    make(chan dto.ActivityResponse, streamSendBufferSize),
		options: opts,
		service: s,
		closed:  make(chan struct{}),
		baseCtx: baseCtx,
	}

	s.hub.register(client)

	go client.writer()
	client.reader()
}

// BroadcastActivity satisfies the Broadcaster contract consumed by the
// activity logger. Delivery is best-effort and never blocks the writer.
func (s *activityStreamService) BroadcastActivity(ctx context.Context, record models.ActivityLog) {
	attrs := []attribute.KeyValue{
		attribute.String("activity.event", string(record.Event)),
		attribute.String("activity.log_name", record.LogName),
	}
	spanCtx, span := s.tracer.Start(ctx, "activity.broadcast", trace.WithAttributes(attrs...))
	defer span.End()

	response := dto.NewActivityResponse(record)
	s.hub.broadcast(response)

	if err := s.publish(spanCtx, response); err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Msg("failed to publish activity event")
	}
}

func (s *activityStreamService) publish(ctx context.Context, activity dto.ActivityResponse) error {
	if (s.redis == nil || s.redisChannel == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	event := activityEvent{
		Source:   s.nodeID,
		Activity: activity,
		SentAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *activityStreamService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("activity redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *activityStreamService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "pulse-activity-stream", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats activity subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain activity nats subscription")
		}
	}()
}

func (s *activityStreamService) handleEvent(data []byte) {
	var event activityEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid activity event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcast(event.Activity)
}

func (h *streamHub) register(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = struct{}{}
	h.log.Debug().Str("user_id", client.options.UserID).Msg("activity stream client connected")
}

func (h *streamHub) unregister(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client)
	h.log.Debug().Str("user_id", client.options.UserID).Msg("activity stream client disconnected")
}

func (h *streamHub) broadcast(activity dto.ActivityResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wants(activity) {
			continue
		}
		select {
		case client.send <- activity:
		default:
			observability.ActivityStreamDropped().Inc()
			h.log.Warn().Str("user_id", client.options.UserID).Msg("dropping activity for slow stream client")
		}
	}
}

// wants applies the per-connection log-name and event filters.
func (c *streamClient) wants(activity dto.ActivityResponse) bool {
	if c.options.LogName != "" && c.options.LogName != activity.LogName {
		return false
	}
	if c.options.Event != "" && c.options.Event != activity.Event {
		return false
	}
	return true
}

func (c *streamClient) reader() {
	defer c.close()

	// Subscribers do not send payloads; the read loop only detects closes
	// and pong frames.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.service.logger.Debug().Err(err).Msg("activity stream read loop ended")
			return
		}
	}
}

func (c *streamClient) writer() {
	defer c.close()

	for {
		select {
		case activity, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(activity); err != nil {
				c.service.logger.Debug().Err(err).Msg("activity stream write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("activity stream ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *streamClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
