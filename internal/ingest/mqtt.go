// Package ingest connects the tracking service to the device telemetry
// broker: GPS samples arrive on MQTT and trip events leave through it.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"fleettrack/internal/config"
	"fleettrack/internal/domain"
	"fleettrack/internal/service"
)

const defaultHandleTimeout = 10 * time.Second

// PointRecorder stores a GPS sample for a trip.
type PointRecorder interface {
	GetTripByID(ctx context.Context, tripID string) (*domain.Trip, error)
	AddPoint(ctx context.Context, tripID string, sample service.PointSample) (*domain.TripPoint, error)
}

// PointMessage is the JSON payload devices publish for one GPS sample.
type PointMessage struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	Speed      *float64   `json:"speed,omitempty"`
	Heading    *float64   `json:"heading,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

var ErrMalformedMessage = errors.New("malformed point message")

// PointHandler turns messages on <prefix>/orgs/<orgID>/trips/<tripID>/points
// into AddPoint calls. Device credentials are expected to be limited by broker
// ACLs to their own orgs/<orgID>/ subtree; the handler only accepts points for
// trips of the organization named in the topic.
type PointHandler struct {
	recorder PointRecorder
	prefix   string
	timeout  time.Duration
	logger   logrus.FieldLogger
}

// NewPointHandler creates a PointHandler for topics under prefix.
func NewPointHandler(recorder PointRecorder, prefix string, logger logrus.FieldLogger) *PointHandler {
	return &PointHandler{
		recorder: recorder,
		prefix:   strings.TrimSuffix(prefix, "/"),
		timeout:  defaultHandleTimeout,
		logger:   logger.WithField("component", "mqtt_points"),
	}
}

// Topic returns the subscription filter covering every trip.
func (h *PointHandler) Topic() string {
	return h.prefix + "/orgs/+/trips/+/points"
}

// ParseTopic extracts the organization and trip ids from a point topic.
func (h *PointHandler) ParseTopic(topic string) (organizationID, tripID string, ok bool) {
	rest, ok := strings.CutPrefix(topic, h.prefix+"/")
	if !ok {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 5 || parts[0] != "orgs" || parts[2] != "trips" || parts[4] != "points" {
		return "", "", false
	}
	if parts[1] == "" || parts[3] == "" {
		return "", "", false
	}
	return parts[1], parts[3], true
}

// Handle decodes one message and records the sample.
func (h *PointHandler) Handle(ctx context.Context, topic string, payload []byte) (*domain.TripPoint, error) {
	organizationID, tripID, ok := h.ParseTopic(topic)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected topic %q", ErrMalformedMessage, topic)
	}

	var msg PointMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Latitude == nil || msg.Longitude == nil {
		return nil, fmt.Errorf("%w: latitude and longitude are required", ErrMalformedMessage)
	}

	trip, err := h.recorder.GetTripByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.OrganizationID != organizationID {
		return nil, fmt.Errorf("%w: trip %s", service.ErrNotFound, tripID)
	}

	sample := service.PointSample{
		Latitude:  *msg.Latitude,
		Longitude: *msg.Longitude,
		Accuracy:  msg.Accuracy,
		Speed:     msg.Speed,
		Heading:   msg.Heading,
	}
	if msg.CapturedAt != nil {
		sample.CapturedAt = *msg.CapturedAt
	}

	return h.recorder.AddPoint(ctx, tripID, sample)
}

// OnMessage is the paho callback. Rejected samples are logged and dropped;
// redelivering them would fail the same way.
func (h *PointHandler) OnMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	point, err := h.Handle(ctx, msg.Topic(), msg.Payload())
	log := h.logger.WithField("topic", msg.Topic())
	switch {
	case err == nil:
		if point.IsFiltered {
			log.WithField("reason", point.FilterReason).Debug("point filtered")
		}
	case errors.Is(err, ErrMalformedMessage),
		errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrInvalidState):
		log.WithError(err).Warn("point rejected")
	default:
		log.WithError(err).Error("point ingest failed")
	}
}

// Client is the service's MQTT connection. It subscribes to device points
// and publishes trip events; it satisfies service.Publisher.
type Client struct {
	client mqtt.Client
	prefix string
	qos    byte
	points *PointHandler
	logger logrus.FieldLogger
}

// NewClient configures a client. Nothing is sent until Connect.
func NewClient(cfg config.MQTTConfig, logger logrus.FieldLogger) *Client {
	c := &Client{
		prefix: strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:    cfg.QoS,
		logger: logger.WithField("component", "mqtt"),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		// Handlers may publish anomaly events; ordered delivery would
		// deadlock on the publish token.
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.logger.WithError(err).Warn("mqtt connection lost")
		}).
		SetOnConnectHandler(func(client mqtt.Client) {
			c.logger.WithField("broker", cfg.BrokerURL).Info("mqtt connected")
			if c.points == nil {
				return
			}
			topic := c.points.Topic()
			token := client.Subscribe(topic, c.qos, c.points.OnMessage)
			if token.WaitTimeout(10*time.Second) && token.Error() != nil {
				c.logger.WithError(token.Error()).WithField("topic", topic).Error("mqtt subscribe failed")
				return
			}
			c.logger.WithField("topic", topic).Info("mqtt subscribed")
		})

	c.client = mqtt.NewClient(opts)
	return c
}

// HandlePoints routes device points to h. It must be called before Connect;
// the subscription is renewed on every reconnect.
func (c *Client) HandlePoints(h *PointHandler) {
	c.points = h
}

// Connect waits for the first connection. If ctx ends first the client keeps
// retrying in the background and ctx.Err() is returned.
func (c *Client) Connect(ctx context.Context) error {
	return wait(ctx, c.client.Connect())
}

// Publish sends payload to prefix/topic.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	return wait(ctx, c.client.Publish(c.prefix+"/"+topic, c.qos, false, payload))
}

// Close disconnects, allowing in-flight work a short grace period.
func (c *Client) Close() {
	c.client.Disconnect(250)
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ service.Publisher = (*Client)(nil)
