package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"

	"github.com/rm-hull/gas-prices-ingest/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const publishTimeout = 5 * time.Second

// StationPricesMessage is the payload published for one station per cycle.
type StationPricesMessage struct {
	StationId string             `json:"station_id"`
	Date      string             `json:"date"`
	Time      string             `json:"time"`
	Prices    map[string]float64 `json:"prices"`
}

// BuildMessages groups observations by station, keeping the order in which
// stations first appear.
func BuildMessages(observations []models.PriceObservation) []StationPricesMessage {
	messages := make([]StationPricesMessage, 0)
	index := make(map[string]int)

	for _, observation := range observations {
		i, ok := index[observation.StationId]
		if !ok {
			i = len(messages)
			index[observation.StationId] = i
			messages = append(messages, StationPricesMessage{
				StationId: observation.StationId,
				Date:      observation.Date,
				Time:      observation.Time,
				Prices:    make(map[string]float64, len(models.FuelTypes)),
			})
		}
		messages[i].Prices[observation.FuelType.String()] = observation.Price
	}
	return messages
}

func Topic(prefix, stationId string) string {
	return fmt.Sprintf("%s/%s", prefix, stationId)
}

type MqttPublisher struct {
	client mqtt.Client
	broker string
	topic  string
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool
}

func NewMqttPublisher(broker, clientId, topic string, logger *slog.Logger) *MqttPublisher {
	p := &MqttPublisher{
		broker: broker,
		topic:  topic,
		logger: logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientId)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the first connection to the broker. With connect retry
// enabled the client keeps trying in the background until ctx is done.
func (p *MqttPublisher) Connect(ctx context.Context) error {
	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return errors.Wrapf(err, "mqtt connect to %s", p.broker)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			p.client.Disconnect(0)
			return ctx.Err()
		default:
		}
	}
}

// Publish sends one message per station with QoS 1. Failures for individual
// stations are combined into the returned error.
func (p *MqttPublisher) Publish(ctx context.Context, observations []models.PriceObservation) error {
	if !p.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	var errs error
	for _, message := range BuildMessages(observations) {
		if err := ctx.Err(); err != nil {
			return errors.CombineErrors(errs, err)
		}

		payload, err := json.Marshal(message)
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "failed to marshal prices for %s", message.StationId))
			continue
		}

		topic := Topic(p.topic, message.StationId)
		token := p.client.Publish(topic, 1, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			errs = errors.CombineErrors(errs, errors.Newf("publish timeout for topic %s", topic))
			continue
		}
		if err := token.Error(); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "publish to %s", topic))
			continue
		}
		p.logger.Debug("published prices", "topic", topic, "size", len(payload))
	}
	return errs
}

func (p *MqttPublisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

func (p *MqttPublisher) Close() {
	p.client.Disconnect(250)
	p.setConnected(false)
	p.logger.Info("mqtt publisher disconnected")
}

func (p *MqttPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
