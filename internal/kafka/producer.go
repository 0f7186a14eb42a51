package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/Capitan-Parrot/distributed-video-system/binguard/internal/models"
)

// Notification is the payload published for the speaker service
type Notification struct {
	EventID   string         `json:"event_id"`
	Text      string         `json:"text"`
	Verdict   models.Verdict `json:"verdict"`
	Bin       string         `json:"bin"`
	Timestamp time.Time      `json:"timestamp"`
}

type Producer struct {
	producer          sarama.SyncProducer
	heartbeatTopic    string
	notificationTopic string
}

// NewProducer создаёт продюсер с настройками
func NewProducer(brokers []string, heartbeatTopic, notificationTopic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return NewProducerFrom(producer, heartbeatTopic, notificationTopic), nil
}

// NewProducerFrom wraps an existing sarama producer
func NewProducerFrom(producer sarama.SyncProducer, heartbeatTopic, notificationTopic string) *Producer {
	return &Producer{
		producer:          producer,
		heartbeatTopic:    heartbeatTopic,
		notificationTopic: notificationTopic,
	}
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// SendHeartbeat публикует состояние станции
func (p *Producer) SendHeartbeat(msg models.Heartbeat) error {
	return p.send(p.heartbeatTopic, msg.StationID, msg)
}

// SendNotification публикует текст уведомления
func (p *Producer) SendNotification(msg Notification) error {
	return p.send(p.notificationTopic, msg.Bin, msg)
}

func (p *Producer) send(topic, key string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
	}

	if _, _, err := p.producer.SendMessage(kafkaMsg); err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	return nil
}
