package kafka

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// Consumer оборачивает Sarama ConsumerGroup
type Consumer struct {
	group    sarama.ConsumerGroup
	topic    string
	messages chan Message
	closed   chan struct{}
	log      zerolog.Logger
}

// Message carries the payload and the session needed to mark it
type Message struct {
	Value   []byte
	Session sarama.ConsumerGroupSession
	Message *sarama.ConsumerMessage
}

// Mark commits the message offset. Call it only after processing.
func (m Message) Mark() {
	if m.Session != nil && m.Message != nil {
		m.Session.MarkMessage(m.Message, "")
	}
}

// NewConsumer создаёт и возвращает новый Consumer
func NewConsumer(brokers []string, groupID, topic string, log zerolog.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:    group,
		topic:    topic,
		messages: make(chan Message),
		closed:   make(chan struct{}),
		log:      log.With().Str("component", "kafka_consumer").Str("topic", topic).Logger(),
	}, nil
}

// StartListening запускает асинхронное потребление сообщений
func (c *Consumer) StartListening(ctx context.Context) {
	handler := &consumerGroupHandler{
		messages: c.messages,
		closed:   c.closed,
	}

	go func() {
		defer close(c.messages)

		retryDelay := time.Second * 5
		for {
			select {
			case <-ctx.Done():
				c.log.Info().Msg("context cancelled, stopping")
				return
			default:
				c.log.Debug().Msg("starting consumption cycle")
				err := c.group.Consume(ctx, []string{c.topic}, handler)
				if err != nil {
					c.log.Error().Err(err).Dur("retry_in", retryDelay).Msg("consume error")
					select {
					case <-ctx.Done():
						return
					case <-time.After(retryDelay):
					}
					continue
				}

				if ctx.Err() != nil {
					return
				}
			}
		}
	}()
}

// Close останавливает потребитель и освобождает ресурсы
func (c *Consumer) Close() error {
	close(c.closed)
	return c.group.Close()
}

// Messages возвращает канал для чтения сообщений
func (c *Consumer) Messages() <-chan Message {
	return c.messages
}

// consumerGroupHandler реализует интерфейс sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	messages chan<- Message
	closed   <-chan struct{}
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			select {
			case h.messages <- Message{
				Value:   msg.Value,
				Session: sess,
				Message: msg,
			}:
				// Подтверждение будет после обработки
			case <-sess.Context().Done():
				return nil
			case <-h.closed:
				return nil
			}
		case <-sess.Context().Done():
			return nil
		case <-h.closed:
			return nil
		}
	}
}
