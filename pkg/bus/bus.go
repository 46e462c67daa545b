package bus

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivered message body. Returning nil acknowledges the
// message; returning an error leaves it to the broker's redelivery policy. A
// handler that wants to drop a message for good (malformed payload, missing
// source data) logs and returns nil.
type Handler func(ctx context.Context, body []byte) error

// Client is a long-lived connection to the AMQP broker. It publishes events
// and registers consumers per topic with at-least-once delivery semantics.
type Client struct {
	url string

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	consumers map[string]Handler // topic -> handler, re-registered after reconnect

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// Connect dials the broker and opens a channel in publisher-confirm mode.
func Connect(url string) (*Client, error) {
	c := &Client{
		url:       url,
		consumers: make(map[string]Handler),
		done:      make(chan struct{}),
	}
	if err := c.dial(); err != nil {
		return nil, err
	}
	c.wg.Add(1)
	go c.reconnectLoop()
	return c, nil
}

func (c *Client) dial() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.mu.Unlock()

	log.Println("Successfully connected to the message broker!")
	return nil
}

// reconnectLoop redials with exponential backoff whenever the connection is
// closed by the broker, then re-registers all consumers.
func (c *Client) reconnectLoop() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		closeCh := c.conn.NotifyClose(make(chan *amqp.Error, 1))
		c.mu.Unlock()

		select {
		case <-c.done:
			return
		case amqpErr := <-closeCh:
			if amqpErr == nil {
				// Clean shutdown.
				return
			}
			log.Printf("Broker connection lost: %v", amqpErr)
		}

		delay := reconnectBaseDelay
		for {
			select {
			case <-c.done:
				return
			case <-time.After(delay):
			}

			if err := c.dial(); err != nil {
				log.Printf("Broker reconnect failed, retrying in %s: %v", delay, err)
				delay *= 2
				if delay > reconnectMaxDelay {
					delay = reconnectMaxDelay
				}
				continue
			}

			c.mu.Lock()
			consumers := make(map[string]Handler, len(c.consumers))
			for topic, h := range c.consumers {
				consumers[topic] = h
			}
			c.mu.Unlock()

			for topic, h := range consumers {
				if err := c.startConsumer(topic, h); err != nil {
					log.Printf("Failed to resume consumer for %s: %v", topic, err)
				}
			}
			break
		}
	}
}

// Publish sends an already-encoded event body onto the topic's queue and
// returns once the broker acknowledges it (not once consumers process it).
func (c *Client) Publish(ctx context.Context, topic string, body []byte) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()

	if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	if ok, err := confirm.WaitContext(ctx); err != nil {
		return fmt.Errorf("failed waiting for broker confirm on %s: %w", topic, err)
	} else if !ok {
		return fmt.Errorf("broker rejected publish to %s", topic)
	}
	return nil
}

// Subscribe registers an asynchronous handler invoked once per delivered
// message. The message is acknowledged only after the handler returns nil; on
// error it is returned to the queue for redelivery.
func (c *Client) Subscribe(topic string, handler Handler) error {
	c.mu.Lock()
	if _, exists := c.consumers[topic]; exists {
		c.mu.Unlock()
		return fmt.Errorf("consumer already registered for topic %s", topic)
	}
	c.consumers[topic] = handler
	c.mu.Unlock()

	return c.startConsumer(topic, handler)
}

func (c *Client) startConsumer(topic string, handler Handler) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()

	if _, err := ch.QueueDeclare(topic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}

	deliveries, err := ch.Consume(topic, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer for %s: %w", topic, err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for d := range deliveries {
			// A single bad event must not crash the consumer process.
			if err := handler(context.Background(), d.Body); err != nil {
				log.Printf("Handler for %s failed, requeueing: %v", topic, err)
				if nackErr := d.Nack(false, true); nackErr != nil {
					log.Printf("Failed to nack message on %s: %v", topic, nackErr)
				}
				continue
			}
			if ackErr := d.Ack(false); ackErr != nil {
				log.Printf("Failed to ack message on %s: %v", topic, ackErr)
			}
		}
	}()

	log.Printf("Consumer registered for topic %s.", topic)
	return nil
}

// Close stops all consumers and closes the channel and connection. Consumers
// drain in-flight deliveries before the connection goes away.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		ch, conn := c.ch, c.conn
		c.mu.Unlock()
		if ch != nil {
			if cerr := ch.Close(); cerr != nil {
				err = cerr
			}
		}
		if conn != nil {
			if cerr := conn.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		c.wg.Wait()
		log.Println("Broker connection closed.")
	})
	return err
}
