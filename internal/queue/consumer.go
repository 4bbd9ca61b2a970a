package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// logger is shared by the consumer loop.
var logger = log.New("arrangement-consumer")

// ArrangementLogFile is the file name inside the log directory.
const ArrangementLogFile = "arrangement.log"

// StartArrangementConsumer connects to the broker at url, declares the
// arrangement queue (durable) and appends one line per event to
// <dir>/arrangement.log. It reconnects with backoff and never returns, so
// callers run it in its own goroutine.
func StartArrangementConsumer(url, dir string) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warnf("dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, dir); err != nil {
			logger.Warnf("consume loop ended: %v; reconnecting", err)
		}
		_ = conn.Close()
		time.Sleep(2 * time.Second)
	}
}

func consumeLoop(conn *amqp.Connection, dir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warnf("set QoS: %v", err)
	}
	if _, err := ch.QueueDeclare(ArrangementQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ArrangementQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(dir, d.Body); err != nil {
			logger.Errorf("handle message: %v", err)
			_ = d.Nack(false, false) // reject without requeue to avoid a hot loop
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(dir string, body []byte) error {
	var ev ArrangementCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.SessionID == "" {
		return errors.New("event without session_id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, ArrangementLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev ArrangementCompletedEvent) string {
	conflicts := "[]"
	if len(ev.Conflicts) > 0 {
		conflicts = "[" + strings.Join(ev.Conflicts, "; ") + "]"
	}
	return fmt.Sprintf("[%s] Arrangement completed | owner_id=%d | session=%s | mode=%s | strategy=%s | grid=%dx%d | preserved=%d | placed=%d | unplaced=%d | forced=%t | conflicts=%s\n",
		ev.CompletedAt, ev.OwnerID, ev.SessionID, ev.Mode, ev.Strategy, ev.Rows, ev.Cols,
		ev.Preserved, ev.Placed, ev.Unplaced, ev.Forced, conflicts)
}
