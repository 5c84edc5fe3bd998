package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/streadway/amqp"

	"wakewatch/internal/config"
	"wakewatch/internal/models"
)

func TestNewPublishingEncodesTransition(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	tr := models.Transition{ID: "abc", Online: false, PreviousOnline: true, Error: "Request timeout", At: at}

	msg, err := newPublishing(tr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.ContentType != "application/json" || msg.MessageId != "abc" || !msg.Timestamp.Equal(at) {
		t.Fatalf("unexpected publishing headers: %+v", msg)
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("expected persistent delivery")
	}
	var decoded models.Transition
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.Error != "Request timeout" || !decoded.PreviousOnline {
		t.Fatalf("unexpected body: %+v", decoded)
	}
}

func TestNewAMQPNotifierRequiresURL(t *testing.T) {
	if _, err := NewAMQPNotifier(config.Notify{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestClosedNotifierRejectsPublish(t *testing.T) {
	n := &AMQPNotifier{exchange: "wakewatch"}
	if err := n.Notify(context.Background(), models.Transition{ID: "x"}); err == nil {
		t.Fatalf("expected error from closed notifier")
	}
	if err := n.Close(); err != nil {
		t.Fatalf("close on closed notifier: %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	if err := (LogNotifier{}).Notify(context.Background(), models.Transition{ID: "x", Online: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
