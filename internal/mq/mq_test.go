package mq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hookupza/apiserver/config"
)

type recordingBackend struct {
	topic string
	msg   Message
}

func (b *recordingBackend) Publish(ctx context.Context, topic string, msg Message) (string, error) {
	b.topic = topic
	b.msg = msg
	return "msg-1", nil
}

func (b *recordingBackend) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return handler(ctx, b.msg)
}

func (b *recordingBackend) Close() error { return nil }

func TestPublishJSONEncodesPayload(t *testing.T) {
	backend := &recordingBackend{}
	bus := New(backend)

	id, err := bus.PublishJSON(context.Background(), "ad-events", "ad.approved", map[string]int{"ad_id": 4})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if id != "msg-1" {
		t.Fatalf("unexpected id %q", id)
	}
	if backend.topic != "ad-events" || backend.msg.Key != "ad.approved" {
		t.Fatalf("unexpected routing %s/%s", backend.topic, backend.msg.Key)
	}

	var decoded map[string]int
	if err := json.Unmarshal(backend.msg.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["ad_id"] != 4 {
		t.Fatalf("unexpected payload %v", decoded)
	}
}

func TestOpenDisabledBackend(t *testing.T) {
	bus, err := Open(context.Background(), config.MessagingConfig{Backend: "none"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if bus != nil {
		t.Fatalf("expected nil bus when messaging is disabled")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.MessagingConfig{Backend: "kafka"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
