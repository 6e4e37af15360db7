package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hostdesk/hostdesk/internal/recon"
)

// Envelope is the wire form of a reconciliation patch. PrizeAwardID is set
// only on the narrow per-award message. Origin identifies the publishing
// instance so subscribers can skip their own echoes.
type Envelope struct {
	RoomID       string          `json:"roomId"`
	PrizeAwardID *uuid.UUID      `json:"prizeAwardId,omitempty"`
	Origin       string          `json:"origin,omitempty"`
	Patch        json.RawMessage `json:"patch"`
}

// ChannelFor returns the pub/sub channel carrying patches for a room.
func ChannelFor(roomID string) string {
	return "room:" + roomID + ":recon"
}

const channelPattern = "room:*:recon"

// Publisher sends patch envelopes over Redis pub/sub.
type Publisher struct {
	client *redis.Client
	origin string
}

// NewPublisher constructs a Publisher. Origin should be unique per process.
func NewPublisher(client *redis.Client, origin string) *Publisher {
	return &Publisher{client: client, origin: origin}
}

// PublishPatch broadcasts a record patch for a room.
func (p *Publisher) PublishPatch(ctx context.Context, roomID string, patch recon.RecordPatch) error {
	return p.publish(ctx, roomID, nil, patch)
}

// PublishAwardPatch broadcasts a per-award patch.
func (p *Publisher) PublishAwardPatch(ctx context.Context, roomID string, awardID uuid.UUID, patch recon.AwardPatch) error {
	return p.publish(ctx, roomID, &awardID, patch)
}

func (p *Publisher) publish(ctx context.Context, roomID string, awardID *uuid.UUID, patch any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("syncer: encode patch: %w", err)
	}
	envelope, err := json.Marshal(Envelope{
		RoomID:       roomID,
		PrizeAwardID: awardID,
		Origin:       p.origin,
		Patch:        raw,
	})
	if err != nil {
		return fmt.Errorf("syncer: encode envelope: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelFor(roomID), envelope).Err(); err != nil {
		return fmt.Errorf("syncer: publish: %w", err)
	}
	return nil
}

// PatchSink applies inbound patches. Application never errors outward;
// invalid patches are dropped by the sink.
type PatchSink interface {
	ApplyRemotePatch(ctx context.Context, roomID string, patch recon.RecordPatch)
	ApplyRemoteAwardPatch(ctx context.Context, roomID string, awardID uuid.UUID, patch recon.AwardPatch)
}

// Subscriber consumes patch envelopes from Redis pub/sub and feeds them to
// the reconciliation service.
type Subscriber struct {
	client *redis.Client
	sink   PatchSink
	logger *slog.Logger
	origin string
}

// NewSubscriber constructs a Subscriber. Envelopes whose origin matches are
// skipped as local echoes.
func NewSubscriber(client *redis.Client, sink PatchSink, logger *slog.Logger, origin string) *Subscriber {
	return &Subscriber{client: client, sink: sink, logger: logger, origin: origin}
}

// Run consumes patches until the context is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.client.PSubscribe(ctx, channelPattern)
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(ctx, msg.Payload)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, payload string) {
	var envelope Envelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		s.warn("decode envelope", "", err)
		return
	}
	if envelope.RoomID == "" {
		s.warn("decode envelope", "", fmt.Errorf("syncer: missing room id"))
		return
	}
	if s.origin != "" && envelope.Origin == s.origin {
		return
	}
	if envelope.PrizeAwardID != nil {
		var patch recon.AwardPatch
		if err := json.Unmarshal(envelope.Patch, &patch); err != nil {
			s.warn("decode award patch", envelope.RoomID, err)
			return
		}
		s.sink.ApplyRemoteAwardPatch(ctx, envelope.RoomID, *envelope.PrizeAwardID, patch)
		return
	}
	var patch recon.RecordPatch
	if err := json.Unmarshal(envelope.Patch, &patch); err != nil {
		s.warn("decode record patch", envelope.RoomID, err)
		return
	}
	s.sink.ApplyRemotePatch(ctx, envelope.RoomID, patch)
}

func (s *Subscriber) warn(stage, roomID string, err error) {
	if s.logger != nil {
		s.logger.Warn("dropped transport message",
			slog.String("stage", stage),
			slog.String("room_id", roomID),
			slog.Any("error", err))
	}
}
