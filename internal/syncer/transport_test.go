package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hostdesk/hostdesk/internal/recon"
)

type recordingSink struct {
	mu           sync.Mutex
	patches      []recon.RecordPatch
	awardPatches []recon.AwardPatch
	rooms        []string
}

func (r *recordingSink) ApplyRemotePatch(ctx context.Context, roomID string, patch recon.RecordPatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, roomID)
	r.patches = append(r.patches, patch)
}

func (r *recordingSink) ApplyRemoteAwardPatch(ctx context.Context, roomID string, awardID uuid.UUID, patch recon.AwardPatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, roomID)
	r.awardPatches = append(r.awardPatches, patch)
}

func (r *recordingSink) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patches), len(r.awardPatches)
}

func newTestTransport(t *testing.T) (*redis.Client, *recordingSink, context.CancelFunc) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := &recordingSink{}
	sub := NewSubscriber(client, sink, nil, "observer")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = sub.Run(ctx)
	}()
	// Give the PSUBSCRIBE time to register before publishing.
	time.Sleep(50 * time.Millisecond)
	return client, sink, cancel
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	client, sink, cancel := newTestTransport(t)
	defer cancel()

	pub := NewPublisher(client, "editor")
	notes := "synced"
	require.NoError(t, pub.PublishPatch(context.Background(), "room-1", recon.RecordPatch{Notes: &notes}))

	require.Eventually(t, func() bool {
		n, _ := sink.counts()
		return n == 1
	}, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Equal(t, "room-1", sink.rooms[0])
	require.NotNil(t, sink.patches[0].Notes)
	require.Equal(t, "synced", *sink.patches[0].Notes)
}

func TestAwardPatchRoundTrip(t *testing.T) {
	client, sink, cancel := newTestTransport(t)
	defer cancel()

	pub := NewPublisher(client, "editor")
	awardID := uuid.New()
	ref := "shipment-1"
	require.NoError(t, pub.PublishAwardPatch(context.Background(), "room-2", awardID, recon.AwardPatch{AwardReference: &ref}))

	require.Eventually(t, func() bool {
		_, n := sink.counts()
		return n == 1
	}, time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotNil(t, sink.awardPatches[0].AwardReference)
	require.Equal(t, "shipment-1", *sink.awardPatches[0].AwardReference)
}

func TestSubscriberSkipsOwnEcho(t *testing.T) {
	client, sink, cancel := newTestTransport(t)
	defer cancel()

	// Same origin as the subscriber: the message must be ignored.
	pub := NewPublisher(client, "observer")
	notes := "echo"
	require.NoError(t, pub.PublishPatch(context.Background(), "room-1", recon.RecordPatch{Notes: &notes}))

	time.Sleep(100 * time.Millisecond)
	n, m := sink.counts()
	require.Zero(t, n)
	require.Zero(t, m)
}

func TestSubscriberDropsMalformedPayload(t *testing.T) {
	client, sink, cancel := newTestTransport(t)
	defer cancel()

	require.NoError(t, client.Publish(context.Background(), ChannelFor("room-1"), "not json").Err())
	require.NoError(t, client.Publish(context.Background(), ChannelFor("room-1"), `{"patch":{}}`).Err())

	time.Sleep(100 * time.Millisecond)
	n, m := sink.counts()
	require.Zero(t, n)
	require.Zero(t, m)
}

func TestOutboxCoalescesEdits(t *testing.T) {
	published := &capturePublisher{}
	outbox := NewOutbox(published, nil, 20*time.Millisecond)
	defer outbox.Stop()

	notesA := "first"
	notesB := "second"
	ledger := []recon.AdjustmentEntry{{Type: recon.AdjustmentFee}}
	outbox.SchedulePatch("room-1", recon.RecordPatch{Notes: &notesA})
	outbox.SchedulePatch("room-1", recon.RecordPatch{Ledger: &ledger})
	outbox.SchedulePatch("room-1", recon.RecordPatch{Notes: &notesB})

	require.Eventually(t, func() bool {
		return published.count() == 1
	}, time.Second, 5*time.Millisecond)

	patch := published.last()
	require.NotNil(t, patch.Notes)
	require.Equal(t, "second", *patch.Notes)
	require.NotNil(t, patch.Ledger)
}

func TestOutboxFlush(t *testing.T) {
	published := &capturePublisher{}
	outbox := NewOutbox(published, nil, time.Hour)
	defer outbox.Stop()

	notes := "pending"
	outbox.SchedulePatch("room-1", recon.RecordPatch{Notes: &notes})
	outbox.Flush()

	require.Equal(t, 1, published.count())
}

type capturePublisher struct {
	mu      sync.Mutex
	patches []recon.RecordPatch
	awards  []recon.AwardPatch
}

func (c *capturePublisher) PublishPatch(ctx context.Context, roomID string, patch recon.RecordPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patches = append(c.patches, patch)
	return nil
}

func (c *capturePublisher) PublishAwardPatch(ctx context.Context, roomID string, awardID uuid.UUID, patch recon.AwardPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.awards = append(c.awards, patch)
	return nil
}

func (c *capturePublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.patches)
}

func (c *capturePublisher) last() recon.RecordPatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.patches[len(c.patches)-1]
}
