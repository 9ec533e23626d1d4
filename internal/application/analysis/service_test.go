package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/vision-assist/internal/domain/analysis"
)

type fakeBackend struct {
	outcome domain.Outcome
	calls   int
	intent  domain.Intent
}

func (f *fakeBackend) Analyze(_ context.Context, _ []byte, _ string, intent domain.Intent) domain.Outcome {
	f.calls++
	f.intent = intent
	out := f.outcome
	out.Intent = intent
	return out
}

type fakeStore struct {
	url   string
	err   error
	calls int
	key   string
}

func (f *fakeStore) Upload(_ context.Context, _ []byte, key, _ string) (string, error) {
	f.calls++
	f.key = key
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeLog struct {
	appended []*domain.Record
	err      error
}

func (f *fakeLog) Append(_ context.Context, rec *domain.Record) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, rec)
	return nil
}

func (f *fakeLog) Latest(_ context.Context, _ int) ([]*domain.Record, error) {
	return f.appended, nil
}

type fakeNotifier struct {
	ids      []string
	payloads []any
	result   bool
}

func (f *fakeNotifier) Deliver(id string, payload any) bool {
	f.ids = append(f.ids, id)
	f.payloads = append(f.payloads, payload)
	return f.result
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newService(backend *fakeBackend, store *fakeStore, log *fakeLog, notifier *fakeNotifier) *Service {
	return &Service{
		Backend:  backend,
		Log:      log,
		Images:   store,
		Notifier: notifier,
		Clock:    fixedClock{at: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
}

func successOutcome(result string) domain.Outcome {
	return domain.Outcome{Result: json.RawMessage(result), Succeeded: true}
}

func TestHandleSyncSuccessWithoutPersist(t *testing.T) {
	backend := &fakeBackend{outcome: successOutcome(`{"items":["bottle"]}`)}
	store := &fakeStore{url: "http://minio/ai/x"}
	log := &fakeLog{}
	notifier := &fakeNotifier{result: true}
	svc := newService(backend, store, log, notifier)

	payload := svc.Handle(context.Background(), domain.Request{
		Image:    []byte{0xff, 0xd8, 0xff},
		Filename: "box.jpg",
		Command:  "find my medicine box",
	})

	require.NotNil(t, payload)
	assert.Equal(t, domain.StatusSuccess, payload.Status)
	assert.Equal(t, domain.IntentTextExtraction, payload.Intent)
	assert.JSONEq(t, `{"items":["bottle"]}`, string(payload.Result))
	assert.False(t, payload.Saved)
	assert.Empty(t, payload.ImageURL)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, domain.IntentTextExtraction, backend.intent)
	assert.Equal(t, 0, store.calls, "no persistence requested")
	assert.Empty(t, log.appended)
	assert.Empty(t, notifier.ids, "sync path never pushes")
}

func TestHandleEmptyCommandShortCircuits(t *testing.T) {
	backend := &fakeBackend{outcome: successOutcome(`{}`)}
	svc := newService(backend, &fakeStore{}, &fakeLog{}, &fakeNotifier{})

	payload := svc.Handle(context.Background(), domain.Request{
		Image:   []byte{0x01},
		Command: "   ",
	})

	require.NotNil(t, payload.Failure)
	assert.Equal(t, domain.FailureInvalidRequest, payload.Failure.Kind)
	assert.Equal(t, domain.StatusError, payload.Status)
	assert.Equal(t, 0, backend.calls, "no remote call for invalid input")
}

func TestHandleMissingImageShortCircuits(t *testing.T) {
	backend := &fakeBackend{outcome: successOutcome(`{}`)}
	svc := newService(backend, &fakeStore{}, &fakeLog{}, &fakeNotifier{})

	payload := svc.Handle(context.Background(), domain.Request{Command: "find my keys"})

	require.NotNil(t, payload.Failure)
	assert.Equal(t, domain.FailureInvalidRequest, payload.Failure.Kind)
	assert.Equal(t, 0, backend.calls)
}

func TestHandlePushWithPersistCarriesLocator(t *testing.T) {
	backend := &fakeBackend{outcome: successOutcome(`{"faces":1}`)}
	store := &fakeStore{url: "http://minio/images/ai-results/photo.jpg"}
	log := &fakeLog{}
	notifier := &fakeNotifier{result: true}
	svc := newService(backend, store, log, notifier)

	payload := svc.Handle(context.Background(), domain.Request{
		Image:    []byte{0xff, 0xd8},
		Filename: "photo.jpg",
		Command:  "who is the person here",
		Save:     true,
		SocketID: "client-42",
	})

	assert.Equal(t, domain.StatusSuccess, payload.Status)
	assert.True(t, payload.Saved)
	assert.Equal(t, store.url, payload.ImageURL)

	require.Len(t, log.appended, 1)
	assert.Equal(t, store.url, log.appended[0].ImageURL)
	assert.Equal(t, "who is the person here", log.appended[0].Command)

	require.Len(t, notifier.ids, 1, "exactly one delivery attempt")
	assert.Equal(t, "client-42", notifier.ids[0])
	delivered, ok := notifier.payloads[0].(*domain.Payload)
	require.True(t, ok)
	assert.Equal(t, store.url, delivered.ImageURL, "delivered locator matches storage")
}

func TestHandleBackendFailureSkipsPersistButDelivers(t *testing.T) {
	backend := &fakeBackend{outcome: domain.Outcome{
		Failure: &domain.Failure{Kind: domain.FailureBackendTimeout, Message: "deadline exceeded"},
	}}
	store := &fakeStore{url: "http://minio/x"}
	log := &fakeLog{}
	notifier := &fakeNotifier{result: true}
	svc := newService(backend, store, log, notifier)

	payload := svc.Handle(context.Background(), domain.Request{
		Image:    []byte{0x01},
		Command:  "detect objects",
		Save:     true,
		SocketID: "client-7",
	})

	assert.Equal(t, domain.StatusError, payload.Status)
	require.NotNil(t, payload.Failure)
	assert.Equal(t, domain.FailureBackendTimeout, payload.Failure.Kind)

	assert.Equal(t, 0, store.calls, "persist never runs after a failed analysis")
	assert.Empty(t, log.appended)
	assert.Len(t, notifier.ids, 1, "failures are reported, not swallowed")
}

func TestHandleUploadFailurePreventsAppend(t *testing.T) {
	backend := &fakeBackend{outcome: successOutcome(`{"text":"aspirin"}`)}
	store := &fakeStore{err: errors.New("bucket unavailable")}
	log := &fakeLog{}
	svc := newService(backend, store, log, &fakeNotifier{})

	payload := svc.Handle(context.Background(), domain.Request{
		Image:   []byte{0x01},
		Command: "read the label",
		Save:    true,
	})

	assert.Equal(t, domain.StatusError, payload.Status)
	require.NotNil(t, payload.Failure)
	assert.Equal(t, domain.FailurePersistence, payload.Failure.Kind)

	assert.Empty(t, log.appended, "no partial record after a failed upload")
	assert.JSONEq(t, `{"text":"aspirin"}`, string(payload.Result), "analysis result survives the downgrade")
	assert.False(t, payload.Saved)
	assert.Empty(t, payload.ImageURL)
}

func TestHandleAppendFailureDowngrades(t *testing.T) {
	backend := &fakeBackend{outcome: successOutcome(`{"faces":2}`)}
	store := &fakeStore{url: "http://minio/ok"}
	log := &fakeLog{err: errors.New("connection reset")}
	svc := newService(backend, store, log, &fakeNotifier{})

	payload := svc.Handle(context.Background(), domain.Request{
		Image:   []byte{0x01},
		Command: "faces please",
		Save:    true,
	})

	assert.Equal(t, domain.StatusError, payload.Status)
	assert.Equal(t, domain.FailurePersistence, payload.Failure.Kind)
	assert.JSONEq(t, `{"faces":2}`, string(payload.Result))
	assert.False(t, payload.Saved)
}

func TestHandlePushTargetGoneIsSilent(t *testing.T) {
	backend := &fakeBackend{outcome: successOutcome(`{}`)}
	notifier := &fakeNotifier{result: false}
	svc := newService(backend, &fakeStore{}, &fakeLog{}, notifier)

	payload := svc.Handle(context.Background(), domain.Request{
		Image:    []byte{0x01},
		Command:  "detect",
		SocketID: "gone-client",
	})

	assert.Equal(t, domain.StatusSuccess, payload.Status)
	assert.Len(t, notifier.ids, 1, "one attempt, no retry")
}

func TestPersistKeyUsesTimestampAndFilename(t *testing.T) {
	backend := &fakeBackend{outcome: successOutcome(`{}`)}
	store := &fakeStore{url: "http://minio/x"}
	svc := newService(backend, store, &fakeLog{}, &fakeNotifier{})

	svc.Handle(context.Background(), domain.Request{
		Image:    []byte{0x01},
		Filename: "uploads/photo.png",
		Command:  "detect",
		Save:     true,
	})

	require.Equal(t, 1, store.calls)
	assert.Contains(t, store.key, "ai-results/")
	assert.Contains(t, store.key, "photo.png")
	assert.NotContains(t, store.key, "uploads/", "only the base name is kept")
}
