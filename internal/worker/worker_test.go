package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/recmeet/recmeet/internal/job"
	"github.com/recmeet/recmeet/internal/notify"
	"github.com/recmeet/recmeet/internal/queue"
	"github.com/recmeet/recmeet/internal/store"
	"github.com/recmeet/recmeet/internal/summarize"
	"github.com/recmeet/recmeet/internal/transcriber"
)

type fakeSource struct {
	dir      string
	duration float64
	extracts int
}

func (s *fakeSource) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if s.duration <= 0 {
		return 0, errors.New("unreadable input")
	}
	return s.duration, nil
}

func (s *fakeSource) ExtractRange(ctx context.Context, path string, start, end float64) (string, error) {
	out := filepath.Join(s.dir, fmt.Sprintf("segment-%d.wav", s.extracts))
	s.extracts++
	return out, os.WriteFile(out, []byte("wav"), 0o600)
}

type fakeSegments struct {
	texts []string
	langs []string
	calls int
}

func (a *fakeSegments) TranscribeSegment(ctx context.Context, path string) (string, string, error) {
	if a.calls >= len(a.texts) {
		return "", "", fmt.Errorf("unexpected segment call %d", a.calls)
	}
	i := a.calls
	a.calls++
	return a.texts[i], a.langs[i], nil
}

type fakeCompletion struct {
	response string
	err      error
	lastUser string
}

func (f *fakeCompletion) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.lastUser = userPrompt
	return f.response, f.err
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	visible bool
	putErr  error
}

func (f *fakeObjects) Put(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjects) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.visible {
		return false, nil
	}
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjects) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (f *fakeObjects) List(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

type countingPusher struct {
	mu    sync.Mutex
	sends int
}

func (p *countingPusher) Send(ctx context.Context, token string, event notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends++
	return nil
}

type fixture struct {
	processor *Processor
	jobs      *job.Store
	objects   *fakeObjects
	pusher    *countingPusher
	segments  *fakeSegments
}

func newFixture(t *testing.T, completion *fakeCompletion) *fixture {
	t.Helper()

	source := &fakeSource{dir: t.TempDir(), duration: 500}
	segments := &fakeSegments{
		texts: []string{"hello ", "world ", "!"},
		langs: []string{"en", "en", "en"},
	}
	objects := &fakeObjects{objects: map[string][]byte{}, visible: true}
	jobs := job.NewStore()
	registry := notify.NewMemoryRegistry()
	registry.Register(notify.Subscriber{Token: "t1", RegisteredAt: time.Now()})
	pusher := &countingPusher{}

	p := NewProcessor(
		source,
		transcriber.NewEngineWithAdapter(segments, source),
		summarize.NewComposer(completion),
		store.NewPersister(objects, func() store.VerifyConfig {
			return store.VerifyConfig{Attempts: 3, Interval: 0}
		}),
		jobs,
		notify.NewFanout(registry, pusher),
		func() float64 { return 240 },
	)
	return &fixture{processor: p, jobs: jobs, objects: objects, pusher: pusher, segments: segments}
}

func queuedMessage(f *fixture) queue.Message {
	j := job.Job{ID: "job-1", AudioRef: "uploads/rec.m4a", OriginalFilename: "rec.m4a", Status: job.StatusQueued}
	f.jobs.Add(j)
	return queue.Message{JobID: j.ID, AudioRef: j.AudioRef, OriginalFilename: j.OriginalFilename}
}

func TestProcessEndToEnd(t *testing.T) {
	completion := &fakeCompletion{response: "**Transcript**\ncleaned words\n**Summary**\nshort recap"}
	f := newFixture(t, completion)
	f.processor.now = func() time.Time { return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC) }

	msg := queuedMessage(f)
	if err := f.processor.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	// 500s at 240s/chunk plans exactly 3 chunks
	if f.segments.calls != 3 {
		t.Errorf("transcribed %d chunks, want 3", f.segments.calls)
	}
	if !strings.Contains(completion.lastUser, "hello  world  !") {
		t.Errorf("summarization prompt missing aggregated transcript, got %q", completion.lastUser)
	}

	key := store.KeyFor(time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC))
	if _, ok := f.objects.objects[key]; !ok {
		t.Errorf("record not persisted under %s; stored keys: %v", key, f.objects.objects)
	}

	j, err := f.jobs.Get(msg.JobID)
	if err != nil {
		t.Fatalf("job lookup failed: %v", err)
	}
	if j.Status != job.StatusDone || j.ResultKey != key {
		t.Errorf("job = %+v, want done with key %s", j, key)
	}
	if f.pusher.sends != 1 {
		t.Errorf("pusher sends = %d, want 1", f.pusher.sends)
	}
}

// Verification exhaustion is a warning, not a failure: the job is still
// Done and subscribers are still notified.
func TestProcessVerifyExhaustionStillSucceeds(t *testing.T) {
	completion := &fakeCompletion{response: "prose only"}
	f := newFixture(t, completion)
	f.objects.visible = false

	msg := queuedMessage(f)
	if err := f.processor.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	j, _ := f.jobs.Get(msg.JobID)
	if j.Status != job.StatusDone {
		t.Errorf("job status = %s, want done despite verification exhaustion", j.Status)
	}
	if f.pusher.sends != 1 {
		t.Errorf("pusher sends = %d, want 1", f.pusher.sends)
	}
}

func TestProcessSummarizationFailureAbortsBeforePersist(t *testing.T) {
	completion := &fakeCompletion{err: errors.New("model overloaded")}
	f := newFixture(t, completion)

	msg := queuedMessage(f)
	err := f.processor.Process(context.Background(), msg)
	if !errors.Is(err, summarize.ErrSummarization) {
		t.Fatalf("Process = %v, want ErrSummarization", err)
	}

	if len(f.objects.objects) != 0 {
		t.Error("no record may be persisted when summarization fails")
	}
	if f.pusher.sends != 0 {
		t.Error("no notification may be sent for a failed job")
	}

	j, _ := f.jobs.Get(msg.JobID)
	if j.Status != job.StatusFailed || j.Error == "" {
		t.Errorf("job = %+v, want failed with reason", j)
	}
}

func TestProcessPersistenceFailureFailsJob(t *testing.T) {
	completion := &fakeCompletion{response: "**Transcript**\nx\n**Summary**\ny"}
	f := newFixture(t, completion)
	f.objects.putErr = errors.New("bucket unavailable")

	msg := queuedMessage(f)
	if err := f.processor.Process(context.Background(), msg); !errors.Is(err, store.ErrPersistence) {
		t.Fatalf("Process = %v, want ErrPersistence", err)
	}
	if f.pusher.sends != 0 {
		t.Error("no notification may be sent for an unpersisted result")
	}
}

func TestProcessProbeFailureFailsJob(t *testing.T) {
	completion := &fakeCompletion{response: "doc"}
	f := newFixture(t, completion)

	source := &fakeSource{dir: t.TempDir(), duration: 0}
	f.processor.source = source

	msg := queuedMessage(f)
	if err := f.processor.Process(context.Background(), msg); err == nil {
		t.Fatal("expected probe failure to fail the job")
	}

	j, _ := f.jobs.Get(msg.JobID)
	if j.Status != job.StatusFailed {
		t.Errorf("job status = %s, want failed", j.Status)
	}
}

// The chunk bound is re-read on every job, so a config reload changes the
// plan of the next delivery without rebuilding the processor.
func TestProcessRereadsChunkBoundPerJob(t *testing.T) {
	completion := &fakeCompletion{response: "doc"}
	f := newFixture(t, completion)
	f.segments.texts = []string{"a ", "b ", "c ", "d ", "e "}
	f.segments.langs = []string{"en", "en", "en", "en", "en"}

	bound := 240.0
	f.processor.maxChunkSeconds = func() float64 { return bound }

	msg := queuedMessage(f)
	if err := f.processor.Process(context.Background(), msg); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if f.segments.calls != 3 {
		t.Fatalf("transcribed %d chunks, want 3 at 240s", f.segments.calls)
	}

	bound = 250
	if err := f.processor.Process(context.Background(), msg); err != nil {
		t.Fatalf("second delivery failed: %v", err)
	}
	// 500s at 250s/chunk plans 2 chunks, 5 segment calls total
	if f.segments.calls != 5 {
		t.Errorf("transcribed %d chunks total, want 5 after bound change", f.segments.calls)
	}
}

// A message can arrive for a job this instance never tracked, for example
// after a restart. The pipeline still runs to completion; only the local
// status updates are skipped.
func TestProcessUntrackedJobStillCompletes(t *testing.T) {
	completion := &fakeCompletion{response: "**Transcript**\nx\n**Summary**\ny"}
	f := newFixture(t, completion)

	msg := queue.Message{JobID: "unseen-job", AudioRef: "uploads/rec.m4a", OriginalFilename: "rec.m4a"}
	if err := f.processor.Process(context.Background(), msg); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(f.objects.objects) != 1 {
		t.Errorf("stored %d records, want 1", len(f.objects.objects))
	}
	if f.pusher.sends != 1 {
		t.Errorf("pusher sends = %d, want 1", f.pusher.sends)
	}
	if _, err := f.jobs.Get("unseen-job"); !errors.Is(err, job.ErrNotFound) {
		t.Errorf("untracked job should stay untracked, got %v", err)
	}
}

// Redelivery of the same message is idempotent-safe: two full runs produce
// two distinct records, never a merged or corrupted one.
func TestProcessRedeliveryProducesDistinctRecords(t *testing.T) {
	completion := &fakeCompletion{response: "**Transcript**\nx\n**Summary**\ny"}
	f := newFixture(t, completion)
	f.segments.texts = append(f.segments.texts, f.segments.texts...)
	f.segments.langs = append(f.segments.langs, f.segments.langs...)

	stamps := []time.Time{
		time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
		time.Date(2025, 3, 14, 15, 9, 27, 0, time.UTC),
	}
	run := 0
	f.processor.now = func() time.Time { t := stamps[run]; run++; return t }

	msg := queuedMessage(f)
	if err := f.processor.Process(context.Background(), msg); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := f.processor.Process(context.Background(), msg); err != nil {
		t.Fatalf("second delivery failed: %v", err)
	}

	if len(f.objects.objects) != 2 {
		t.Errorf("stored %d records, want 2 distinct", len(f.objects.objects))
	}
}
