package service

import (
	"context"
	"sync"
	"time"

	"llm-builder-console/internal/entity"
	"llm-builder-console/internal/pkg/logger"
)

// DocumentFetcher loads the full document list for a knowledge base.
type DocumentFetcher func(ctx context.Context, kbID string) ([]entity.Document, error)

// HasActive reports whether any document is still pending or processing.
// While true, the tracker keeps polling.
func HasActive(docs []entity.Document) bool {
	for _, d := range docs {
		if d.Status.Active() {
			return true
		}
	}
	return false
}

// IngestTracker mirrors the ingestion state of the currently selected
// knowledge base. While any document is non-terminal it refreshes the list
// on a fixed interval, replacing local state wholesale with the server's
// answer (last fetch wins, no partial merges). Polling stops as soon as
// nothing is active, the selection changes, or the owning context is done.
//
// Every local mutation and every poll result is guarded by a generation
// counter: a fetch that resolves after the selection moved on is discarded
// instead of being applied to state that no longer exists.
type IngestTracker struct {
	fetch    DocumentFetcher
	interval time.Duration
	log      logger.ILogger

	mu       sync.Mutex
	gen      int
	kbID     string
	docs     []entity.Document
	watchCtx context.Context
	cancel   context.CancelFunc
	polling  bool
	onUpdate func(kbID string, docs []entity.Document)
}

func NewIngestTracker(fetch DocumentFetcher, interval time.Duration, log logger.ILogger) *IngestTracker {
	return &IngestTracker{fetch: fetch, interval: interval, log: log}
}

// OnUpdate registers a callback invoked (without the lock held) whenever a
// poll replaces the document list.
func (t *IngestTracker) OnUpdate(fn func(kbID string, docs []entity.Document)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUpdate = fn
}

// Select switches the tracker to a knowledge base: any previous polling
// loop is cancelled, one immediate fetch runs, and the loop engages only if
// something is still active. Re-selecting the same base restarts discovery
// the same way.
//
// An initial-load failure is surfaced to the caller along with an empty
// list; failures inside the loop are swallowed and retried on the next
// tick.
func (t *IngestTracker) Select(ctx context.Context, kbID string) ([]entity.Document, error) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
	gen := t.gen
	t.polling = false
	t.kbID = kbID
	t.docs = nil
	watchCtx, cancel := context.WithCancel(ctx)
	t.watchCtx = watchCtx
	t.cancel = cancel
	t.mu.Unlock()

	docs, err := t.fetch(ctx, kbID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if gen != t.gen {
		// Selection moved on while the initial fetch was in flight.
		t.mu.Unlock()
		return docs, nil
	}
	t.docs = docs
	active := HasActive(docs)
	if active && !t.polling {
		t.polling = true
		go t.loop(watchCtx, gen, kbID)
	}
	t.mu.Unlock()

	return docs, nil
}

// Stop cancels any polling deterministically. Safe to call on teardown
// regardless of state.
func (t *IngestTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
	t.polling = false
}

// Documents returns a snapshot of the current list.
func (t *IngestTracker) Documents() []entity.Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]entity.Document, len(t.docs))
	copy(out, t.docs)
	return out
}

// Prepend inserts a freshly uploaded document at the head of the list so
// the user sees it before the next poll, and wakes the loop if the upload
// made the base active again.
func (t *IngestTracker) Prepend(doc entity.Document) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if doc.KnowledgeBaseId != t.kbID {
		return
	}
	t.docs = append([]entity.Document{doc}, t.docs...)
	t.wakeLocked()
}

// Replace swaps a single document in place (after a re-ingest or edit) and
// wakes the loop if the new status is non-terminal.
func (t *IngestTracker) Replace(doc entity.Document) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.docs {
		if t.docs[i].Id == doc.Id {
			t.docs[i] = doc
			break
		}
	}
	t.wakeLocked()
}

// Remove drops a deleted document from the local list.
func (t *IngestTracker) Remove(docID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.docs[:0]
	for _, d := range t.docs {
		if d.Id != docID {
			kept = append(kept, d)
		}
	}
	t.docs = kept
}

func (t *IngestTracker) wakeLocked() {
	if t.polling || !HasActive(t.docs) || t.watchCtx == nil {
		return
	}
	t.polling = true
	go t.loop(t.watchCtx, t.gen, t.kbID)
}

func (t *IngestTracker) loop(ctx context.Context, gen int, kbID string) {
	defer func() {
		t.mu.Lock()
		if gen == t.gen {
			t.polling = false
		}
		t.mu.Unlock()
	}()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		docs, err := t.fetch(ctx, kbID)
		if err != nil {
			// Transient failures must not break the loop; retry next tick.
			t.log.Warn("ingest", "poll failed", map[string]interface{}{"kb": kbID, "error": err.Error()})
			continue
		}

		t.mu.Lock()
		if gen != t.gen {
			// Stale response for a selection that no longer exists.
			t.mu.Unlock()
			return
		}
		t.docs = docs
		notify := t.onUpdate
		done := !HasActive(docs)
		t.mu.Unlock()

		if notify != nil {
			notify(kbID, docs)
		}
		if done {
			return
		}
	}
}
