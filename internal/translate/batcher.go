package translate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Result is the outcome of one dispatched batch. Translations is nil when
// the request failed; Texts always lists what was requested so the caller
// can release or retry them.
type Result struct {
	Lang         string
	Texts        []string
	Translations map[string]string
	Err          error
}

// Batcher accumulates translation requests per source language and flushes
// them when a batch fills or the delay elapses, whichever comes first.
// Outcomes are delivered on the deliver callback from dispatch goroutines.
type Batcher struct {
	svc     Service
	maxSize int
	delay   time.Duration
	deliver func(Result)

	mu      sync.Mutex
	pending map[string][]string
	timer   *time.Timer
	closed  bool
	wg      sync.WaitGroup
}

// NewBatcher creates a batcher dispatching through svc.
func NewBatcher(svc Service, maxSize int, delay time.Duration, deliver func(Result)) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultBatchMax
	}
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	return &Batcher{
		svc:     svc,
		maxSize: maxSize,
		delay:   delay,
		deliver: deliver,
		pending: make(map[string][]string),
	}
}

// Enqueue adds texts for one source language. A full batch dispatches
// immediately; otherwise the flush timer is armed.
func (b *Batcher) Enqueue(lang string, texts []string) {
	if len(texts) == 0 {
		return
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending[lang] = appendUnique(b.pending[lang], texts)

	if len(b.pending[lang]) >= b.maxSize {
		batch := b.pending[lang]
		delete(b.pending, lang)
		b.wg.Add(1)
		b.mu.Unlock()
		go b.dispatch(lang, batch)
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.delay, b.flushAll)
	}
	b.mu.Unlock()
}

// Flush dispatches everything pending without waiting for the timer.
func (b *Batcher) Flush() {
	b.flushAll()
}

// Close flushes pending work and waits for in-flight dispatches.
func (b *Batcher) Close() {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	pending := b.pending
	b.pending = make(map[string][]string)
	for range pending {
		b.wg.Add(1)
	}
	b.mu.Unlock()

	for lang, texts := range pending {
		go b.dispatch(lang, texts)
	}
	b.wg.Wait()
}

func (b *Batcher) flushAll() {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[string][]string)
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	for range pending {
		b.wg.Add(1)
	}
	b.mu.Unlock()

	for lang, texts := range pending {
		go b.dispatch(lang, texts)
	}
}

func (b *Batcher) dispatch(lang string, texts []string) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), DispatchTimeout)
	defer cancel()

	translations, err := b.svc.TranslateBatch(ctx, lang, texts)
	if err != nil {
		slog.Warn("translation batch failed", "lang", lang, "count", len(texts), "error", err)
	}
	b.deliver(Result{Lang: lang, Texts: texts, Translations: translations, Err: err})
}

func appendUnique(have, add []string) []string {
	for _, text := range add {
		seen := false
		for _, existing := range have {
			if existing == text {
				seen = true
				break
			}
		}
		if !seen {
			have = append(have, text)
		}
	}
	return have
}
