package editlogs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Buffer     int
	BatchSize  int
	FlushEvery time.Duration
}

var (
	defaultConfig = Config{
		Buffer:     1000,
		BatchSize:  50,
		FlushEvery: 2 * time.Second,
	}
	fastConfig = Config{
		Buffer:     1000,
		BatchSize:  50,
		FlushEvery: 50 * time.Millisecond,
	}
)

// Writer persists entries in the background. Entries are batched; when the
// buffer is full the entry is written directly instead. Failures are logged
// and dropped: the audit trail never fails the mutation it describes.
type Writer struct {
	buf        chan Entry
	cfg        Config
	deployment string
	seq        *Sequencer
	hub        *Hub
	log        zerolog.Logger

	wg        sync.WaitGroup
	onceClose sync.Once
	mu        sync.RWMutex
	closed    bool

	InsertOne  func(context.Context, Entry) error
	InsertMany func(context.Context, []Entry) error
}

func NewWriter(store Store, seq *Sequencer, hub *Hub, log zerolog.Logger, deployment string) *Writer {
	return NewWriterWithConfig(store, seq, hub, log, deployment, selectConfig(deployment))
}

func NewWriterWithConfig(store Store, seq *Sequencer, hub *Hub, log zerolog.Logger, deployment string, cfg Config) *Writer {
	w := &Writer{
		buf:        make(chan Entry, cfg.Buffer),
		cfg:        cfg,
		deployment: deployment,
		seq:        seq,
		hub:        hub,
		log:        log,
		InsertOne:  store.InsertOne,
		InsertMany: store.InsertMany,
	}

	w.wg.Add(1)
	go w.worker()

	return w
}

func selectConfig(deployment string) Config {
	switch deployment {
	case "test":
		return fastConfig
	default:
		return defaultConfig
	}
}

// Enqueue numbers the entry and hands it to the worker. Entries arriving
// while the buffer is full or after Close are written directly.
func (w *Writer) Enqueue(e Entry) {
	if w == nil {
		return
	}

	if w.seq != nil {
		e.Seq = w.seq.Next(context.Background())
	}

	w.mu.RLock()
	queued := false
	if !w.closed {
		select {
		case w.buf <- e:
			queued = true
		default:
		}
	}
	w.mu.RUnlock()

	if !queued {
		w.insertDirect(e)
	}
}

func (w *Writer) insertDirect(e Entry) {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		2*time.Second,
	)
	defer cancel()

	if err := w.InsertOne(ctx, e); err != nil {
		w.log.Error().Err(err).Str("model", e.Model).Str("action", e.Action).Msg("edit-log entry lost")
		return
	}
	w.hub.Publish(e)
}

// Close drains the buffer and waits for the last flush.
func (w *Writer) Close() {
	w.onceClose.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.buf)
		w.mu.Unlock()

		w.wg.Wait()
	})
}

func (w *Writer) worker() {
	defer w.wg.Done()

	batch := make([]Entry, 0, w.cfg.BatchSize)
	timer := time.NewTimer(w.cfg.FlushEvery)

	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			timer.Reset(w.cfg.FlushEvery)
			return
		}

		ctx, cancel := context.WithTimeout(
			context.Background(),
			2*time.Second,
		)

		if err := w.InsertMany(ctx, batch); err != nil {
			w.log.Error().Err(err).Int("entries", len(batch)).Msg("edit-log batch lost")
		} else {
			for _, e := range batch {
				w.hub.Publish(e)
			}
		}

		cancel()

		batch = batch[:0]
		timer.Reset(w.cfg.FlushEvery)
	}

	for {
		select {
		case e, ok := <-w.buf:
			if !ok {
				flush()
				return
			}

			batch = append(batch, e)

			if len(batch) >= w.cfg.BatchSize {
				flush()
			}
		case <-timer.C:
			flush()
		}
	}
}
