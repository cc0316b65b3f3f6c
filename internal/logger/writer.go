package logger

import (
	"bufio"
	"io"
	"sync"
)

const defaultQueueDepth = 256

// lineWriter moves sink I/O off the logging hot path. Handle enqueues one
// formatted line; a single drain goroutine owns a buffered writer that fans
// out to stdout and the optional log file.
type lineWriter struct {
	lines  chan []byte
	flushC chan chan error
	done   chan struct{}

	// buf is touched only by the drain goroutine.
	buf *bufio.Writer

	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newLineWriter(sinks []io.Writer, queueDepth int) *lineWriter {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	targets := make([]io.Writer, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			targets = append(targets, s)
		}
	}
	w := &lineWriter{
		lines:  make(chan []byte, queueDepth),
		flushC: make(chan chan error),
		done:   make(chan struct{}),
		buf:    bufio.NewWriterSize(io.MultiWriter(targets...), 64*1024),
	}
	go w.drain()
	return w
}

func (w *lineWriter) drain() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.record(w.buf.Flush())
				return
			}
			w.emit(line)
		case ack := <-w.flushC:
			ack <- w.flushQueued()
		}
	}
}

func (w *lineWriter) emit(line []byte) {
	if _, err := w.buf.Write(line); err != nil {
		w.record(err)
		return
	}
	// Flush per line so tailing the log file stays useful.
	w.record(w.buf.Flush())
}

// flushQueued writes out everything sitting in the queue before flushing,
// so a Flush caller sees every line written before the call.
func (w *lineWriter) flushQueued() error {
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				break
			}
			w.emit(line)
			continue
		default:
		}
		err := w.buf.Flush()
		w.record(err)
		return err
	}
}

// Write queues one formatted line. A full queue blocks the caller instead
// of dropping output.
func (w *lineWriter) Write(p []byte) error {
	if err := w.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)
	select {
	case w.lines <- line:
		return nil
	case <-w.done:
		return w.failure()
	}
}

// Flush blocks until every line queued before the call reached the sinks.
func (w *lineWriter) Flush() error {
	if err := w.failure(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	select {
	case w.flushC <- ack:
		return <-ack
	case <-w.done:
		return w.failure()
	}
}

// Close stops the drain goroutine after the queue empties and reports the
// first write error seen over the writer's lifetime.
func (w *lineWriter) Close() error {
	w.closeOnce.Do(func() { close(w.lines) })
	<-w.done
	return w.failure()
}

func (w *lineWriter) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *lineWriter) failure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
