package abook

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	defaultQueueSize int    = 100
	PolicyDrop       string = "drop"
	PolicyBlock      string = "block"
	blockWait               = 100 * time.Millisecond
)

// Logger queues formatted lines into a bounded channel drained by a single
// goroutine, so concurrent sessions never interleave partial lines and never
// stall on a slow sink. Overflow follows the configured policy: drop removes
// the oldest entry to make room, block waits up to blockWait then gives up.
type Logger struct {
	queue  chan string
	policy string
	debug  bool
	out    io.Writer
	done   chan struct{}
	once   sync.Once
}

func NewLogger(out io.Writer, size int, policy string, debug bool) *Logger {
	if size <= 0 {
		size = defaultQueueSize
	}
	if policy != PolicyBlock {
		policy = PolicyDrop
	}
	l := &Logger{
		queue:  make(chan string, size),
		policy: policy,
		debug:  debug,
		out:    out,
		done:   make(chan struct{}),
	}
	go l.drain()
	return l
}

func (l *Logger) Log(format string, args ...interface{}) {
	l.put(fmt.Sprintf(format, args...))
}

// Debug logs only when verbose logging is enabled.
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.put(fmt.Sprintf(format, args...))
}

// Close flushes queued entries and stops the drain goroutine. Logging after
// Close is a caller bug.
func (l *Logger) Close() {
	l.once.Do(func() {
		close(l.queue)
		<-l.done
	})
}

func (l *Logger) drain() {
	for entry := range l.queue {
		fmt.Fprintf(l.out, "[%s] %s\n", time.Now().Format(TimeFormat), entry)
	}
	close(l.done)
}

func (l *Logger) put(entry string) {
	select {
	case l.queue <- entry:
		return
	default:
	}

	if l.policy == PolicyBlock {
		select {
		case l.queue <- entry:
		case <-time.After(blockWait):
		}
		return
	}

	select {
	case <-l.queue:
	default:
	}
	select {
	case l.queue <- entry:
	default:
	}
}
