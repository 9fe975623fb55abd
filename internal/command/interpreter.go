// Package command turns operator text lines into control commands.
package command

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/chrissnell/volcanomonitor/internal/log"
)

// Command is a recognized operator request.
type Command int

const (
	// Halt stops the monitor permanently.
	Halt Command = iota + 1
	// DumpLogs prints the whole log file.
	DumpLogs
	// AlertSafe and AlertDisaster are sent by a host manager to set the alert mode.
	AlertSafe
	AlertDisaster
)

func (c Command) String() string {
	switch c {
	case Halt:
		return "stop"
	case DumpLogs:
		return "dump"
	case AlertSafe:
		return "mode_safe"
	case AlertDisaster:
		return "mode_disaster"
	}
	return "unknown"
}

// Parse matches a line against the command vocabulary, ignoring case and
// surrounding whitespace. Unrecognized input reports false.
func Parse(line string) (Command, bool) {
	word := strings.TrimSpace(line)
	for _, c := range []Command{Halt, DumpLogs, AlertSafe, AlertDisaster} {
		if strings.EqualFold(word, c.String()) {
			return c, true
		}
	}
	return 0, false
}

// MaxLineLength bounds a command line. Longer lines are discarded whole.
const MaxLineLength = 4096

// Interpreter reads lines from a stream in the background and hands them out
// one per poll.
type Interpreter struct {
	lines chan string
	done  chan struct{}
	stop  chan struct{}
	once  sync.Once

	mu  sync.Mutex
	err error
}

// NewInterpreter starts reading r. The reader goroutine exits when r returns
// EOF or an error, or when Close is called.
func NewInterpreter(r io.Reader) *Interpreter {
	in := &Interpreter{
		lines: make(chan string, 16),
		done:  make(chan struct{}),
		stop:  make(chan struct{}),
	}
	go in.readLines(r)
	return in
}

func (in *Interpreter) readLines(r io.Reader) {
	defer close(in.done)
	defer close(in.lines)

	br := bufio.NewReaderSize(r, MaxLineLength)
	var buf []byte
	oversized := false

	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			if err != io.EOF {
				log.Warnf("console input closed: %v", err)
				in.mu.Lock()
				in.err = err
				in.mu.Unlock()
			}
			return
		}

		if !oversized {
			buf = append(buf, frag...)
			if len(buf) > MaxLineLength {
				oversized = true
				buf = buf[:0]
			}
		}
		if isPrefix {
			continue
		}

		if oversized {
			log.Debugf("discarding console line longer than %d bytes", MaxLineLength)
			oversized = false
			continue
		}

		line := string(buf)
		buf = buf[:0]
		select {
		case in.lines <- line:
		case <-in.stop:
			return
		}
	}
}

// Close stops handing out lines and lets the reader goroutine exit once its
// current read returns.
func (in *Interpreter) Close() {
	in.once.Do(func() { close(in.stop) })
}

// TryReadCommand consumes at most one pending line without blocking. It
// returns false when no line is pending or the line is not a command.
func (in *Interpreter) TryReadCommand() (Command, bool) {
	select {
	case line, ok := <-in.lines:
		if !ok {
			return 0, false
		}
		c, recognized := Parse(line)
		if !recognized && strings.TrimSpace(line) != "" {
			log.Debugf("ignoring console input %q", line)
		}
		return c, recognized
	default:
		return 0, false
	}
}

// Done is closed once the input stream has ended.
func (in *Interpreter) Done() <-chan struct{} {
	return in.done
}

// Err returns the read error that ended the stream, if any.
func (in *Interpreter) Err() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.err
}
