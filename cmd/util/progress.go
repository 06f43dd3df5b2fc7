package util

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ClearProgress is an escape sequence that clears the current line.
const ClearProgress = "\033[2K\r"

// ProgressPrinter prints a message followed by a growing line of dots until
// it's stopped.
type ProgressPrinter struct {
	out   io.Writer
	msg   string
	clock clockwork.Clock

	stop     chan string
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewProgressPrinter creates a ProgressPrinter. It doesn't print anything
// until Run is called.
func NewProgressPrinter(out io.Writer, msg string) *ProgressPrinter {
	return &ProgressPrinter{
		out:     out,
		msg:     msg,
		clock:   clockwork.NewRealClock(),
		stop:    make(chan string),
		stopped: make(chan struct{}),
	}
}

// Run prints the progress until StopWithPrint is called.
func (pp *ProgressPrinter) Run() {
	defer close(pp.stopped)

	fmt.Fprint(pp.out, pp.msg)
	ticker := pp.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			fmt.Fprint(pp.out, ".")
		case msg := <-pp.stop:
			fmt.Fprint(pp.out, msg)
			return
		}
	}
}

// StopWithPrint stops the printer, and prints `msg`. It blocks until Run
// returns.
func (pp *ProgressPrinter) StopWithPrint(msg string) {
	pp.stopOnce.Do(func() {
		pp.stop <- msg
		<-pp.stopped
	})
}
