// Package progress provides a terminal progress indicator for the blocking
// build phases: snapshot loading, tokenization, and index construction.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// frames and tick rate of the indicator animation
var frames = []string{"◜", "◠", "◝", "◞", "◡", "◟"}

const tickInterval = 100 * time.Millisecond

// Indicator animates a phase message on a writer until Done is called.
// The message may be updated between phases while the animation runs.
type Indicator struct {
	writer io.Writer
	msg    atomic.Value // string

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates an Indicator that writes to w with an initial phase message.
func New(w io.Writer, message string) *Indicator {
	ind := &Indicator{writer: w}
	ind.msg.Store(message)
	return ind
}

// Start begins the animation. Starting an already-running indicator is a
// no-op.
func (ind *Indicator) Start() {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.running {
		return
	}
	ind.running = true
	ind.stop = make(chan struct{})

	ind.wg.Add(1)
	go ind.run(ind.stop)
}

// Update replaces the phase message shown on the next animation tick.
func (ind *Indicator) Update(message string) {
	ind.msg.Store(message)
}

// Done stops the animation and clears the indicator line.
func (ind *Indicator) Done() {
	ind.mu.Lock()
	if !ind.running {
		ind.mu.Unlock()
		return
	}
	ind.running = false
	close(ind.stop)
	ind.mu.Unlock()

	ind.wg.Wait()

	// clear the line with control sequences only when writing to a
	// terminal; redirected output gets a bare carriage return
	if f, ok := ind.writer.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(ind.writer, "\r\033[2K")
	} else {
		fmt.Fprint(ind.writer, "\r")
	}
}

// run is the animation loop; it exits when stop is closed.
func (ind *Indicator) run(stop <-chan struct{}) {
	defer ind.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			message, _ := ind.msg.Load().(string)
			fmt.Fprintf(ind.writer, "\r%s %s", frames[frame%len(frames)], message)
			frame++
		}
	}
}
