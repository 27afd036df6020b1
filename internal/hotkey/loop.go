package hotkey

import (
	"sync/atomic"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"turnkeyd/internal/logging"
)

// pollTimeout bounds each loop iteration. Setting the stop flag
// guarantees loop exit within one timeout window even when no events
// arrive.
const pollTimeout = 100 * time.Millisecond

// eventLoop bridges the connection's blocking event surface into the
// channel consumed by the async side.
//
// xgb owns the display socket, so blocking reads happen in the
// connection's dedicated reader goroutine; the loop waits at most
// pollTimeout per iteration, re-checks the shared stop flag, and on
// wake drains every queued event in arrival order. The single loop
// preserves one total delivery order across all registered bindings.
// The loop exits on the stop flag, on consumer teardown, or on an
// unrecoverable connection error.
type eventLoop struct {
	conn     *Conn
	bindings []*Binding
	stop     *atomic.Bool
	out      chan<- Event
	done     chan struct{}
	logger   *logging.Logger
}

func startEventLoop(conn *Conn, bindings []*Binding, stop *atomic.Bool, out chan<- Event, logger *logging.Logger) *eventLoop {
	l := &eventLoop{
		conn:     conn,
		bindings: bindings,
		stop:     stop,
		out:      out,
		done:     make(chan struct{}),
		logger:   logger,
	}
	go l.run()
	return l
}

// wait blocks until the loop goroutine has exited.
func (l *eventLoop) wait() {
	<-l.done
}

func (l *eventLoop) run() {
	// The loop owns the outbound channel: closing it here covers both
	// orderly shutdown and connection loss, and consumers detect either
	// through the same closed-channel signal.
	defer close(l.done)
	defer close(l.out)

	timer := time.NewTimer(pollTimeout)
	defer timer.Stop()

	for {
		if l.stop.Load() {
			return
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(pollTimeout)

		select {
		case ev, ok := <-l.conn.raw:
			if !ok {
				l.logger.Error("X11 connection lost, stopping hotkey loop")
				return
			}
			if !l.forward(ev) {
				return
			}
			// Drain everything already queued, preserving arrival
			// order: the reader goroutine is the only producer.
		drain:
			for {
				select {
				case queued, open := <-l.conn.raw:
					if !open {
						l.logger.Error("X11 connection lost, stopping hotkey loop")
						return
					}
					if !l.forward(queued) {
						return
					}
				default:
					break drain
				}
			}
		case <-timer.C:
			// Timeout: loop around and re-check the stop flag.
		}
	}
}

// forward classifies one raw event and delivers it. Returns false when
// the loop should exit because the consumer is shutting down.
func (l *eventLoop) forward(ev xgb.Event) bool {
	action, ok := classify(ev, l.bindings, lockMask|l.conn.numLockMask)
	if !ok {
		return true
	}
	select {
	case l.out <- action:
		return true
	default:
		if l.stop.Load() {
			return false
		}
		// Consumer is alive but far behind; dropping beats blocking
		// the poll loop on the display socket.
		l.logger.Warn("hotkey event dropped, consumer not keeping up", "event", action.String())
		return true
	}
}

// classify maps a raw key event to whichever registered binding it
// matches, with the lock-modifier bits masked out of the reported
// state. Non-key events and unmatched chords are discarded.
func classify(ev xgb.Event, bindings []*Binding, ignoreMask uint16) (Event, bool) {
	kp, isKey := ev.(xproto.KeyPressEvent)
	if !isKey {
		return 0, false
	}
	state := kp.State &^ ignoreMask
	for _, b := range bindings {
		if kp.Detail == b.Keycode && state == b.Mods {
			return b.Event, true
		}
	}
	return 0, false
}
