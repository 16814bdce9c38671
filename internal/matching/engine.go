// Package matching hosts the order book behind a TCP listener: it accepts
// connections, spawns one session per client, runs the periodic matcher,
// and best-effort broadcasts every trade to every live session.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ARtorias742/DCTP/internal/models"
	"github.com/ARtorias742/DCTP/internal/session"
	"github.com/ARtorias742/DCTP/pkg/telemetry"
)

// Engine owns the shared book, the listener, and every live session. All of
// its mutable bookkeeping (the listener handle, the session registry, the
// next client id) is guarded by mu; the book has its own internal lock and
// is safe to call concurrently from sessions and the matcher.
type Engine struct {
	book          *models.OrderBook
	matchInterval time.Duration
	publisher     *telemetry.Publisher
	log           *slog.Logger

	mu           sync.Mutex
	listener     net.Listener
	sessions     map[int64]*session.Session
	nextClientID int64

	shutdownOnce sync.Once
	shutdown     chan struct{}
	wg           sync.WaitGroup
}

// NewEngine builds an engine around book. publisher may be nil, in which
// case trade and status telemetry is simply not mirrored to Redis.
func NewEngine(book *models.OrderBook, matchInterval time.Duration, publisher *telemetry.Publisher, log *slog.Logger) *Engine {
	return &Engine{
		book:          book,
		matchInterval: matchInterval,
		publisher:     publisher,
		log:           log,
		sessions:      make(map[int64]*session.Session),
		shutdown:      make(chan struct{}),
	}
}

// Book returns the underlying order book, for in-process callers (such as
// tests) that only need read-only operations like Status and Snapshot.
func (e *Engine) Book() *models.OrderBook {
	return e.book
}

// ListenAndServe opens addr, starts the matcher, and runs the accept loop.
// It blocks until the listener is closed by Shutdown, at which point it
// returns nil.
func (e *Engine) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	e.mu.Lock()
	e.listener = ln
	e.mu.Unlock()

	e.wg.Add(1)
	go e.runMatcher()

	e.log.Info("engine accepting connections", "addr", addr)
	e.acceptLoop(ln)
	return nil
}

func (e *Engine) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-e.shutdown:
				return
			default:
				e.log.Error("accept failed", "err", err)
				return
			}
		}

		e.mu.Lock()
		e.nextClientID++
		id := e.nextClientID
		sess := session.New(conn, e.book, id, e.log)
		e.sessions[id] = sess
		e.mu.Unlock()

		e.log.Info("client connected", "client_id", id, "remote", conn.RemoteAddr())

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			sess.Run()
			_ = sess.Close()
			e.removeSession(id)
		}()
	}
}

func (e *Engine) removeSession(id int64) {
	e.mu.Lock()
	delete(e.sessions, id)
	e.mu.Unlock()
	e.log.Info("client disconnected", "client_id", id)
}

// runMatcher is the periodic matching task: on every tick it runs Match
// under the book's lock, then, outside any lock, broadcasts each trade to
// every live session and mirrors it to telemetry, and finally publishes the
// book's status line to telemetry whether or not any trade was produced.
func (e *Engine) runMatcher() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.matchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.shutdown:
			return
		case <-ticker.C:
			trades := e.book.Match()
			for _, t := range trades {
				line := fmt.Sprintf("TRADE %d %d %d %s", t.BuyID, t.SellID, t.Quantity, t.Price.String())
				e.broadcast(line)
				e.publishTrade(t)
			}
			e.publishStatus()
		}
	}
}

func (e *Engine) broadcast(line string) {
	e.mu.Lock()
	targets := make([]*session.Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		targets = append(targets, s)
	}
	e.mu.Unlock()

	for _, s := range targets {
		if err := s.Broadcast(line); err != nil {
			e.log.Debug("broadcast failed", "client_id", s.ClientID(), "err", err)
		}
	}
}

func (e *Engine) publishTrade(t models.TradeRecord) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishTrade(context.Background(), t); err != nil {
		e.log.Debug("telemetry publish failed", "err", err)
	}
}

func (e *Engine) publishStatus() {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishStatus(context.Background(), e.book.Status()); err != nil {
		e.log.Debug("telemetry publish failed", "err", err)
	}
}

// Shutdown stops accepting, signals the matcher to exit, closes every live
// session's socket so its blocked Read returns, and joins every task before
// returning.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() { close(e.shutdown) })

	e.mu.Lock()
	if e.listener != nil {
		_ = e.listener.Close()
	}
	sessions := make([]*session.Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}

	e.wg.Wait()
}
