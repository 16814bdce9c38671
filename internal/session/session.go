// Package session implements the line-based command protocol spoken over
// one client connection: parse one command, dispatch it to the shared
// order book, reply on the same connection.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/ARtorias742/DCTP/internal/models"
	"github.com/shopspring/decimal"
)

// recvBufSize is the server's fixed receive buffer. One Read call is parsed
// as exactly one command; there is no newline framing and no buffering
// across reads. This mirrors the original recv(client_socket, buffer,
// sizeof(buffer), 0) behavior byte for byte, including its limitation that
// a command split across two reads is never reassembled.
const recvBufSize = 1024

// Session owns one client connection. Its command replies and the engine
// host's asynchronous TRADE broadcasts both write to conn, so every write
// goes through writeMu.
type Session struct {
	conn     net.Conn
	book     *models.OrderBook
	clientID int64
	log      *slog.Logger

	writeMu sync.Mutex
}

// New binds a freshly accepted connection to the shared book under the
// given client id. The caller is responsible for running it (typically via
// go s.Run()) and for removing it from any broadcast registry on return.
func New(conn net.Conn, book *models.OrderBook, clientID int64, log *slog.Logger) *Session {
	return &Session{
		conn:     conn,
		book:     book,
		clientID: clientID,
		log:      log.With("client_id", clientID),
	}
}

// Run reads commands until the connection closes or a read fails. It
// returns only when the session is finished; the caller should then
// unregister it from broadcast.
func (s *Session) Run() {
	buf := make([]byte, recvBufSize)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Debug("session read ended", "err", err)
			}
			return
		}
		if n == 0 {
			continue
		}
		reply := s.dispatch(string(buf[:n]))
		if werr := s.writeLine(reply); werr != nil {
			s.log.Debug("session write failed", "err", werr)
			return
		}
	}
}

// Close tears down the underlying connection, unblocking a pending Read in
// Run. Used by the engine host during shutdown and per-session cleanup.
func (s *Session) Close() error {
	return s.conn.Close()
}

// ClientID returns the id assigned to this session at accept time.
func (s *Session) ClientID() int64 {
	return s.clientID
}

// Broadcast writes an unsolicited line (a TRADE notification) to the
// client. Best-effort: a write failure here is reported to the caller but
// does not tear the session down itself; the next failed Read will.
func (s *Session) Broadcast(line string) error {
	return s.writeLine(line)
}

func (s *Session) writeLine(line string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write([]byte(line + "\n"))
	return err
}

// dispatch parses a single whitespace-delimited command and returns the
// reply text, per the command table: BUY/SELL/CANCEL/STATUS or an unknown
// command ERROR.
func (s *Session) dispatch(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "ERROR Unknown command: "
	}

	command := fields[0]
	args := fields[1:]

	switch command {
	case "BUY":
		return s.handleAdd(models.Buy, args)
	case "SELL":
		return s.handleAdd(models.Sell, args)
	case "CANCEL":
		return s.handleCancel(args)
	case "STATUS":
		return "STATUS " + s.book.Status()
	default:
		return "ERROR Unknown command: " + command
	}
}

func (s *Session) handleAdd(side models.Side, args []string) string {
	if len(args) < 2 {
		return "ERROR missing quantity or price"
	}
	quantity, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Sprintf("ERROR invalid quantity: %v", err)
	}
	price, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Sprintf("ERROR invalid price: %v", err)
	}

	id, err := s.book.Add(side, quantity, price, s.clientID)
	if err != nil {
		return "ERROR " + err.Error()
	}
	return fmt.Sprintf("ORDER_ACCEPTED %d", id)
}

func (s *Session) handleCancel(args []string) string {
	if len(args) < 1 {
		return "ERROR missing order id"
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Sprintf("ERROR invalid order id: %v", err)
	}
	if err := s.book.Cancel(id); err != nil {
		return "ERROR " + err.Error()
	}
	return fmt.Sprintf("CANCEL_ACCEPTED %d", id)
}
