package fastview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// The rate at which ele-updates will be sent to the client, so as not to overburden.
	pubResolution  = time.Millisecond * 100
	pingResolution = time.Millisecond * 200
	// The number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// Client publishes updates to a web page via websocket, and passes the page's
// messages back (clicks, for example). Updates must be idempotent: when they
// arrive faster than the publication rate only the latest is sent, so each update
// must fully specify the state it describes.
type Client[T any, In any] struct {
	updates  <-chan T
	messages chan In
	ws       *websock
	rootCtx  context.Context
}

// NewClient upgrades the request to a websocket and returns a client publishing updates on it.
func NewClient[T any, In any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T, In], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the client.
		return nil, err
	}
	ws.SetReadLimit(maxMessageSize)

	return &Client[T, In]{
		updates:  updates,
		messages: make(chan In),
		ws:       NewWebSocket(ws),
		rootCtx:  r.Context(),
	}, nil
}

// Messages returns the messages received from the page. It is closed when Sync returns.
func (cli *Client[T, In]) Messages() <-chan In {
	return cli.messages
}

var (
	// ErrClientClosed is returned internally when the page closes the websocket.
	ErrClientClosed = errors.New("client closed the connection")
	// errUpdatesDone is returned internally when the updates chan is closed.
	errUpdatesDone = errors.New("no more updates")
)

// Sync runs the read, ping-pong and publish routines until the client disconnects, the
// updates chan is closed, or one of them fails. It returns nil in the first two cases.
// The websocket is closed when Sync returns.
// Taking too long here could block senders on the updates chan; be mindful of upstream effects.
func (cli *Client[T, In]) Sync() error {
	defer close(cli.messages)
	group, groupCtx := errgroup.WithContext(cli.rootCtx)

	// The pong handler runs on the reading goroutine, so it is set before reads start.
	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	// Reads block regardless of the context, so closing the socket is what ends them.
	group.Go(func() error {
		<-groupCtx.Done()
		cli.ws.Close()
		return nil
	})
	group.Go(func() error {
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		return cli.pingPong(groupCtx, pong)
	})
	group.Go(func() error {
		return cli.publish(groupCtx)
	})

	err := group.Wait()
	if errors.Is(err, ErrClientClosed) || errors.Is(err, errUpdatesDone) {
		return nil
	}
	return err
}

// Close sends a close frame and tears down the websocket. It is safe to call more than once.
func (cli *Client[T, In]) Close() {
	cli.ws.Close()
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// Runs the ping-pong for the client liveness check.
// NOTE: This function requires that readMessages is running to ensure the pong handler is called.
func (cli *Client[T, In]) pingPong(ctx context.Context, pong <-chan struct{}) error {
	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}

			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client[T, In]) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				err = fmt.Errorf("ping failed: %w", err)
			}
			return
		})
}

// readMessages decodes the page's JSON messages onto the messages chan.
// Errors returned by websocket Read methods are permanent, hence any error
// must trigger full teardown. Payloads that fail to decode are dropped.
func (cli *Client[T, In]) readMessages(ctx context.Context) error {
	for {
		var payload []byte
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) error {
				_, data, readErr := ws.ReadMessage()
				payload = data
				return readErr
			})
		if err != nil {
			if isError(err) {
				return fmt.Errorf("read failed: %w", err)
			}
			return ErrClientClosed
		}
		if ctx.Err() != nil {
			return nil
		}

		var msg In
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		select {
		case cli.messages <- msg:
		case <-ctx.Done():
			return nil
		}
	}
}

// publish writes updates to the page. Updates arriving within pubResolution of the last
// write are held back, the newest replacing any held one, and flushed on the next tick.
func (cli *Client[T, In]) publish(ctx context.Context) error {
	var (
		pending    T
		hasPending bool
		lastSync   time.Time
	)

	write := func(updates T) error {
		lastSync = time.Now()
		return cli.ws.Write(
			ctx,
			func(ws *websocket.Conn) (writeErr error) {
				if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
					return fmt.Errorf("failed to set deadline: %w", writeErr)
				}
				if writeErr = ws.WriteJSON(updates); writeErr != nil {
					writeErr = fmt.Errorf("publish failed: %w", writeErr)
				}
				return
			})
	}

	flusher := channerics.NewTicker(ctx.Done(), pubResolution)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-flusher:
			if !hasPending {
				break
			}
			hasPending = false
			if err := write(pending); err != nil {
				return err
			}
		case updates, ok := <-cli.updates:
			// Graceful input channel closure
			if !ok {
				if hasPending {
					if err := write(pending); err != nil {
						return err
					}
				}
				return errUpdatesDone
			}
			if time.Since(lastSync) < pubResolution {
				pending, hasPending = updates, true
				break
			}

			hasPending = false
			if err := write(updates); err != nil {
				return err
			}
		}
	}
}

// isError reports whether err is an unexpected websocket error, as opposed to a normal closure.
func isError(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline    = time.Second
	closeGracePeriod = 500 * time.Millisecond
)

// websock serializes reads and writes to the websocket, whose requirements
// are that there may be only one concurrent reader and writer at a time.
// Reads block until a message arrives, so there is no read deadline; there is only ever one reader.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem   chan struct{}
	writeSem  chan struct{}
	ws        *websocket.Conn
	closeOnce sync.Once
}

func NewWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Returns the underlying websocket.
// This should only be used non-concurrently for setup, e.g. adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close frame, waits briefly for the peer and closes the connection, which
// also unblocks a pending reader.
func (sock *websock) Close() {
	sock.closeOnce.Do(func() {
		sock.writeSem <- struct{}{}
		_ = sock.ws.SetWriteDeadline(time.Now().Add(writeWait))
		err := sock.ws.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		<-sock.writeSem

		// Give the peer a moment to answer, unless it is already gone.
		if err == nil {
			time.Sleep(closeGracePeriod)
		}
		sock.ws.Close()
	})
}

// Read serializes read operations on the internal web socket.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
