package engine

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/vk/lasrgo/internal/ctxlog"
	"github.com/vk/lasrgo/internal/lasrerr"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Defaults applied by NewSocketIO to zero fields of SocketIOConfig.
const (
	DefaultConnectTimeout = 15 * time.Second
	DefaultRequestTimeout = 10 * time.Minute
	DefaultConnectRetries = 3
)

// SocketIOConfig configures a SocketIO engine.
type SocketIOConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
	RequestTimeout     time.Duration
	// ConnectRetries is the number of extra connection attempts, spaced
	// by exponential backoff.
	ConnectRetries uint64
}

// SocketIO sends requests to an engine service over socket.io. A request is
// emitted as a "process" or "info" event carrying
//
//	{"request_id": "<uuid>", "config": <document>}
//
// and answered by a "result:<uuid>" event carrying the JSON answer. The
// connection is opened on first use and reopened when it drops. SocketIO is
// safe for concurrent use.
type SocketIO struct {
	cfg SocketIOConfig

	mu     sync.Mutex
	client *socket.Socket
}

var _ Engine = (*SocketIO)(nil)

// NewSocketIO returns an engine for cfg. No connection is made yet.
func NewSocketIO(cfg SocketIOConfig) *SocketIO {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	return &SocketIO{cfg: cfg}
}

// Process implements Engine.
func (e *SocketIO) Process(ctx context.Context, doc []byte) (*Response, error) {
	answer, err := e.request(ctx, "process", doc)
	if err != nil {
		return nil, err
	}
	resp, err := DecodeResponse(answer)
	if err != nil {
		return nil, lasrerr.EngineFailure("process", err)
	}
	return resp, nil
}

// Info implements Engine.
func (e *SocketIO) Info(ctx context.Context, doc []byte) (*Info, error) {
	answer, err := e.request(ctx, "info", doc)
	if err != nil {
		return nil, err
	}
	info, err := DecodeInfo(answer)
	if err != nil {
		return nil, lasrerr.EngineFailure("info", err)
	}
	return info, nil
}

// Close disconnects from the service.
func (e *SocketIO) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		e.client.Disconnect()
		e.client = nil
	}
	return nil
}

type answer struct {
	data []byte
	err  error
}

func (e *SocketIO) request(ctx context.Context, event string, doc []byte) ([]byte, error) {
	payload, err := requestPayload(doc)
	if err != nil {
		return nil, lasrerr.InvalidArgument("%s request: %v", event, err)
	}

	client, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	payload["request_id"] = id
	logger := ctxlog.FromContext(ctx).With("engine", "socketio", "event", event, "request_id", id, "sid", client.Id())

	logger.Debug("Emitting request.")
	return e.await(ctx, client.EventEmitter, event, id, func() { client.Emit(event, payload) })
}

// await registers the result listener for id on listeners, calls send and
// waits for the answer. The listener is removed when no answer arrives.
func (e *SocketIO) await(ctx context.Context, listeners types.EventEmitter, event, id string, send func()) ([]byte, error) {
	name := types.EventName(resultEvent(id))
	done := make(chan answer, 1)
	listeners.Once(name, func(data ...any) {
		b, err := answerBytes(data)
		select {
		case done <- answer{data: b, err: err}:
		default:
		}
	})
	send()

	timer := time.NewTimer(e.cfg.RequestTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		listeners.RemoveAllListeners(name)
		return nil, fmt.Errorf("%s: %w", event, ctx.Err())
	case <-timer.C:
		listeners.RemoveAllListeners(name)
		return nil, lasrerr.EngineFailure(event, fmt.Errorf("no answer after %v", e.cfg.RequestTimeout))
	case a := <-done:
		if a.err != nil {
			return nil, lasrerr.EngineFailure(event, a.err)
		}
		return a.data, nil
	}
}

func resultEvent(id string) string { return "result:" + id }

// requestPayload embeds the document as a JSON object so the service
// receives structured data rather than a string.
func requestPayload(doc []byte) (map[string]any, error) {
	var config map[string]any
	if err := json.Unmarshal(doc, &config); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	return map[string]any{"config": config}, nil
}

// answerBytes normalises the first event argument to JSON. Services may
// answer with an object or with the JSON text of one.
func answerBytes(data []any) ([]byte, error) {
	if len(data) == 0 || data[0] == nil {
		return nil, errors.New("empty answer")
	}
	switch v := data[0].(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	return json.Marshal(data[0])
}

// connect returns the live client, dialing with exponential backoff when
// there is none.
func (e *SocketIO) connect(ctx context.Context) (*socket.Socket, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil && e.client.Connected() {
		return e.client, nil
	}
	if e.client != nil {
		e.client.Disconnect()
		e.client = nil
	}

	logger := ctxlog.FromContext(ctx).With("engine", "socketio", "url", e.cfg.URL)
	var client *socket.Socket
	attempt := 0
	operation := func() error {
		attempt++
		c, err := e.dial(ctx)
		if err != nil {
			logger.Warn("Connection attempt failed.", "attempt", attempt, "error", err)
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		client = c
		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.cfg.ConnectRetries)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("connect: %w", ctx.Err())
		}
		return nil, lasrerr.EngineFailure("connect", err)
	}
	e.client = client
	return client, nil
}

func (e *SocketIO) dial(ctx context.Context) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("engine", "socketio", "url", e.cfg.URL)

	parsed, err := url.Parse(e.cfg.URL)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse engine URL: %w", err))
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, backoff.Permanent(fmt.Errorf("engine URL %q needs a scheme and a host", e.cfg.URL))
	}

	opts := socket.DefaultOptions()
	if parsed.Path != "" {
		opts.SetPath(parsed.Path)
	}
	if e.cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	manager := socket.NewManager(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host), opts)
	io := manager.Socket(e.cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Connected.", "sid", io.Id())
		select {
		case connected <- nil:
		default:
		}
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case connected <- err:
		default:
		}
	})

	io.Connect()

	timer := time.NewTimer(e.cfg.ConnectTimeout)
	defer timer.Stop()
	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", e.cfg.ConnectTimeout)
	}
}
