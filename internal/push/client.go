// Package push maintains the long-lived intervention channel: one
// text-event-stream connection per user, delivering out-of-band
// interventions independent of the batch cycle.
package push

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"learnpulse/internal/intervention"
	"learnpulse/internal/models"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// DefaultReconnectDelay is the fixed wait before re-dialing after an
// error or stream close.
const DefaultReconnectDelay = 5 * time.Second

// Client consumes the push channel and forwards interventions to the
// shared mailbox. At most one connection is live; starting a new one
// first closes any existing one.
type Client struct {
	log     *zap.Logger
	url     string
	http    *http.Client
	mailbox *intervention.Mailbox
	delay   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	connected atomic.Bool
}

// New returns a stopped client for one user's event stream URL.
func New(log *zap.Logger, url string, delay time.Duration, mailbox *intervention.Mailbox) *Client {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Client{
		log:     log,
		url:     url,
		http:    &http.Client{},
		mailbox: mailbox,
		delay:   delay,
	}
}

// Start opens the connection loop, closing any prior one first.
func (c *Client) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)
		c.run(ctx)
	}()
}

// Stop closes the connection and halts reconnection.
func (c *Client) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Client) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	c.connected.Store(false)
}

// Connected reports whether the channel is currently open.
func (c *Client) Connected() bool { return c.connected.Load() }

func (c *Client) run(ctx context.Context) {
	bo := backoff.WithContext(backoff.NewConstantBackOff(c.delay), ctx)
	_ = backoff.Retry(func() error {
		err := c.consume(ctx)
		c.connected.Store(false)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("event stream closed")
		}
		c.log.Debug("push channel disconnected", zap.Error(err))
		return err
	}, bo)
}

// consume opens one connection and reads events until it breaks.
func (c *Client) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("event stream status " + resp.Status)
	}

	c.connected.Store(true)
	c.log.Debug("push channel connected", zap.String("url", c.url))

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				c.dispatch(data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		default:
			// Comment lines (keepalives) and unknown fields are ignored.
		}
	}
	return scanner.Err()
}

// dispatch handles one event payload. A "connected" type only flips the
// flag; "intervention" feeds the mailbox; anything unparseable or unknown
// is silently dropped.
func (c *Client) dispatch(payload string) {
	var env models.PushEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return
	}
	switch env.Type {
	case "connected":
		c.connected.Store(true)
	case "intervention":
		if env.Data != nil && env.Data.Intervention != nil {
			c.mailbox.Post(*env.Data.Intervention)
		}
	}
}
