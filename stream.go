package aiconn

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aiconn/aiconn/llm"
)

type StreamState int

const (
	StreamIdle StreamState = iota
	StreamStarting
	StreamActive
	StreamStopping
	StreamError
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamStarting:
		return "starting"
	case StreamActive:
		return "active"
	case StreamStopping:
		return "stopping"
	case StreamError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamChunk is what the callback receives: either one piece of
// content, the completion marker, or a terminal error description.
type StreamChunk struct {
	Content    string
	IsComplete bool
	Index      int
	TotalBytes int
	Elapsed    time.Duration
	Err        string
}

// StreamCallback handles one chunk. Returning false stops the stream;
// that counts as a successful outcome, not an error.
type StreamCallback func(StreamChunk) bool

type streamMetrics struct {
	chunks     int
	totalBytes int
	start      time.Time
	elapsed    time.Duration
}

// The gate is a one-slot semaphore guarding all stream session fields.
// Holders keep it for microseconds, so a failed timed acquire means a
// genuinely wedged session rather than ordinary contention.
func (c *Client) acquire(d time.Duration) bool {
	select {
	case c.gate <- struct{}{}:
		return true
	case <-time.After(d):
		return false
	}
}

func (c *Client) release() { <-c.gate }

func (c *Client) withGate(d time.Duration, fn func()) bool {
	if !c.acquire(d) {
		return false
	}
	fn()
	c.release()
	return true
}

// StreamChat opens a streaming completion for one user message and
// feeds chunks to cb as they arrive. It blocks until the stream ends:
// vendor completion, StopStreaming, a false callback return, context
// cancellation, or a terminal error.
//
// Only an idle session can start; a session left in the error state
// needs StreamReset first.
func (c *Client) StreamChat(ctx context.Context, message string, cb StreamCallback) error {
	if cb == nil {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "stream callback is required"})
	}
	if message == "" {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "message is empty"})
	}

	if !c.acquire(lockTimeout) {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindTransport, Message: "failed to acquire stream lock (timeout)"})
	}
	switch c.streamState {
	case StreamIdle:
	case StreamError:
		c.release()
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "stream is in an error state, call StreamReset first"})
	default:
		c.release()
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "streaming operation already in progress"})
	}
	c.streamState = StreamStarting
	c.stopRequested = false
	c.streamMetrics = streamMetrics{start: time.Now()}
	c.rawStream = nil
	c.statusStream = 0
	opts := c.streamOpts.Clone()
	c.resetCall()
	c.release()

	body, err := c.adapter.BuildStream(opts, c.model, message)
	if err != nil {
		c.finishStream(StreamError)
		return c.fail(err)
	}

	resp, err := c.tr.PostStream(ctx, c.streamURL(), c.adapter.Headers(c.apiKey), body)
	if err != nil {
		werr := c.wrapError(err)
		if e, ok := llm.AsError(werr); ok {
			c.withGate(lockTimeout, func() {
				c.statusStream = e.HTTPStatus
				c.rawStream = e.Raw
			})
		}
		c.finishStream(StreamError)
		return c.fail(werr)
	}
	defer resp.Body.Close()

	c.withGate(lockTimeout, func() {
		c.statusStream = resp.StatusCode
		c.streamState = StreamActive
	})
	c.logger.Debug("stream started", "platform", c.platform, "model", c.model)

	return c.readStream(ctx, resp.Body, cb)
}

type sseEvent struct {
	data []byte
	err  error
}

func (c *Client) readStream(ctx context.Context, body io.Reader, cb StreamCallback) error {
	events := make(chan sseEvent, 16)
	readerDone := make(chan struct{})
	defer close(readerDone)

	go func() {
		defer close(events)
		dec := newSSEDecoder(body)
		for {
			data, err := dec.Next()
			var ev sseEvent
			if err != nil {
				if err == io.EOF {
					return
				}
				ev = sseEvent{err: err}
			} else {
				ev = sseEvent{data: data}
			}
			select {
			case events <- ev:
				if ev.err != nil {
					return
				}
			case <-readerDone:
				return
			}
		}
	}()

	var (
		index      int
		totalBytes int
		start      = time.Now()
		lastData   = time.Now()
	)

	failChunk := func(err error) error {
		cb(StreamChunk{IsComplete: true, Index: index, TotalBytes: totalBytes, Elapsed: time.Since(start), Err: err.Error()})
		c.finishStream(StreamError)
		return c.fail(err)
	}
	complete := func() {
		cb(StreamChunk{IsComplete: true, Index: index, TotalBytes: totalBytes, Elapsed: time.Since(start)})
		c.finishStream(StreamIdle)
	}

	// Stop requests are polled between events so cancellation stays
	// cooperative even while the vendor is silent.
	poll := time.NewTicker(10 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			c.finishStream(StreamIdle)
			return c.fail(c.wrapError(ctx.Err()))

		case <-poll.C:
			if c.stopRequestedNow() {
				c.finishStream(StreamIdle)
				c.logger.Debug("stream stopped by caller", "platform", c.platform)
				return nil
			}
			if time.Since(lastData) > c.chunkTimeout {
				msg := fmt.Sprintf("stream timeout: no data received within %dms", c.chunkTimeout.Milliseconds())
				return failChunk(&llm.Error{Platform: c.platform, Kind: llm.ErrKindTransport, Message: msg})
			}

		case ev, ok := <-events:
			if !ok {
				// Connection closed without a terminal event; the
				// content received so far still counts as complete.
				complete()
				return nil
			}
			if ev.err != nil {
				return failChunk(c.wrapError(ev.err))
			}
			lastData = time.Now()

			delta, err := c.adapter.ParseStreamChunk(ev.data)
			if err != nil {
				return failChunk(err)
			}
			if delta.FinishReason != "" || delta.TotalTokens > 0 {
				c.withGate(getterTimeout, func() {
					if delta.FinishReason != "" {
						c.finishReason = delta.FinishReason
					}
					if delta.TotalTokens > 0 {
						c.totalTokens = delta.TotalTokens
					}
				})
			}
			if delta.Content != "" {
				index++
				totalBytes += len(delta.Content)
				c.withGate(getterTimeout, func() {
					c.streamMetrics.chunks = index
					c.streamMetrics.totalBytes = totalBytes
					c.rawStream = ev.data
				})
				if !cb(StreamChunk{Content: delta.Content, Index: index, TotalBytes: totalBytes, Elapsed: time.Since(start)}) {
					c.finishStream(StreamIdle)
					c.logger.Debug("stream stopped by callback", "platform", c.platform)
					return nil
				}
			}
			if delta.Done {
				complete()
				return nil
			}
		}
	}
}

// finishStream records the terminal state. It blocks on the gate: all
// other holders are short-lived and the session must not end in limbo.
func (c *Client) finishStream(final StreamState) {
	c.gate <- struct{}{}
	c.streamState = final
	c.stopRequested = false
	if !c.streamMetrics.start.IsZero() {
		c.streamMetrics.elapsed = time.Since(c.streamMetrics.start)
	}
	c.release()
}

func (c *Client) stopRequestedNow() bool {
	var stop bool
	c.withGate(getterTimeout, func() { stop = c.stopRequested })
	return stop
}

// StopStreaming asks an active session to stop after the chunk it is
// currently handling. Stopping a session that is not streaming is a
// no-op.
func (c *Client) StopStreaming() error {
	if !c.acquire(lockTimeout) {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindTransport, Message: "failed to acquire stream lock (timeout)"})
	}
	defer c.release()
	if c.streamState == StreamStarting || c.streamState == StreamActive {
		c.stopRequested = true
		c.streamState = StreamStopping
	}
	return nil
}

// StreamState reports the session state. Getters use a short gate
// timeout and return the zero value when the session is wedged.
func (c *Client) StreamState() StreamState {
	var s StreamState
	c.withGate(getterTimeout, func() { s = c.streamState })
	return s
}

func (c *Client) IsStreaming() bool {
	s := c.StreamState()
	return s == StreamStarting || s == StreamActive
}

func (c *Client) StreamChunkCount() int {
	var n int
	c.withGate(getterTimeout, func() { n = c.streamMetrics.chunks })
	return n
}

func (c *Client) StreamTotalBytes() int {
	var n int
	c.withGate(getterTimeout, func() { n = c.streamMetrics.totalBytes })
	return n
}

// StreamElapsed reports time since the stream started while it runs,
// and the final duration once it ends.
func (c *Client) StreamElapsed() time.Duration {
	var d time.Duration
	c.withGate(getterTimeout, func() {
		switch {
		case c.streamMetrics.elapsed > 0:
			d = c.streamMetrics.elapsed
		case !c.streamMetrics.start.IsZero():
			d = time.Since(c.streamMetrics.start)
		}
	})
	return d
}

func (c *Client) StreamHTTPStatus() int {
	var n int
	c.withGate(getterTimeout, func() { n = c.statusStream })
	return n
}

// RawStreamResponse returns the most recent raw stream payload, or the
// error body when the stream failed to open.
func (c *Client) RawStreamResponse() string {
	var s string
	c.withGate(getterTimeout, func() { s = string(c.rawStream) })
	return s
}

// StreamReset returns an errored or idle session to a clean idle
// state. An active session must be stopped first.
func (c *Client) StreamReset() error {
	if !c.acquire(lockTimeout) {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindTransport, Message: "failed to acquire stream lock (timeout)"})
	}
	defer c.release()
	if c.streamState == StreamStarting || c.streamState == StreamActive || c.streamState == StreamStopping {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "stream is active, call StopStreaming first"})
	}
	c.streamState = StreamIdle
	c.stopRequested = false
	c.streamMetrics = streamMetrics{}
	c.rawStream = nil
	c.statusStream = 0
	c.streamOpts = llm.ChatOptions{}
	return nil
}

// SetStreamSystemRole sets the system prompt used by StreamChat.
func (c *Client) SetStreamSystemRole(role string) {
	c.gate <- struct{}{}
	c.streamOpts.SystemRole = role
	c.release()
}

func (c *Client) StreamSystemRole() string {
	var s string
	c.withGate(getterTimeout, func() { s = c.streamOpts.SystemRole })
	return s
}

func (c *Client) SetStreamTemperature(t float64) {
	if t < 0 {
		t = 0
	}
	if t > 2 {
		t = 2
	}
	c.gate <- struct{}{}
	c.streamOpts.Temperature = &t
	c.release()
}

func (c *Client) SetStreamMaxTokens(n int) error {
	if n < 1 {
		return c.fail(&llm.Error{Platform: c.platform, Kind: llm.ErrKindValidation, Message: "max tokens must be at least 1"})
	}
	c.gate <- struct{}{}
	c.streamOpts.MaxTokens = &n
	c.release()
	return nil
}

// SetStreamParameters registers extra vendor-specific JSON parameters
// for streaming requests.
func (c *Client) SetStreamParameters(rawJSON string) error {
	extra, err := llm.ParseParams(rawJSON)
	if err != nil {
		return c.fail(err)
	}
	c.gate <- struct{}{}
	c.streamOpts.Extra = extra
	c.release()
	return nil
}
