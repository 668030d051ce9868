// Package voice connects interview sessions to the ElevenLabs Conversational AI websocket.
package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/rbright/parley/internal/session"
	"github.com/rbright/parley/internal/version"
)

const (
	DefaultAPIBaseURL   = "https://api.elevenlabs.io"
	DefaultSocketURL    = "wss://api.elevenlabs.io"
	conversationPath    = "/v1/convai/conversation"
	signedURLPath       = "/v1/convai/conversation/get_signed_url"
	defaultDialTimeout  = 10 * time.Second
	defaultCloseGrace   = 2 * time.Second
	eventBufferCapacity = 32
)

// ErrSessionActive is returned when StartSession is called twice without EndSession.
var ErrSessionActive = errors.New("voice session already active")

// AudioSource is a stream of PCM chunks for the uplink. audio.Capture satisfies it.
type AudioSource interface {
	Chunks() <-chan []byte
	Stop() error
}

// Options configures the ElevenLabs provider.
type Options struct {
	APIKey     string
	APIBaseURL string
	SocketURL  string

	DialTimeout time.Duration
	CloseGrace  time.Duration

	// OpenAudio starts the microphone uplink once the socket is live. Nil disables the uplink.
	OpenAudio func(context.Context) (AudioSource, error)

	// DebugSink receives every raw server frame as one JSON line.
	DebugSink io.Writer
}

// ElevenLabs implements session.Provider over one websocket per session.
type ElevenLabs struct {
	opts   Options
	logger *slog.Logger
	http   *resty.Client
	dialer *websocket.Dialer

	mu     sync.Mutex
	active *conversation
}

// conversation is one live socket.
type conversation struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	closing bool
	audio   AudioSource
}

// NewElevenLabs constructs the provider.
func NewElevenLabs(opts Options, logger *slog.Logger) *ElevenLabs {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if strings.TrimSpace(opts.APIBaseURL) == "" {
		opts.APIBaseURL = DefaultAPIBaseURL
	}
	if strings.TrimSpace(opts.SocketURL) == "" {
		opts.SocketURL = DefaultSocketURL
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.CloseGrace <= 0 {
		opts.CloseGrace = defaultCloseGrace
	}

	return &ElevenLabs{
		opts:   opts,
		logger: logger.With("component", "voice"),
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.APIBaseURL, "/")).
			SetHeader("User-Agent", version.UserAgent()).
			SetTimeout(opts.DialTimeout),
		dialer: &websocket.Dialer{HandshakeTimeout: opts.DialTimeout},
	}
}

// ConversationURL is the public-agent socket address for agentID.
func ConversationURL(socketBase, agentID string) string {
	return strings.TrimRight(socketBase, "/") + conversationPath + "?agent_id=" + url.QueryEscape(agentID)
}

// StartSession dials the agent and returns the event stream. The channel closes after the
// final Disconnect or Error event.
func (p *ElevenLabs) StartSession(ctx context.Context, agentID string) (<-chan session.Event, error) {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return nil, errors.New("agent id is empty")
	}

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return nil, ErrSessionActive
	}
	p.mu.Unlock()

	address, err := p.resolveURL(ctx, agentID)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.opts.DialTimeout)
	defer cancel()
	conn, resp, err := p.dialer.DialContext(dialCtx, address, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial conversation socket: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial conversation socket: %w", err)
	}

	conv := &conversation{conn: conn}
	p.mu.Lock()
	p.active = conv
	p.mu.Unlock()

	events := make(chan session.Event, eventBufferCapacity)
	go p.readLoop(ctx, conv, events)
	return events, nil
}

// resolveURL fetches a signed socket URL when an API key is configured.
func (p *ElevenLabs) resolveURL(ctx context.Context, agentID string) (string, error) {
	if strings.TrimSpace(p.opts.APIKey) == "" {
		return ConversationURL(p.opts.SocketURL, agentID), nil
	}

	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("xi-api-key", p.opts.APIKey).
		SetQueryParam("agent_id", agentID).
		Get(signedURLPath)
	if err != nil {
		return "", fmt.Errorf("request signed url: %w", err)
	}
	if resp.IsError() {
		detail := gjson.GetBytes(resp.Body(), "detail.message").String()
		if detail == "" {
			detail = strings.TrimSpace(resp.String())
		}
		return "", fmt.Errorf("request signed url: %s: %s", resp.Status(), detail)
	}

	signed := gjson.GetBytes(resp.Body(), "signed_url").String()
	if signed == "" {
		return "", errors.New("request signed url: response has no signed_url")
	}
	return signed, nil
}

// readLoop decodes server frames until the socket closes.
func (p *ElevenLabs) readLoop(ctx context.Context, conv *conversation, events chan<- session.Event) {
	defer close(events)
	defer p.release(conv)

	emit := func(ev session.Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	connected := false
	for {
		_, raw, err := conv.conn.ReadMessage()
		if err != nil {
			emit(p.terminalEvent(conv, err))
			return
		}
		if sink := p.opts.DebugSink; sink != nil && json.Valid(raw) {
			_, _ = sink.Write(append(append([]byte{}, raw...), '\n'))
		}

		msg := decodeMessage(raw)
		if msg.reply != nil {
			if err := conv.writeJSON(msg.reply); err != nil {
				p.logger.Warn("pong failed", "error", err.Error())
			}
		}
		for _, ev := range msg.events {
			if !emit(ev) {
				return
			}
		}
		if msg.kind == msgInitiation && !connected {
			connected = true
			p.startUplink(ctx, conv)
		}
	}
}

// terminalEvent classifies a read error. Closes we asked for, or normal server closes, are
// disconnects; anything else is a provider failure.
func (p *ElevenLabs) terminalEvent(conv *conversation, err error) session.Event {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) &&
		(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
		reason := closeErr.Text
		if reason == "" {
			reason = "closed"
		}
		return session.DisconnectEvent{Reason: reason}
	}
	if conv.isClosing() {
		return session.DisconnectEvent{Reason: "ended by client"}
	}
	return session.ErrorEvent{Err: fmt.Errorf("read conversation socket: %w", err)}
}

func (p *ElevenLabs) startUplink(ctx context.Context, conv *conversation) {
	if p.opts.OpenAudio == nil {
		return
	}
	source, err := p.opts.OpenAudio(ctx)
	if err != nil {
		p.logger.Error("microphone uplink unavailable", "error", err.Error())
		return
	}

	conv.mu.Lock()
	if conv.closing {
		conv.mu.Unlock()
		_ = source.Stop()
		return
	}
	conv.audio = source
	conv.mu.Unlock()

	go p.sendLoop(conv, source)
}

// sendLoop forwards captured PCM as base64 user_audio_chunk frames.
func (p *ElevenLabs) sendLoop(conv *conversation, source AudioSource) {
	var sent int
	for chunk := range source.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		frame := audioChunk{UserAudioChunk: base64.StdEncoding.EncodeToString(chunk)}
		if err := conv.writeJSON(frame); err != nil {
			if !conv.isClosing() {
				p.logger.Warn("audio uplink stopped", "error", err.Error(), "chunks", sent)
			}
			_ = source.Stop()
			return
		}
		sent++
	}
	p.logger.Debug("audio uplink drained", "chunks", sent)
}

// EndSession sends a normal close frame. The socket is force-closed after the grace period
// if the server never answers.
func (p *ElevenLabs) EndSession(ctx context.Context) error {
	p.mu.Lock()
	conv := p.active
	p.mu.Unlock()
	if conv == nil {
		return nil
	}

	if !conv.markClosing() {
		return nil
	}
	conv.stopAudio()

	deadline := time.Now().Add(p.opts.CloseGrace)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	conv.writeMu.Lock()
	err := conv.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview ended"),
		deadline,
	)
	conv.writeMu.Unlock()
	if err != nil {
		_ = conv.conn.Close()
		return fmt.Errorf("send close frame: %w", err)
	}

	time.AfterFunc(p.opts.CloseGrace, func() { _ = conv.conn.Close() })
	return nil
}

// release drops the conversation once its read loop exits.
func (p *ElevenLabs) release(conv *conversation) {
	conv.markClosing()
	conv.stopAudio()
	_ = conv.conn.Close()

	p.mu.Lock()
	if p.active == conv {
		p.active = nil
	}
	p.mu.Unlock()
}

func (c *conversation) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// markClosing reports whether this call flipped the flag.
func (c *conversation) markClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return false
	}
	c.closing = true
	return true
}

func (c *conversation) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *conversation) stopAudio() {
	c.mu.Lock()
	source := c.audio
	c.audio = nil
	c.mu.Unlock()
	if source != nil {
		_ = source.Stop()
	}
}
