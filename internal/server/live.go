package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"
	"layeh.com/gopus"

	"github.com/zgraper/phonemefix/internal/history"
	"github.com/zgraper/phonemefix/internal/observe"
	"github.com/zgraper/phonemefix/internal/rules"
	"github.com/zgraper/phonemefix/internal/score"
	"github.com/zgraper/phonemefix/pkg/audio"
)

const (
	// liveSessionTimeout bounds how long a live session may stay open.
	liveSessionTimeout = 10 * time.Minute

	// opusFrameDuration is the packet duration live clients must use when
	// streaming Opus. 20 ms is the codec default and what browsers produce.
	opusFrameDuration = 20 * time.Millisecond

	// liveEventBuffer is the size of the outbound event channel. Writes block
	// once a slow client falls this far behind.
	liveEventBuffer = 16
)

// startFrame is the first text message a live client must send. It fixes the
// audio format and rule configuration for the whole session.
type startFrame struct {
	// Rules is the phonological rule configuration, same schema as the
	// "rules" field of POST /v1/pipeline. Absent means no rules.
	Rules json.RawMessage `json:"rules"`

	// SampleRate of the streamed audio in Hz.
	SampleRate int `json:"sample_rate"`

	// Channels of the streamed audio (1 or 2).
	Channels int `json:"channels"`

	// Encoding is "pcm16" (interleaved signed 16-bit little-endian) or
	// "opus" (one Opus packet per binary frame).
	Encoding string `json:"encoding"`

	// Expected optionally names the target word; enables per-flush scoring.
	Expected string `json:"expected,omitempty"`
}

// liveCommand is a client control message sent as a text frame after the
// start frame.
type liveCommand struct {
	// Type is "flush" (run the pipeline over buffered audio and clear the
	// buffer), "reset" (discard buffered audio), or "close".
	Type string `json:"type"`
}

// liveEvent is a server-to-client message. Event is one of "ready",
// "raw_ipa", "corrected_ipa", "final_text", or "error"; the remaining fields
// are populated per event type.
type liveEvent struct {
	Event            string     `json:"event"`
	IPA              string     `json:"ipa,omitempty"`
	Text             string     `json:"text,omitempty"`
	RulesApplied     *rules.Set `json:"rules_applied,omitempty"`
	EnabledRules     []string   `json:"enabled_rules,omitempty"`
	TranscriberModel string     `json:"transcriber_model_used,omitempty"`
	DecoderModel     string     `json:"decoder_model_used,omitempty"`
	Expected         string     `json:"expected,omitempty"`
	Score            *float64   `json:"score,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// handleLive upgrades the request to a WebSocket and runs a streaming
// correction session. The client sends a start frame, streams binary audio,
// and issues "flush" commands; each flush runs the full pipeline over the
// audio buffered since the last flush and pushes the stage results back as
// events.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{OriginPatterns: originHostPatterns(s.corsOrigins)}
	if len(s.corsOrigins) == 0 {
		opts.InsecureSkipVerify = true
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), liveSessionTimeout)
	defer cancel()

	s.metrics.ActiveLiveSessions.Add(ctx, 1)
	defer s.metrics.ActiveLiveSessions.Add(ctx, -1)

	sess := &liveSession{srv: s, conn: conn}
	if err := sess.run(ctx); err != nil {
		observe.Logger(ctx).Warn("live session ended with error", "error", err)
		conn.Close(websocket.StatusInternalError, "session error")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// originHostPatterns converts configured origins (scheme://host[:port]) into
// the host patterns [websocket.AcceptOptions] matches the Origin header
// against. Entries without a scheme pass through unchanged.
func originHostPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// liveSession holds the per-connection state of one streaming session.
type liveSession struct {
	srv  *Server
	conn *websocket.Conn

	cfg      rules.Set
	expected string

	sampleRate int
	channels   int
	opus       *gopus.Decoder

	buf    bytes.Buffer
	events chan liveEvent
}

// run drives the session: handshake, then concurrent read and write loops
// until the client closes or an error occurs.
func (sess *liveSession) run(ctx context.Context) error {
	if err := sess.handshake(ctx); err != nil {
		// Best effort; the client may already be gone.
		wsjson.Write(ctx, sess.conn, liveEvent{Event: "error", Error: err.Error()})
		return err
	}

	sess.events = make(chan liveEvent, liveEventBuffer)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.readLoop(ctx) })
	g.Go(func() error { return sess.writeLoop(ctx) })

	err := g.Wait()
	if errors.Is(err, errSessionDone) {
		return nil
	}
	return err
}

// errSessionDone signals a clean client-initiated shutdown through the
// errgroup.
var errSessionDone = errors.New("session done")

// handshake reads and validates the start frame.
func (sess *liveSession) handshake(ctx context.Context) error {
	typ, data, err := sess.conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("read start frame: %w", err)
	}
	if typ != websocket.MessageText {
		return errors.New("start frame must be a text message")
	}

	var start startFrame
	if err := json.Unmarshal(data, &start); err != nil {
		return fmt.Errorf("invalid start frame: %w", err)
	}

	if start.SampleRate <= 0 {
		return fmt.Errorf("invalid sample_rate %d", start.SampleRate)
	}
	if start.Channels < 1 || start.Channels > 2 {
		return fmt.Errorf("invalid channels %d (must be 1 or 2)", start.Channels)
	}

	switch start.Encoding {
	case "pcm16":
	case "opus":
		dec, err := gopus.NewDecoder(start.SampleRate, start.Channels)
		if err != nil {
			return fmt.Errorf("create opus decoder: %w", err)
		}
		sess.opus = dec
	default:
		return fmt.Errorf("unsupported encoding %q (must be pcm16 or opus)", start.Encoding)
	}

	cfg := rules.None()
	if len(start.Rules) > 0 {
		cfg, err = rules.Parse(start.Rules)
		if err != nil {
			return fmt.Errorf("invalid rule configuration: %w", err)
		}
	}

	sess.cfg = cfg
	sess.expected = start.Expected
	sess.sampleRate = start.SampleRate
	sess.channels = start.Channels

	return wsjson.Write(ctx, sess.conn, liveEvent{Event: "ready"})
}

// readLoop consumes client frames: binary frames carry audio, text frames
// carry control commands.
func (sess *liveSession) readLoop(ctx context.Context) error {
	for {
		typ, data, err := sess.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return errSessionDone
			}
			return fmt.Errorf("read frame: %w", err)
		}

		switch typ {
		case websocket.MessageBinary:
			if err := sess.appendAudio(data); err != nil {
				sess.emit(ctx, liveEvent{Event: "error", Error: err.Error()})
			}

		case websocket.MessageText:
			var cmd liveCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				sess.emit(ctx, liveEvent{Event: "error", Error: "invalid command: " + err.Error()})
				continue
			}
			switch cmd.Type {
			case "flush":
				sess.flush(ctx)
			case "reset":
				sess.buf.Reset()
			case "close":
				return errSessionDone
			default:
				sess.emit(ctx, liveEvent{Event: "error", Error: fmt.Sprintf("unknown command %q", cmd.Type)})
			}
		}
	}
}

// writeLoop serializes outbound events onto the connection.
func (sess *liveSession) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-sess.events:
			if err := wsjson.Write(ctx, sess.conn, ev); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		}
	}
}

// emit queues an event for the write loop, dropping it if the session is
// shutting down.
func (sess *liveSession) emit(ctx context.Context, ev liveEvent) {
	select {
	case sess.events <- ev:
	case <-ctx.Done():
	}
}

// appendAudio decodes one binary frame into the PCM buffer.
func (sess *liveSession) appendAudio(data []byte) error {
	if sess.opus != nil {
		frameSize := sess.sampleRate * int(opusFrameDuration.Milliseconds()) / 1000
		pcm, err := sess.opus.Decode(data, frameSize, false)
		if err != nil {
			return fmt.Errorf("decode opus packet: %w", err)
		}
		data = audio.Int16sToBytes(pcm)
	}

	if int64(sess.buf.Len()+len(data)) > sess.srv.maxUploadBytes {
		return errors.New("audio buffer limit exceeded; flush or reset first")
	}
	sess.buf.Write(data)
	return nil
}

// flush runs the correction pipeline over the buffered audio and pushes the
// stage results as separate events so the client can render them as they
// would appear in the non-streaming API.
func (sess *liveSession) flush(ctx context.Context) {
	if sess.buf.Len() == 0 {
		sess.emit(ctx, liveEvent{Event: "error", Error: "no audio buffered"})
		return
	}

	wav := audio.EncodeWAV(audio.PCM{
		Data:       bytes.Clone(sess.buf.Bytes()),
		SampleRate: sess.sampleRate,
		Channels:   sess.channels,
	})
	sess.buf.Reset()

	res, err := sess.srv.pipe.Run(ctx, wav, sess.cfg)
	if err != nil {
		sess.emit(ctx, liveEvent{Event: "error", Error: err.Error()})
		return
	}

	sess.emit(ctx, liveEvent{Event: "raw_ipa", IPA: res.RawIPA})
	sess.emit(ctx, liveEvent{
		Event:        "corrected_ipa",
		IPA:          res.CorrectedIPA,
		RulesApplied: &res.RulesApplied,
		EnabledRules: res.EnabledRules,
	})

	final := liveEvent{
		Event:            "final_text",
		Text:             res.FinalText,
		TranscriberModel: res.TranscriberModel,
		DecoderModel:     res.DecoderModel,
	}

	attempt := history.Attempt{
		RawIPA:       res.RawIPA,
		CorrectedIPA: res.CorrectedIPA,
		FinalText:    res.FinalText,
		RulesApplied: res.RulesApplied,
		EnabledRules: res.EnabledRules,
	}
	if sess.expected != "" {
		sc := score.Attempt(res.FinalText, sess.expected)
		final.Expected = sess.expected
		final.Score = &sc
		attempt.Expected = sess.expected
		attempt.Score = sc
	}
	sess.emit(ctx, final)

	if _, err := sess.srv.store.Write(ctx, attempt); err != nil {
		observe.Logger(ctx).Warn("failed to record live attempt", "error", err)
	}
}
