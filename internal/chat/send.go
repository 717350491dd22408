// ABOUTME: Dual-path send pipeline: fire-and-forget live events vs awaited uploads
// ABOUTME: Draft state is cleared unconditionally once a submission enters the pipeline

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrEmptyDraft is returned when a submission carries neither text nor
// an attachment. Rejected at the boundary: no state change, no network
// call, and the draft is left untouched.
var ErrEmptyDraft = errors.New("nothing to send")

// LiveSender pushes a message over the live transport. The contract is
// at-most-once and unconfirmed: a nil error means the transport accepted
// the write, not that anyone received it. There is no failure channel
// beyond transport-level errors.
type LiveSender interface {
	SendLive(m Message) error
}

// Uploader submits an attachment-bearing message to the remote store
// and returns the persisted message descriptor, including the
// server-assigned attachment URL.
type Uploader interface {
	SendAttachment(ctx context.Context, receiver, content, filePath string) (Message, error)
}

// NotifyFunc surfaces a transient, non-fatal notification to the UI
// collaborator.
type NotifyFunc func(msg string)

// SendPipeline accepts an outgoing draft and decides its delivery path:
// text-only drafts go out as live events with an immediate local echo;
// drafts with an attachment are uploaded and appended only once the
// server responds.
type SendPipeline struct {
	localID  string
	live     LiveSender // nil when the transport never came up
	uploader Uploader
	timeline *Timeline
	notify   NotifyFunc
	logger   *slog.Logger

	mu        sync.Mutex
	draftText string
	draftFile string
}

// NewSendPipeline creates a pipeline for the given local user. live may
// be nil if transport establishment failed; text sends then echo locally
// without ever reaching the wire, which is indistinguishable from a
// silent delivery failure by design.
func NewSendPipeline(localID string, live LiveSender, uploader Uploader, timeline *Timeline, notify NotifyFunc, logger *slog.Logger) *SendPipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(string) {}
	}
	return &SendPipeline{
		localID:  localID,
		live:     live,
		uploader: uploader,
		timeline: timeline,
		notify:   notify,
		logger:   logger.With("component", "send"),
	}
}

// SetText replaces the pending input text.
func (p *SendPipeline) SetText(text string) {
	p.mu.Lock()
	p.draftText = text
	p.mu.Unlock()
}

// Attach stages a file path as the pending attachment.
func (p *SendPipeline) Attach(path string) {
	p.mu.Lock()
	p.draftFile = path
	p.mu.Unlock()
}

// Draft returns the pending input text and attachment path.
func (p *SendPipeline) Draft() (text, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draftText, p.draftFile
}

// Submit sends the pending draft to the given receiver. Empty drafts
// are rejected before pipeline entry. Once the pipeline is entered, the
// draft is cleared no matter which path runs or how it ends.
func (p *SendPipeline) Submit(ctx context.Context, receiver string) error {
	p.mu.Lock()
	text, file := p.draftText, p.draftFile
	p.mu.Unlock()

	if text == "" && file == "" {
		return ErrEmptyDraft
	}

	defer p.clear()

	if file != "" {
		return p.submitAttachment(ctx, receiver, text, file)
	}
	p.submitText(receiver, text)
	return nil
}

// submitText constructs the message, pushes it fire-and-forget, and
// appends the local echo immediately. The echo is authoritative and
// permanent even if the push fails: no confirmation is awaited and no
// failure is surfaced on this path.
func (p *SendPipeline) submitText(receiver, text string) {
	msg := NewMessage(p.localID, receiver, text, "")

	if p.live != nil {
		if err := p.live.SendLive(msg); err != nil {
			p.logger.Debug("live push failed, echo kept", "receiver", receiver, "error", err)
		}
	}

	p.timeline.Append(msg)
	p.logger.Debug("text message sent", "receiver", receiver, "client_id", msg.ClientID)
}

// submitAttachment uploads the attachment and appends the server's
// persisted message. On failure nothing is appended and the operator
// must resend manually.
func (p *SendPipeline) submitAttachment(ctx context.Context, receiver, text, file string) error {
	msg, err := p.uploader.SendAttachment(ctx, receiver, text, file)
	if err != nil {
		p.logger.Warn("attachment send failed", "receiver", receiver, "file", file, "error", err)
		p.notify("Failed to send message")
		return fmt.Errorf("sending attachment: %w", err)
	}

	p.timeline.Append(msg)
	p.logger.Debug("attachment message sent", "receiver", receiver, "file_url", msg.FileURL)
	return nil
}

func (p *SendPipeline) clear() {
	p.mu.Lock()
	p.draftText = ""
	p.draftFile = ""
	p.mu.Unlock()
}
