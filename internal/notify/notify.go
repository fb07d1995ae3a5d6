package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ce_platform/internal/lib/emailaddr"
	sl "ce_platform/internal/lib/logger"
	"ce_platform/internal/models"
)

var ErrInvalidRecipient = errors.New("invalid recipient address")

// Message is a fully rendered email handed to a transport.
type Message struct {
	From           string
	To             string
	Subject        string
	HTML           string
	Text           string
	AttachmentName string
	Attachment     []byte
}

type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

type AuditRecorder interface {
	SaveCommunication(ctx context.Context, c *models.Communication) error
}

type Publisher interface {
	PublishEmailJob(ctx context.Context, job models.EmailJob) error
}

// Dispatcher delivers rendered messages through the primary transport and
// records each attempt in the communications audit log. Dispatch is not
// idempotent: calling it twice sends two messages.
type Dispatcher struct {
	log       *slog.Logger
	transport Transport
	fallback  Transport
	audit     AuditRecorder
	publisher Publisher
	from      string
}

func New(
	log *slog.Logger,
	transport Transport,
	fallback Transport,
	audit AuditRecorder,
	publisher Publisher,
	from string,
) *Dispatcher {
	return &Dispatcher{
		log:       log,
		transport: transport,
		fallback:  fallback,
		audit:     audit,
		publisher: publisher,
		from:      from,
	}
}

func (d *Dispatcher) Dispatch(
	ctx context.Context,
	recipient, subject, html, text, category string,
) (string, error) {
	return d.send(ctx, Message{
		From:    d.from,
		To:      recipient,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}, category)
}

func (d *Dispatcher) DispatchAttachment(
	ctx context.Context,
	recipient, subject, html, text, category string,
	attachmentName string,
	attachment []byte,
) (string, error) {
	return d.send(ctx, Message{
		From:           d.from,
		To:             recipient,
		Subject:        subject,
		HTML:           html,
		Text:           text,
		AttachmentName: attachmentName,
		Attachment:     attachment,
	}, category)
}

func (d *Dispatcher) send(ctx context.Context, msg Message, category string) (string, error) {
	const op = "notify.Dispatcher.send"

	log := d.log.With(slog.String("op", op), slog.String("category", category))

	// Reject before any network call.
	if !emailaddr.Valid(msg.To) {
		return "", ErrInvalidRecipient
	}

	messageID, err := d.transport.Send(ctx, msg)
	if err != nil {
		log.Error("transport failed",
			slog.String("transport", d.transport.Name()),
			sl.Err(err),
		)
		d.record(ctx, msg, category, "", err)

		return "", err
	}

	log.Info("message dispatched",
		slog.String("transport", d.transport.Name()),
		slog.String("message_id", messageID),
	)

	d.record(ctx, msg, category, messageID, nil)

	return messageID, nil
}

// record writes the audit row. Audit is best-effort and never flips the
// dispatch result; a failure here is logged and dropped.
func (d *Dispatcher) record(ctx context.Context, msg Message, category, messageID string, sendErr error) {
	comm := &models.Communication{
		Recipient: msg.To,
		Subject:   msg.Subject,
		Category:  category,
		MessageID: messageID,
		SentAt:    time.Now(),
	}
	if sendErr != nil {
		comm.Failure = sendErr.Error()
	}

	if err := d.audit.SaveCommunication(ctx, comm); err != nil {
		d.log.Warn("failed to record communication", sl.Err(err))
	}
}

// Enqueue hands an email job to the queue for the mail_sender worker.
// Used where delivery does not need to happen inside the request, e.g.
// bulk certificate sends.
func (d *Dispatcher) Enqueue(ctx context.Context, job models.EmailJob) error {
	const op = "notify.Dispatcher.Enqueue"

	if !emailaddr.Valid(job.To) {
		return ErrInvalidRecipient
	}

	if err := d.publisher.PublishEmailJob(ctx, job); err != nil {
		d.log.Error("failed to enqueue email job", slog.String("op", op), sl.Err(err))
		return err
	}

	return nil
}

type TransportResult struct {
	Transport string `json:"transport"`
	OK        bool   `json:"ok"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TestDelivery sends a probe message through every configured transport
// and reports each outcome separately, for the admin email panel.
func (d *Dispatcher) TestDelivery(ctx context.Context, recipient string) ([]TransportResult, error) {
	if !emailaddr.Valid(recipient) {
		return nil, ErrInvalidRecipient
	}

	msg := Message{
		From:    d.from,
		To:      recipient,
		Subject: "Email Delivery Test",
		HTML:    "<p>This message verifies the email delivery configuration. Time: " + time.Now().UTC().Format(time.RFC3339) + "</p>",
		Text:    "This message verifies the email delivery configuration.",
	}

	transports := []Transport{d.transport}
	if d.fallback != nil {
		transports = append(transports, d.fallback)
	}

	results := make([]TransportResult, 0, len(transports))
	for _, t := range transports {
		id, err := t.Send(ctx, msg)

		res := TransportResult{Transport: t.Name(), OK: err == nil, MessageID: id}
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)

		d.record(ctx, msg, "test", id, err)
	}

	return results, nil
}
