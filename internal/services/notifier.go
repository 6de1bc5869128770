package services

import (
	"context"
	"log/slog"
	"net/mail"

	"eventhub/monitoring"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
	pubnub "github.com/pubnub/go/v7"
)

// Sender delivers one email. Best-effort: failures are logged, never
// propagated to the operation that enqueued the notification.
type Sender interface {
	Send(to, subject, body string) error
}

// Publisher pushes a realtime message to a channel. Best-effort.
type Publisher interface {
	Publish(channel string, message map[string]any)
}

// Notification is one post-commit side effect. Email fields and realtime
// fields are independent; either may be empty.
type Notification struct {
	To      string
	Subject string
	Body    string

	Channel string
	Message map[string]any
}

// Notifier is an explicit post-commit side-effect queue: primary operations
// enqueue and move on, a single worker drains. Enqueue never blocks; when the
// buffer is full the notification is dropped and logged.
type Notifier struct {
	queue     chan Notification
	sender    Sender
	publisher Publisher
}

func NewNotifier(sender Sender, publisher Publisher, buffer int) *Notifier {
	if buffer <= 0 {
		buffer = 256
	}
	return &Notifier{
		queue:     make(chan Notification, buffer),
		sender:    sender,
		publisher: publisher,
	}
}

// Start runs the worker until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case msg := <-n.queue:
				n.deliver(msg)
			}
		}
	}()
}

// Enqueue queues a notification without blocking the caller.
func (n *Notifier) Enqueue(msg Notification) {
	select {
	case n.queue <- msg:
	default:
		slog.Warn("notifier: queue full, dropping notification", "to", msg.To, "channel", msg.Channel)
		monitoring.TrackNotification("queue", "dropped")
	}
}

func (n *Notifier) deliver(msg Notification) {
	if msg.To != "" && n.sender != nil {
		if err := n.sender.Send(msg.To, msg.Subject, msg.Body); err != nil {
			slog.Error("notifier: email send failed", "to", msg.To, "subject", msg.Subject, "error", err)
			monitoring.TrackNotification("email", "error")
		} else {
			monitoring.TrackNotification("email", "sent")
		}
	}

	if msg.Channel != "" && n.publisher != nil {
		n.publisher.Publish(msg.Channel, msg.Message)
		monitoring.TrackNotification("realtime", "sent")
	}
}

// MailerSender sends through the PocketBase mail client configured on the app.
type MailerSender struct {
	app core.App
}

func NewMailerSender(app core.App) *MailerSender {
	return &MailerSender{app: app}
}

func (s *MailerSender) Send(to, subject, body string) error {
	message := &mailer.Message{
		From: mail.Address{
			Address: s.app.Settings().Meta.SenderAddress,
			Name:    s.app.Settings().Meta.SenderName,
		},
		To:      []mail.Address{{Address: to}},
		Subject: subject,
		HTML:    body,
	}

	return s.app.NewMailClient().Send(message)
}

// PubNubPublisher publishes to the per-event organizer channels.
type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{pn: pn}
}

func (p *PubNubPublisher) Publish(channel string, message map[string]any) {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("notifier: pubnub publish failed", "channel", channel, "error", err)
	}
}
