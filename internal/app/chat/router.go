package chat

import (
	"time"

	"github.com/rs/zerolog"

	"relaychat/internal/app/history"
	"relaychat/internal/app/message"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

// DefaultMaxContentBytes is the content limit used when none is configured.
const DefaultMaxContentBytes = 5000

// Router stamps, stores and dispatches chat messages.
type Router struct {
	store     *history.Store
	transport Transport

	maxContentBytes int

	// now is the clock used for timestamps.
	now func() time.Time

	logger zerolog.Logger
}

// NewRouter creates a Router storing into store and delivering through transport.
func NewRouter(store *history.Store, transport Transport, maxContentBytes int) *Router {
	if maxContentBytes <= 0 {
		maxContentBytes = DefaultMaxContentBytes
	}

	return &Router{
		store:           store,
		transport:       transport,
		maxContentBytes: maxContentBytes,
		now:             time.Now,
		logger:          logx.Component("Router"),
	}
}

// Route validates msg, assigns its ID and timestamp, forces it to CHAT,
// appends it to history and delivers it to the receiver and back to the sender.
// Invalid input is rejected before anything is stored or delivered.
func (r *Router) Route(msg message.Message) (message.Message, *errs.CustomError) {
	if msg.Sender == "" {
		r.logger.Warn().Str("receiver", msg.Receiver).Msg("Rejected message without sender.")
		return message.Message{}, errs.NewError(errs.ErrInvalidSender)
	}

	if len(msg.Content) > r.maxContentBytes {
		r.logger.Warn().
			Str("sender", msg.Sender).
			Int("content_bytes", len(msg.Content)).
			Int("max_content_bytes", r.maxContentBytes).
			Msg("Rejected message with oversized content.")
		return message.Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	routed := r.Stamp(msg, message.TypeChat)

	r.store.Append(routed)

	// with sender == receiver both deliveries reach the same user
	if routed.Receiver != "" {
		r.transport.DeliverToUser(routed.Receiver, routed)
	}
	r.transport.DeliverToUser(routed.Sender, routed)

	r.logger.Debug().
		Str("message_id", routed.ID).
		Str("sender", routed.Sender).
		Str("receiver", routed.Receiver).
		Msg("Message routed.")

	return routed, nil
}

// Stamp returns a copy of msg with a fresh ID, the current time and the given type.
func (r *Router) Stamp(msg message.Message, kind message.Type) message.Message {
	msg.ID = randx.MessageID()
	msg.Timestamp = r.now()
	msg.Type = kind
	return msg
}
