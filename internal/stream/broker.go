// Package stream implements the live subscription router: role-scoped
// ticket list and single-ticket subscriptions that re-emit the full
// current state on every underlying change. Change notices fan out
// in-process and, when Redis is available, across instances via pub/sub.
package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

const changeChannel = "helpdesk.tickets.changed"

// ListFilter narrows admin list subscriptions; ignored for other roles.
type ListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
}

// ListCallback receives the full current result set on every change.
type ListCallback func([]domain.Ticket)

// TicketCallback receives the current ticket state on every change. A nil
// ticket means the ticket is gone or no longer visible to the subscriber;
// it is the final emission.
type TicketCallback func(*domain.Ticket)

// Broker routes ticket-change notifications to live subscriptions.
type Broker struct {
	tickets  repository.TicketRepository
	messages repository.TicketMessageRepository
	rdb      *redis.Client
	logger   *zap.Logger
	origin   string

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewBroker constructs the broker. rdb may be nil; fan-out then stays
// in-process only.
func NewBroker(tickets repository.TicketRepository, messages repository.TicketMessageRepository, rdb *redis.Client, logger *zap.Logger) *Broker {
	return &Broker{
		tickets:  tickets,
		messages: messages,
		rdb:      rdb,
		logger:   logger,
		origin:   uuid.NewString(),
		subs:     make(map[*Subscription]struct{}),
	}
}

// Run consumes cross-instance change notices until ctx is cancelled.
// Local notices are delivered directly by NotifyChanged; messages carrying
// our own origin are skipped to avoid double fan-out.
func (b *Broker) Run(ctx context.Context) {
	if b.rdb == nil {
		return
	}
	pubsub := b.rdb.Subscribe(ctx, changeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			origin, ticketID, found := strings.Cut(msg.Payload, "|")
			if !found || origin == b.origin {
				continue
			}
			b.fanout(ticketID)
		}
	}
}

// NotifyChanged wakes every matching subscription and propagates the
// notice to other instances.
func (b *Broker) NotifyChanged(ctx context.Context, ticketID string) {
	b.fanout(ticketID)
	if b.rdb == nil {
		return
	}
	if err := b.rdb.Publish(ctx, changeChannel, b.origin+"|"+ticketID).Err(); err != nil {
		b.logger.Warn("change notice publish failed", zap.Error(err))
	}
}

func (b *Broker) fanout(ticketID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if sub.ticketID != "" && ticketID != "" && sub.ticketID != ticketID {
			continue
		}
		// Coalescing: a queued wake-up already re-reads the latest state.
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

// SubscribeList opens a role-scoped live list subscription. The callback
// fires once with the initial result set and again after every change.
func (b *Broker) SubscribeList(ctx context.Context, viewer *domain.Profile, filter ListFilter, fn ListCallback) *Subscription {
	sub := b.newSubscription("")
	viewerCopy := *viewer

	go func() {
		defer sub.Unsubscribe()
		emit := func() {
			repoFilter := repository.ScopedFilter(&viewerCopy, filter.Statuses, filter.Priorities)
			result, err := b.tickets.ListWithFilter(ctx, repoFilter)
			if err != nil {
				b.logger.Warn("list subscription query failed", zap.Error(err))
				return
			}
			sub.invoke(func() { fn(result) })
		}
		emit()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case <-sub.notify:
				emit()
			}
		}
	}()
	return sub
}

// SubscribeTicket opens a single-ticket subscription for detail views. The
// view gate is re-applied on every emission: an assignment change can
// revoke access from under an open view, in which case the subscriber
// receives a final nil and the subscription ends.
func (b *Broker) SubscribeTicket(ctx context.Context, viewer *domain.Profile, ticketID string, fn TicketCallback) *Subscription {
	sub := b.newSubscription(ticketID)
	viewerCopy := *viewer

	go func() {
		defer sub.Unsubscribe()
		emit := func() bool {
			ticket, err := b.tickets.GetByID(ctx, ticketID)
			if err != nil || !authz.CanView(viewerCopy.Role, viewerCopy.UID, ticket) {
				sub.invoke(func() { fn(nil) })
				return false
			}
			if b.messages != nil {
				if msgs, err := b.messages.ListByTicket(ctx, ticket.ID); err == nil {
					ticket.Messages = msgs
				}
			}
			return sub.invoke(func() { fn(ticket) })
		}
		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case <-sub.notify:
				if !emit() {
					return
				}
			}
		}
	}()
	return sub
}

func (b *Broker) newSubscription(ticketID string) *Subscription {
	sub := &Subscription{
		ticketID: ticketID,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	sub.release = func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Subscription is the cancellation handle for a live query.
type Subscription struct {
	ticketID string
	notify   chan struct{}
	done     chan struct{}
	once     sync.Once
	release  func()

	cbMu   sync.Mutex
	closed bool
}

// invoke runs fn unless the subscription is closed. Unsubscribe takes the
// same lock, so a callback observed as started always finishes before
// Unsubscribe returns, and none starts afterwards.
func (s *Subscription) invoke(fn func()) bool {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

// Unsubscribe stops further emissions and releases the underlying
// channel. Safe to call any number of times; no callback fires after it
// returns, even for a change already in flight.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cbMu.Lock()
		s.closed = true
		s.cbMu.Unlock()
		close(s.done)
		s.release()
	})
}
