package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/stream"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const keepAliveInterval = 15 * time.Second

// StreamHandler exposes live subscriptions over server-sent events. Each
// emission carries the full current state, never a delta; clients replace
// their view wholesale on every event.
type StreamHandler struct {
	broker *stream.Broker
	logger *zap.Logger
}

// NewStreamHandler constructs handler.
func NewStreamHandler(broker *stream.Broker, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{broker: broker, logger: logger}
}

type emission struct {
	event string
	data  []byte
	final bool
}

// StreamList GET /stream/tickets. Emits the caller's role-scoped ticket
// list on connect and again after every change.
func (h *StreamHandler) StreamList(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseStreamFilter(c)

	setSSEHeaders(c)
	broker := h.broker
	logger := h.logger
	viewer := *profile

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		emissions := make(chan emission, 1)
		sub := broker.SubscribeList(ctx, &viewer, filter, func(tickets []domain.Ticket) {
			items := make([]dto.TicketSummary, 0, len(tickets))
			for i := range tickets {
				items = append(items, ticketSummary(&tickets[i]))
			}
			payload, err := json.Marshal(items)
			if err != nil {
				logger.Warn("list emission encode failed", zap.Error(err))
				return
			}
			select {
			case emissions <- emission{event: "tickets", data: payload}:
			case <-ctx.Done():
			}
		})
		// Cancel first: a callback blocked on the emissions channel must be
		// released before Unsubscribe can wait it out.
		defer func() {
			cancel()
			sub.Unsubscribe()
		}()

		h.pump(ctx, w, emissions)
	}))
	return nil
}

// StreamTicket GET /stream/tickets/:id. Emits the full ticket with its
// thread on every change. When the ticket is deleted or access is revoked
// mid-stream the client receives a final "removed" event and the stream
// ends.
func (h *StreamHandler) StreamTicket(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID := c.Params("id")

	setSSEHeaders(c)
	broker := h.broker
	logger := h.logger
	viewer := *profile

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		emissions := make(chan emission, 1)
		sub := broker.SubscribeTicket(ctx, &viewer, ticketID, func(ticket *domain.Ticket) {
			var em emission
			if ticket == nil {
				em = emission{event: "removed", data: []byte("null"), final: true}
			} else {
				payload, err := json.Marshal(ticketDetail(ticket))
				if err != nil {
					logger.Warn("ticket emission encode failed", zap.Error(err))
					return
				}
				em = emission{event: "ticket", data: payload}
			}
			select {
			case emissions <- em:
			case <-ctx.Done():
			}
		})
		defer func() {
			cancel()
			sub.Unsubscribe()
		}()

		h.pump(ctx, w, emissions)
	}))
	return nil
}

// pump drains emissions onto the wire until the client disconnects or a
// final emission arrives. Write failures mean the client went away.
func (h *StreamHandler) pump(ctx context.Context, w *bufio.Writer, emissions <-chan emission) {
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		case em := <-emissions:
			if err := writeSSE(w, em.event, em.data); err != nil {
				return
			}
			if em.final {
				return
			}
		}
	}
}

func writeSSE(w *bufio.Writer, event string, data []byte) error {
	if _, err := w.WriteString("event: " + event + "\n"); err != nil {
		return err
	}
	if _, err := w.WriteString("data: "); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return err
	}
	return w.Flush()
}

func setSSEHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

func parseStreamFilter(c *fiber.Ctx) stream.ListFilter {
	filter := stream.ListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	return filter
}
