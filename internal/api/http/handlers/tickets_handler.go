package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Attachments: attachmentInputs(req.Attachments),
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), profile, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.ListTickets(c.UserContext(), profile, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), profile, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.AddMessage(c.UserContext(), profile, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.WorkerUID) == "" {
		return apperrors.NewValidationError("worker_uid required", nil)
	}
	ticket, err := h.service.Assign(c.UserContext(), profile, c.Params("id"), req.WorkerUID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Resolve POST /tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Resolve(c.UserContext(), profile, c.Params("id"), req.SolutionText, attachmentInputs(req.Attachments))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.Close(c.UserContext(), profile, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// UpdateStatus PUT /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	profile, ok := auth.ProfileFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), profile, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
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
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func attachmentInputs(reqs []dto.AttachmentRequest) []service.AttachmentInput {
	inputs := make([]service.AttachmentInput, 0, len(reqs))
	for _, att := range reqs {
		inputs = append(inputs, service.AttachmentInput{
			Name:      att.Name,
			URL:       att.URL,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
			FileKey:   att.FileKey,
		})
	}
	return inputs
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:             ticket.ID,
		Title:          ticket.Title,
		Status:         ticket.Status,
		Priority:       ticket.Priority,
		Category:       ticket.Category,
		CreatedBy:      ticket.CreatedBy,
		CreatedByName:  ticket.CreatedByName,
		AssignedTo:     ticket.AssignedTo,
		AssignedToName: ticket.AssignedToName,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(ticket.Messages))
	for i := range ticket.Messages {
		msgs = append(msgs, ticketMessageResponse(&ticket.Messages[i]))
	}
	detail := dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Description:   ticket.Description,
		Attachments:   attachmentResponses(ticket.Attachments),
		Messages:      msgs,
	}
	if ticket.Solution != nil {
		detail.Solution = &dto.SolutionResponse{
			Text:           ticket.Solution.Text,
			Attachments:    attachmentResponses(ticket.Solution.Attachments),
			ResolvedByName: ticket.Solution.ResolvedByName,
			ResolvedAt:     ticket.Solution.ResolvedAt,
		}
	}
	return detail
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	return dto.TicketMessageResponse{
		ID:                msg.ID,
		SenderID:          msg.SenderID,
		SenderDisplayName: msg.SenderDisplayName,
		SenderRole:        msg.SenderRole,
		Body:              msg.Body,
		CreatedAt:         msg.CreatedAt,
	}
}

func attachmentResponses(attachments []domain.Attachment) []dto.AttachmentResponse {
	resp := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, att := range attachments {
		resp = append(resp, dto.AttachmentResponse{
			ID:        att.ID,
			Name:      att.Name,
			URL:       att.URL,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}
	return resp
}
