package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	for i := range ticket.Attachments {
		ticket.Attachments[i].ID = fmt.Sprintf("att-%d-%d", r.seq, i)
		ticket.Attachments[i].TicketID = ticket.ID
		ticket.Attachments[i].Owner = domain.AttachmentOwnerTicket
	}
	r.tickets[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyTicket(ticket), nil
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
			continue
		}
		result = append(result, *copyTicket(ticket))
	}
	return result, nil
}

func (r *fakeTicketRepo) UpdateAssignment(ctx context.Context, id, assignedTo, assignedToName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.AssignedTo = &assignedTo
	ticket.AssignedToName = &assignedToName
	ticket.Status = domain.TicketStatusInProgress
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Status = status
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) Resolve(ctx context.Context, id string, solution domain.Solution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	for i := range solution.Attachments {
		solution.Attachments[i].ID = fmt.Sprintf("sol-att-%d", i)
		solution.Attachments[i].TicketID = id
		solution.Attachments[i].Owner = domain.AttachmentOwnerSolution
	}
	solution.ResolvedAt = time.Now()
	ticket.Solution = &solution
	ticket.Status = domain.TicketStatusResolved
	ticket.UpdatedAt = time.Now()
	return nil
}

func (r *fakeTicketRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func copyTicket(ticket *domain.Ticket) *domain.Ticket {
	clone := *ticket
	clone.Attachments = append([]domain.Attachment(nil), ticket.Attachments...)
	if ticket.AssignedTo != nil {
		uid := *ticket.AssignedTo
		clone.AssignedTo = &uid
	}
	if ticket.AssignedToName != nil {
		name := *ticket.AssignedToName
		clone.AssignedToName = &name
	}
	if ticket.Solution != nil {
		solution := *ticket.Solution
		solution.Attachments = append([]domain.Attachment(nil), ticket.Solution.Attachments...)
		clone.Solution = &solution
	}
	clone.Messages = append([]domain.TicketMessage(nil), ticket.Messages...)
	return &clone
}

func containsStatus(set []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func containsPriority(set []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, p := range set {
		if p == priority {
			return true
		}
	}
	return false
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	tickets  *fakeTicketRepo
	messages map[string][]domain.TicketMessage
}

func newFakeMessageRepo(tickets *fakeTicketRepo) *fakeMessageRepo {
	return &fakeMessageRepo{tickets: tickets, messages: make(map[string][]domain.TicketMessage)}
}

// Create mirrors the real repository's transaction: the message append and
// the ticket touch/reopen land together or not at all.
func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.TicketMessage, reopenTo *domain.TicketStatus) error {
	r.tickets.mu.Lock()
	ticket, ok := r.tickets.tickets[msg.TicketID]
	if !ok {
		r.tickets.mu.Unlock()
		return pgx.ErrNoRows
	}
	if reopenTo != nil {
		ticket.Status = *reopenTo
	}
	ticket.UpdatedAt = time.Now()
	r.tickets.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	msg.CreatedAt = time.Now()
	r.messages[msg.TicketID] = append(r.messages[msg.TicketID], *msg)
	return nil
}

func (r *fakeMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TicketMessage(nil), r.messages[ticketID]...), nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func newFakeProfileRepo(profiles ...*domain.Profile) *fakeProfileRepo {
	repo := &fakeProfileRepo{profiles: make(map[string]*domain.Profile)}
	for _, p := range profiles {
		repo.profiles[p.UID] = p
	}
	return repo
}

func (r *fakeProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile.CreatedAt = time.Now()
	r.profiles[profile.UID] = profile
	return nil
}

func (r *fakeProfileRepo) GetByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[uid]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *profile
	return &clone, nil
}

func (r *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, profile := range r.profiles {
		if profile.Email == email {
			clone := *profile
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeProfileRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Profile
	for _, profile := range r.profiles {
		if profile.Role == role {
			result = append(result, *profile)
		}
	}
	return result, nil
}

func (r *fakeProfileRepo) UpdateRole(ctx context.Context, uid string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[uid]
	if !ok {
		return pgx.ErrNoRows
	}
	profile.Role = role
	return nil
}

type fakeObjectDeleter struct {
	mu       sync.Mutex
	deleted  []string
	failKeys map[string]bool
}

func (d *fakeObjectDeleter) Delete(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted = append(d.deleted, key)
	if d.failKeys[key] {
		return errors.New("bucket unavailable")
	}
	return nil
}

var (
	userAlice   = &domain.Profile{UID: "alice", Email: "alice@example.com", DisplayName: "Alice", Role: domain.RoleUser}
	userBob     = &domain.Profile{UID: "bob", Email: "bob@example.com", DisplayName: "Bob", Role: domain.RoleUser}
	workerWendy = &domain.Profile{UID: "wendy", Email: "wendy@example.com", DisplayName: "Wendy", Role: domain.RoleWorker}
	adminAda    = &domain.Profile{UID: "ada", Email: "ada@example.com", DisplayName: "Ada", Role: domain.RoleAdmin}
)

type testEnv struct {
	svc      *TicketService
	tickets  *fakeTicketRepo
	messages *fakeMessageRepo
	deleter  *fakeObjectDeleter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tickets := newFakeTicketRepo()
	messages := newFakeMessageRepo(tickets)
	profiles := newFakeProfileRepo(userAlice, userBob, workerWendy, adminAda)
	deleter := &fakeObjectDeleter{failKeys: make(map[string]bool)}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		MessageRepo: messages,
		ProfileRepo: profiles,
		Objects:     deleter,
		Dispatcher:  events.NewInMemoryDispatcher(),
		Logger:      zap.NewNop(),
	})
	return &testEnv{svc: svc, tickets: tickets, messages: messages, deleter: deleter}
}

func mustCreate(t *testing.T, env *testEnv, creator *domain.Profile, input TicketCreateInput) *domain.Ticket {
	t.Helper()
	ticket, err := env.svc.CreateTicket(context.Background(), creator, input)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	return domainErr.Code
}

func TestCreateTicketDefaults(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{
		Title:       "Printer jam",
		Description: "Paper stuck in tray two",
	})

	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want OPEN", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("priority = %s, want MEDIUM", ticket.Priority)
	}
	if ticket.Category != domain.TicketCategoryOther {
		t.Errorf("category = %s, want OTHER", ticket.Category)
	}
	if ticket.CreatedByName != "Alice" {
		t.Errorf("created_by_name = %q, want creator display name snapshot", ticket.CreatedByName)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateTicket(context.Background(), userAlice, TicketCreateInput{Description: "no title"})
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", got)
	}

	_, err = env.svc.CreateTicket(context.Background(), userAlice, TicketCreateInput{
		Title: "t", Description: "d", Priority: "URGENT",
	})
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Errorf("unknown priority code = %s, want VALIDATION_FAILED", got)
	}
}

// Text bounds are character counts. Multibyte input must not be rejected
// early (byte length over the cap) nor accepted late (too few characters).
func TestLengthBoundsCountCharacters(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{
		Title:       strings.Repeat("ü", 200),
		Description: "Ümlauts everywhere",
	})
	if _, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// 5 characters but 10 bytes: still below the 10-character minimum.
	_, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID, strings.Repeat("ж", 5), nil)
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Errorf("short multibyte solution code = %s, want VALIDATION_FAILED", got)
	}

	// 1500 characters, 3000 bytes: inside the 2000-character ceiling.
	if _, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID, strings.Repeat("ж", 1500), nil); err != nil {
		t.Fatalf("resolve with 1500 multibyte characters: %v", err)
	}

	// Message ceiling is 2000 characters, not bytes.
	if _, err := env.svc.AddMessage(context.Background(), userAlice, ticket.ID, strings.Repeat("é", 2000)); err != nil {
		t.Fatalf("2000-character multibyte message: %v", err)
	}
	_, err = env.svc.AddMessage(context.Background(), userAlice, ticket.ID, strings.Repeat("é", 2001))
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Errorf("2001-character message code = %s, want VALIDATION_FAILED", got)
	}
}

func TestWorkerCannotCreate(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateTicket(context.Background(), workerWendy, TicketCreateInput{Title: "t", Description: "d"})
	if got := errCode(t, err); got != "FORBIDDEN" {
		t.Errorf("code = %s, want FORBIDDEN", got)
	}
}

func TestAssignForcesInProgress(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "VPN down", Description: "Cannot connect since morning"})

	assigned, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS after assignment", assigned.Status)
	}
	if assigned.AssignedTo == nil || *assigned.AssignedTo != workerWendy.UID {
		t.Errorf("assigned_to = %v, want %s", assigned.AssignedTo, workerWendy.UID)
	}
	if assigned.AssignedToName == nil || *assigned.AssignedToName != "Wendy" {
		t.Errorf("assigned_to_name snapshot missing")
	}
}

func TestAssignRejectsNonWorkerTarget(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})

	_, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, userBob.UID)
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED for end-user assignee", got)
	}

	_, err = env.svc.Assign(context.Background(), adminAda, ticket.ID, "ghost")
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED for unknown assignee", got)
	}
}

func TestAssignRejectsClosedTicket(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	if _, err := env.svc.Close(context.Background(), adminAda, ticket.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID)
	if got := errCode(t, err); got != "CONFLICT" {
		t.Errorf("code = %s, want CONFLICT", got)
	}
}

func TestOnlyAdminAssigns(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	_, err := env.svc.Assign(context.Background(), workerWendy, ticket.ID, workerWendy.UID)
	if got := errCode(t, err); got != "FORBIDDEN" {
		t.Errorf("code = %s, want FORBIDDEN", got)
	}
}

func TestResolveValidatesSolutionText(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	if _, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	_, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID, "too short", nil)
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED", got)
	}

	stored, _ := env.tickets.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusInProgress {
		t.Errorf("status mutated to %s by failed resolve", stored.Status)
	}
	if stored.Solution != nil {
		t.Error("solution written by failed resolve")
	}
}

func TestResolveWritesSolutionAtomically(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	if _, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	resolved, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID,
		"Replaced the toner cartridge and cleared the queue",
		[]AttachmentInput{
			{Name: "before.jpg", FileKey: "attachments/before"},
			{Name: "after.jpg", FileKey: "attachments/after"},
		})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved {
		t.Errorf("status = %s, want RESOLVED", resolved.Status)
	}
	if resolved.Solution == nil {
		t.Fatal("solution missing")
	}
	if resolved.Solution.ResolvedByName != "Wendy" {
		t.Errorf("resolved_by_name = %q, want Wendy", resolved.Solution.ResolvedByName)
	}
	if len(resolved.Solution.Attachments) != 2 {
		t.Fatalf("solution attachments = %d, want 2", len(resolved.Solution.Attachments))
	}
	if resolved.Solution.Attachments[0].Name != "before.jpg" || resolved.Solution.Attachments[1].Name != "after.jpg" {
		t.Error("solution attachment order not preserved")
	}
	for _, att := range resolved.Solution.Attachments {
		if att.Owner != domain.AttachmentOwnerSolution {
			t.Errorf("attachment %s owner = %s, want SOLUTION", att.Name, att.Owner)
		}
	}
}

func TestResolveFromOpenRejected(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})

	_, err := env.svc.Resolve(context.Background(), adminAda, ticket.ID, "long enough solution text", nil)
	if got := errCode(t, err); got != "CONFLICT" {
		t.Errorf("code = %s, want CONFLICT for OPEN -> RESOLVED", got)
	}
}

func TestUnassignedWorkerCannotResolve(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})

	// Worker outside the gate cannot even see the ticket.
	_, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID, "long enough solution text", nil)
	if got := errCode(t, err); got != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", got)
	}
}

func TestAddMessageOnClosedTicket(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	if _, err := env.svc.Close(context.Background(), adminAda, ticket.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err := env.svc.AddMessage(context.Background(), userAlice, ticket.ID, "still broken")
	if got := errCode(t, err); got != "CONFLICT" {
		t.Errorf("code = %s, want CONFLICT", got)
	}
}

func TestCreatorReplyReopensAssignedTicket(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	if _, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID, "rebooted the access point", nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := env.svc.AddMessage(context.Background(), userAlice, ticket.ID, "it broke again an hour later"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	stored, _ := env.tickets.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS reopen with assignee set", stored.Status)
	}
}

func TestCreatorReplyReopensUnassignedToOpen(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	// Admin resolves directly from IN_PROGRESS without an assignee.
	if _, err := env.svc.UpdateStatus(context.Background(), adminAda, ticket.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("status: %v", err)
	}
	if _, err := env.svc.Resolve(context.Background(), adminAda, ticket.ID, "cleaned up the stuck job", nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if _, err := env.svc.AddMessage(context.Background(), userAlice, ticket.ID, "not fixed"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	stored, _ := env.tickets.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want OPEN reopen without assignee", stored.Status)
	}
}

func TestNonCreatorReplyOnResolvedRejected(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	if _, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID, "swapped the cable out", nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	_, err := env.svc.AddMessage(context.Background(), workerWendy, ticket.ID, "following up")
	if got := errCode(t, err); got != "CONFLICT" {
		t.Errorf("code = %s, want CONFLICT", got)
	}
}

func TestCreatorConfirmsClosureOfResolved(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})
	if _, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID, "reseated the memory module", nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	closed, err := env.svc.Close(context.Background(), userAlice, ticket.ID)
	if err != nil {
		t.Fatalf("creator close: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Errorf("status = %s, want CLOSED", closed.Status)
	}
}

func TestCreatorCannotCloseOpenTicket(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})

	_, err := env.svc.Close(context.Background(), userAlice, ticket.ID)
	if got := errCode(t, err); got != "FORBIDDEN" {
		t.Errorf("code = %s, want FORBIDDEN", got)
	}
}

func TestUpdateStatusRejectsResolvedShortcut(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})

	_, err := env.svc.UpdateStatus(context.Background(), adminAda, ticket.ID, domain.TicketStatusResolved)
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Errorf("code = %s, want VALIDATION_FAILED; RESOLVED requires the resolve operation", got)
	}
}

func TestViewDenialMatchesMissingTicket(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})

	_, deniedErr := env.svc.GetTicket(context.Background(), userBob, ticket.ID)
	_, missingErr := env.svc.GetTicket(context.Background(), userBob, "no-such-id")

	deniedCode := errCode(t, deniedErr)
	missingCode := errCode(t, missingErr)
	if deniedCode != "NOT_FOUND" || missingCode != "NOT_FOUND" {
		t.Fatalf("codes = %s/%s, want NOT_FOUND for both", deniedCode, missingCode)
	}
	if deniedErr.Error() != missingErr.Error() {
		// Messages must not leak existence either.
		var denied, missing *apperrors.DomainError
		errors.As(deniedErr, &denied)
		errors.As(missingErr, &missing)
		if denied.Message != missing.Message {
			t.Errorf("denial message %q differs from missing message %q", denied.Message, missing.Message)
		}
	}
}

func TestDeleteAttemptsEveryObject(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{
		Title:       "t",
		Description: "d",
		Attachments: []AttachmentInput{
			{Name: "a.png", FileKey: "attachments/a"},
			{Name: "b.png", FileKey: "attachments/b"},
		},
	})
	if _, err := env.svc.Assign(context.Background(), adminAda, ticket.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.svc.Resolve(context.Background(), workerWendy, ticket.ID, "replaced the faulty part",
		[]AttachmentInput{{Name: "c.png", FileKey: "attachments/c"}}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	env.deleter.failKeys["attachments/b"] = true

	if err := env.svc.Delete(context.Background(), adminAda, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(env.deleter.deleted) != 3 {
		t.Errorf("object deletes attempted = %d, want 3 (failures must not short-circuit)", len(env.deleter.deleted))
	}
	if _, err := env.tickets.GetByID(context.Background(), ticket.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Error("ticket record survived delete despite object failure")
	}
}

func TestOnlyAdminDeletes(t *testing.T) {
	env := newTestEnv(t)
	ticket := mustCreate(t, env, userAlice, TicketCreateInput{Title: "t", Description: "d"})

	if err := env.svc.Delete(context.Background(), userAlice, ticket.ID); errCode(t, err) != "FORBIDDEN" {
		t.Error("creator delete should be FORBIDDEN")
	}
	if err := env.svc.Delete(context.Background(), workerWendy, ticket.ID); errCode(t, err) != "FORBIDDEN" {
		t.Error("worker delete should be FORBIDDEN")
	}
}

// TestTicketLifecycleEndToEnd walks the full happy path: a user reports a
// printer jam, an admin assigns a worker, the thread carries the diagnosis,
// the worker resolves with a photo, and the user confirms closure.
func TestTicketLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := mustCreate(t, env, userAlice, TicketCreateInput{
		Title:       "Printer jam on floor 3",
		Description: "Paper keeps jamming in tray two of the HP in the copy room",
		Priority:    domain.TicketPriorityHigh,
		Category:    domain.TicketCategoryHardware,
	})

	if _, err := env.svc.Assign(ctx, adminAda, ticket.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := env.svc.AddMessage(ctx, workerWendy, ticket.ID, "On my way; which tray exactly?"); err != nil {
		t.Fatalf("worker message: %v", err)
	}
	if _, err := env.svc.AddMessage(ctx, userAlice, ticket.ID, "Tray two, the lower one."); err != nil {
		t.Fatalf("creator message: %v", err)
	}

	resolved, err := env.svc.Resolve(ctx, workerWendy, ticket.ID,
		"Removed the torn sheet and realigned the feed rollers",
		[]AttachmentInput{{Name: "rollers.jpg", FileKey: "attachments/rollers"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved.Messages) != 2 {
		t.Errorf("thread length = %d, want 2", len(resolved.Messages))
	}

	closed, err := env.svc.Close(ctx, userAlice, ticket.ID)
	if err != nil {
		t.Fatalf("creator confirm close: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Fatalf("final status = %s, want CLOSED", closed.Status)
	}

	if _, err := env.svc.AddMessage(ctx, userAlice, ticket.ID, "thanks!"); err == nil {
		t.Error("closed ticket accepted a message")
	}
}

func TestListTicketsScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	mine := mustCreate(t, env, userAlice, TicketCreateInput{Title: "mine", Description: "d"})
	other := mustCreate(t, env, userBob, TicketCreateInput{Title: "other", Description: "d"})
	if _, err := env.svc.Assign(context.Background(), adminAda, other.ID, workerWendy.UID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	aliceList, err := env.svc.ListTickets(context.Background(), userAlice, TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(aliceList) != 1 || aliceList[0].ID != mine.ID {
		t.Errorf("alice sees %d tickets, want only her own", len(aliceList))
	}

	wendyList, err := env.svc.ListTickets(context.Background(), workerWendy, TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(wendyList) != 1 || wendyList[0].ID != other.ID {
		t.Errorf("wendy sees %d tickets, want only assignments", len(wendyList))
	}

	adminList, err := env.svc.ListTickets(context.Background(), adminAda, TicketListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(adminList) != 2 {
		t.Errorf("admin sees %d tickets, want all", len(adminList))
	}
}
