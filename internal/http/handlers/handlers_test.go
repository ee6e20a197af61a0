package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"donation-server/internal/domain"
	"donation-server/internal/notify"
	"donation-server/internal/service/audit"
	"donation-server/internal/service/donation"
)

// Shared in-memory fakes for handler tests. Only the methods the tests
// exercise have real behavior.

const (
	testCategoryID = "11111111-1111-1111-1111-111111111111"
	testOperatorID = "22222222-2222-2222-2222-222222222222"
	testAdminID    = "33333333-3333-3333-3333-333333333333"
)

type memUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	r := &memUserRepo{byEmail: map[string]*domain.User{}, byID: map[string]*domain.User{}}
	for _, u := range users {
		r.byEmail[strings.ToLower(u.Email)] = u
		r.byID[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if _, ok := r.byEmail[strings.ToLower(u.Email)]; ok {
		return nil, domain.ErrAlreadyExists
	}
	out := *u
	out.ID = uuid.NewString()
	r.byEmail[strings.ToLower(out.Email)] = &out
	r.byID[out.ID] = &out
	return &out, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := r.byID[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.byEmail[strings.ToLower(email)]; ok {
		out := *u
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memUserRepo) List(context.Context) ([]domain.User, error) { return nil, nil }

func (r *memUserRepo) Update(context.Context, string, domain.UserUpdate) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

type memCategoryRepo struct {
	byID map[string]*domain.Category
}

func newMemCategoryRepo(categories ...*domain.Category) *memCategoryRepo {
	r := &memCategoryRepo{byID: map[string]*domain.Category{}}
	for _, c := range categories {
		r.byID[c.ID] = c
	}
	return r
}

func (r *memCategoryRepo) Create(_ context.Context, c *domain.Category) (*domain.Category, error) {
	out := *c
	out.ID = uuid.NewString()
	r.byID[out.ID] = &out
	return &out, nil
}

func (r *memCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	if c, ok := r.byID[id]; ok {
		out := *c
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memCategoryRepo) List(context.Context, *bool) ([]domain.Category, error) { return nil, nil }

func (r *memCategoryRepo) Update(context.Context, string, domain.CategoryUpdate) (*domain.Category, error) {
	return nil, domain.ErrNotFound
}

type memDonationRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.Donation
	nextNo int
}

func newMemDonationRepo(donations ...*domain.Donation) *memDonationRepo {
	r := &memDonationRepo{byID: map[string]*domain.Donation{}}
	for _, d := range donations {
		r.byID[d.ID] = d
	}
	return r
}

func (r *memDonationRepo) Create(_ context.Context, d *domain.Donation) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextNo++
	out := *d
	out.ID = uuid.NewString()
	out.ReceiptNo = fmt.Sprintf("RCPT-2026-%06d", r.nextNo)
	out.CreatedAt = time.Now()
	out.UpdatedAt = out.CreatedAt
	r.byID[out.ID] = &out
	return &out, nil
}

func (r *memDonationRepo) GetByID(_ context.Context, id string) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		out := *d
		return &out, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memDonationRepo) List(_ context.Context, filter domain.DonationFilter) ([]domain.Donation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []domain.Donation
	for _, d := range r.byID {
		if !filter.IncludeDeleted && d.Deleted() {
			continue
		}
		if filter.OperatorID != "" && d.OperatorID != filter.OperatorID {
			continue
		}
		items = append(items, *d)
	}
	return items, int64(len(items)), nil
}

func (r *memDonationRepo) Update(_ context.Context, id string, upd domain.DonationUpdate) (*domain.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.DonorName != nil {
		d.DonorName = *upd.DonorName
	}
	if upd.DonorPhone != nil {
		if *upd.DonorPhone == "" {
			d.DonorPhone = nil
		} else {
			v := *upd.DonorPhone
			d.DonorPhone = &v
		}
		d.WhatsAppSent = false
	}
	if upd.DonorEmail != nil {
		if *upd.DonorEmail == "" {
			d.DonorEmail = nil
		} else {
			v := *upd.DonorEmail
			d.DonorEmail = &v
		}
		d.EmailSent = false
	}
	if upd.AmountCents != nil {
		d.AmountCents = *upd.AmountCents
	}
	out := *d
	return &out, nil
}

func (r *memDonationRepo) SetWhatsAppSent(_ context.Context, id string, sent bool) error {
	return r.setFlag(id, func(d *domain.Donation) { d.WhatsAppSent = sent })
}

func (r *memDonationRepo) SetEmailSent(_ context.Context, id string, sent bool) error {
	return r.setFlag(id, func(d *domain.Donation) { d.EmailSent = sent })
}

func (r *memDonationRepo) setFlag(id string, apply func(*domain.Donation)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	apply(d)
	return nil
}

func (r *memDonationRepo) SoftDelete(_ context.Context, id, actorID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok || d.Deleted() {
		return domain.ErrNotFound
	}
	now := time.Now()
	d.DeletedAt = &now
	d.DeletedReason = reason
	d.DeletedBy = &actorID
	return nil
}

func (r *memDonationRepo) Restore(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok || !d.Deleted() {
		return domain.ErrNotFound
	}
	d.DeletedAt = nil
	d.DeletedReason = ""
	d.DeletedBy = nil
	return nil
}

func (r *memDonationRepo) Stats(context.Context) (*domain.StatsSummary, error) {
	return &domain.StatsSummary{}, nil
}

type stubNotifier struct {
	err    error
	result notify.SendResult
	calls  int
}

func (s *stubNotifier) HasCredentials() bool { return true }

func (s *stubNotifier) SendConfirmation(context.Context, notify.Confirmation) (*notify.SendResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := s.result
	return &out, nil
}

type stubMailer struct {
	err   error
	calls int
}

func (s *stubMailer) HasCredentials() bool { return true }

func (s *stubMailer) SendReceipt(context.Context, notify.Receipt) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "email-1", nil
}

type testDeps struct {
	users      *memUserRepo
	categories *memCategoryRepo
	donations  *memDonationRepo
	notifier   *stubNotifier
	mailer     *stubMailer
}

func mustHash(password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}

func newTestApp() (*App, *testDeps) {
	deps := &testDeps{
		users: newMemUserRepo(
			&domain.User{
				ID: testAdminID, Email: "admin@example.com", Name: "Admin",
				PasswordHash: mustHash("admin-pass"), Role: domain.RoleAdmin, IsActive: true,
			},
			&domain.User{
				ID: testOperatorID, Email: "op@example.com", Name: "Operator",
				PasswordHash: mustHash("op-pass"), Role: domain.RoleOperator, IsActive: true,
			},
		),
		categories: newMemCategoryRepo(
			&domain.Category{ID: testCategoryID, Name: "General Fund", IsActive: true},
		),
		donations: newMemDonationRepo(),
		notifier:  &stubNotifier{},
		mailer:    &stubMailer{},
	}

	logger := zerolog.New(io.Discard)
	recorder := audit.NewRecorder(nil, nil, logger)
	intake := donation.NewService(deps.donations, deps.categories, deps.notifier, deps.mailer, recorder, logger, "Helping Hands")

	app := &App{
		Users:      deps.users,
		Categories: deps.categories,
		Donations:  deps.donations,
		Intake:     intake,
		Recorder:   recorder,
		Logger:     logger,
		JWTSecret:  "handler-test-secret",
	}
	return app, deps
}
