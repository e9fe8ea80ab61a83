package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/internal/payment"
	"github.com/techne-institute/cohort-portal-api/internal/repository"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
	"github.com/techne-institute/cohort-portal-api/pkg/jobs"
	"github.com/techne-institute/cohort-portal-api/pkg/mailer"
)

// fakeEnrollmentStore enforces the same unique constraints as the schema.
type fakeEnrollmentStore struct {
	mu        sync.Mutex
	byEvent   map[string]models.Enrollment
	userOffer map[string]bool
	findErr   error
	insertErr error
	// insertGate, when set, holds every Insert until all callers arrive.
	insertGate *sync.WaitGroup
	calls      int32
	listItems  []models.EnrollmentDetail
	listTotal  int
	lastFilter models.EnrollmentFilter
}

func newFakeEnrollmentStore() *fakeEnrollmentStore {
	return &fakeEnrollmentStore{byEvent: map[string]models.Enrollment{}, userOffer: map[string]bool{}}
}

func (f *fakeEnrollmentStore) FindByEventID(ctx context.Context, eventID string) (*models.Enrollment, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.byEvent[eventID]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentStore) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	atomic.AddInt32(&f.calls, 1)
	if f.insertGate != nil {
		f.insertGate.Done()
		f.insertGate.Wait()
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEvent[enrollment.PaymentEventID]; ok {
		return repository.ErrDuplicateEvent
	}
	key := enrollment.UserID + "/" + enrollment.OfferID
	if f.userOffer[key] {
		return repository.ErrDuplicateEnrollment
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	f.byEvent[enrollment.PaymentEventID] = *enrollment
	f.userOffer[key] = true
	return nil
}

func (f *fakeEnrollmentStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	f.lastFilter = filter
	if f.findErr != nil {
		return nil, 0, f.findErr
	}
	return f.listItems, f.listTotal, nil
}

func (f *fakeEnrollmentStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byEvent)
}

func (f *fakeEnrollmentStore) storageCalls() int {
	return int(atomic.LoadInt32(&f.calls))
}

// fakeUserStore is keyed by email with a unique constraint on it.
type fakeUserStore struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	findErr   error
	createErr error
	creates   int
	lastLogin map[string]time.Time
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	f := &fakeUserStore{byEmail: map[string]*models.User{}, lastLogin: map[string]time.Time{}}
	for _, u := range users {
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byEmail[email]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[user.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	copy := *user
	f.byEmail[user.Email] = &copy
	f.creates++
	return nil
}

func (f *fakeUserStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLogin[id] = ts
	return nil
}

func (f *fakeUserStore) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

type inviteCall struct {
	email    string
	redirect string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []inviteCall
	err   error
}

func (f *fakeNotifier) SendAccessInvite(ctx context.Context, email, redirectTo string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inviteCall{email: email, redirect: redirectTo})
	if f.err != nil {
		return f.err
	}
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeEventLog struct {
	received  []string
	processed map[string]string
	recordErr error
}

func (f *fakeEventLog) RecordReceived(ctx context.Context, provider, eventID, eventType string, payload []byte) (int, error) {
	if f.recordErr != nil {
		return 0, f.recordErr
	}
	f.received = append(f.received, eventID)
	return len(f.received), nil
}

func (f *fakeEventLog) MarkProcessed(ctx context.Context, provider, eventID, processingError string) error {
	if f.processed == nil {
		f.processed = map[string]string{}
	}
	f.processed[eventID] = processingError
	return nil
}

type fakeGateway struct {
	requests []payment.CheckoutRequest
	session  *payment.Session
	err      error
	getErr   error
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.Session, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.session != nil {
		return f.session, nil
	}
	return &payment.Session{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (f *fakeGateway) GetSession(ctx context.Context, id string) (*payment.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.session != nil {
		return f.session, nil
	}
	return nil, payment.ErrSessionNotFound
}

type fakeOfferRepo struct {
	offers    map[string]*models.Offer
	err       error
	slugCalls int
	listCalls int
}

func (f *fakeOfferRepo) FindBySlug(ctx context.Context, slug string) (*models.Offer, error) {
	f.slugCalls++
	if f.err != nil {
		return nil, f.err
	}
	if o, ok := f.offers[slug]; ok {
		copy := *o
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeOfferRepo) ListActive(ctx context.Context) ([]models.Offer, error) {
	f.listCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Offer
	for _, o := range f.offers {
		if o.IsActive {
			out = append(out, *o)
		}
	}
	return out, nil
}

// fakeCacheRepo stores JSON the way the Redis repository does.
type fakeCacheRepo struct {
	items map[string][]byte
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if f.items == nil {
		f.items = map[string][]byte{}
	}
	f.items[key] = raw
	return nil
}

func (f *fakeCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.items, k)
	}
	return nil
}

type fakeDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeClaimer struct {
	mu   sync.Mutex
	used map[string]bool
	err  error
}

func (f *fakeClaimer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.used == nil {
		f.used = map[string]bool{}
	}
	if f.used[key] {
		return false, nil
	}
	f.used[key] = true
	return true, nil
}

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func errNoRows() error { return sql.ErrNoRows }
