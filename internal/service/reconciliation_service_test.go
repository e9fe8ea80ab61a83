package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/techne-institute/cohort-portal-api/internal/models"
	"github.com/techne-institute/cohort-portal-api/internal/payment"
	appErrors "github.com/techne-institute/cohort-portal-api/pkg/errors"
)

type reconcileFixture struct {
	store    *fakeEnrollmentStore
	users    *fakeUserStore
	notifier *fakeNotifier
	events   *fakeEventLog
	svc      *ReconciliationService
}

func newReconcileFixture(users ...*models.User) *reconcileFixture {
	f := &reconcileFixture{
		store:    newFakeEnrollmentStore(),
		users:    newFakeUserStore(users...),
		notifier: &fakeNotifier{},
		events:   &fakeEventLog{},
	}
	accounts := NewAccountService(f.users, zap.NewNop())
	f.svc = NewReconciliationService(f.store, accounts, f.notifier, f.events, NewMetricsService(), zap.NewNop(), ReconciliationConfig{
		AppURL: "https://techne.institute/",
	})
	return f
}

func completed(eventID, email, offerID string) *payment.CheckoutCompleted {
	return &payment.CheckoutCompleted{EventID: eventID, SessionID: "cs_" + eventID, Email: email, OfferID: offerID, OfferSlug: "spring-2026"}
}

func TestReconcileFirstDeliveryAndRedelivery(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()

	outcome, err := f.svc.Handle(ctx, completed("evt_1", "a@x.io", "C1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)

	user, err := f.users.FindByEmail(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.True(t, user.EmailConfirmed)

	enrollment, err := f.store.FindByEventID(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, enrollment.UserID)
	assert.Equal(t, "C1", enrollment.OfferID)
	assert.Equal(t, "cs_evt_1", enrollment.CheckoutSessionID)

	require.Equal(t, 1, f.notifier.count())
	assert.Equal(t, "a@x.io", f.notifier.calls[0].email)
	assert.Equal(t, "https://techne.institute/auth/callback?next=%2Fcohort", f.notifier.calls[0].redirect)

	outcome, err = f.svc.Handle(ctx, completed("evt_1", "a@x.io", "C1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, f.store.count())
	assert.Equal(t, 1, f.users.createCount())
	assert.Equal(t, 1, f.notifier.count())
}

func TestReconcileConcurrentDeliveriesEnrollOnce(t *testing.T) {
	f := newReconcileFixture()
	gate := &sync.WaitGroup{}
	gate.Add(2)
	f.store.insertGate = gate

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = f.svc.Handle(context.Background(), completed("evt_1", "a@x.io", "C1"))
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.ElementsMatch(t, []Outcome{OutcomeCommitted, OutcomeRaced}, outcomes)
	assert.Equal(t, 1, f.store.count())
	assert.Equal(t, 1, f.users.createCount())
	assert.Equal(t, 1, f.notifier.count())
}

func TestReconcileReusesExistingUser(t *testing.T) {
	existing := &models.User{ID: "U-existing", Email: "a@x.io", Role: models.RoleStudent, Active: true}
	f := newReconcileFixture(existing)

	outcome, err := f.svc.Handle(context.Background(), completed("evt_2", "a@x.io", "C2"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
	assert.Equal(t, 0, f.users.createCount())

	enrollment, err := f.store.FindByEventID(context.Background(), "evt_2")
	require.NoError(t, err)
	assert.Equal(t, "U-existing", enrollment.UserID)
}

func TestReconcileAlreadyEnrolledSucceeds(t *testing.T) {
	existing := &models.User{ID: "U1", Email: "a@x.io", Active: true}
	f := newReconcileFixture(existing)
	ctx := context.Background()

	_, err := f.svc.Handle(ctx, completed("evt_1", "a@x.io", "C1"))
	require.NoError(t, err)

	outcome, err := f.svc.Handle(ctx, completed("evt_2", "a@x.io", "C1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyEnrolled, outcome)
	assert.Equal(t, 1, f.store.count())
	assert.Equal(t, 2, f.notifier.count())
}

func TestReconcileMissingFields(t *testing.T) {
	cases := map[string]*payment.CheckoutCompleted{
		"no offer": completed("evt_3", "a@x.io", ""),
		"no email": completed("evt_4", "", "C1"),
		"no id":    completed("", "a@x.io", "C1"),
	}
	for name, evt := range cases {
		t.Run(name, func(t *testing.T) {
			f := newReconcileFixture()
			_, err := f.svc.Handle(context.Background(), evt)
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrMalformedEvent))
			assert.Equal(t, 0, f.store.count())
			assert.Equal(t, 0, f.users.createCount())
			assert.Equal(t, 0, f.notifier.count())
		})
	}
}

func TestReconcileNotificationFailureIsNotFatal(t *testing.T) {
	f := newReconcileFixture()
	f.notifier.err = errors.New("smtp unavailable")

	outcome, err := f.svc.Handle(context.Background(), completed("evt_5", "a@x.io", "C1"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
	assert.Equal(t, 1, f.store.count())
	assert.Equal(t, 1, f.notifier.count())
}

func TestReconcileStorageFailures(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		f := newReconcileFixture()
		f.store.findErr = errors.New("connection refused")
		_, err := f.svc.Handle(context.Background(), completed("evt_6", "a@x.io", "C1"))
		assert.True(t, appErrors.Is(err, appErrors.ErrStorage))
		assert.Equal(t, 0, f.users.createCount())
	})
	t.Run("insert", func(t *testing.T) {
		f := newReconcileFixture()
		f.store.insertErr = errors.New("disk full")
		_, err := f.svc.Handle(context.Background(), completed("evt_6", "a@x.io", "C1"))
		assert.True(t, appErrors.Is(err, appErrors.ErrStorage))
		assert.Equal(t, 0, f.notifier.count())
	})
	t.Run("provisioning", func(t *testing.T) {
		f := newReconcileFixture()
		f.users.createErr = errors.New("auth backend down")
		_, err := f.svc.Handle(context.Background(), completed("evt_6", "a@x.io", "C1"))
		assert.True(t, appErrors.Is(err, appErrors.ErrProvisioningFailed))
		assert.Equal(t, 0, f.store.count())
	})
}

func TestReconcileIgnoredEventTouchesNothing(t *testing.T) {
	f := newReconcileFixture()

	outcome, err := f.svc.Handle(context.Background(), &payment.Ignored{EventID: "evt_7", EventType: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, 0, f.store.storageCalls())
	assert.Equal(t, 0, f.notifier.count())
}

func TestProcessRecordsWebhookLog(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()

	_, err := f.svc.Process(ctx, completed("evt_8", "a@x.io", "C1"), []byte(`{}`))
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, completed("evt_9", "", "C1"), []byte(`{}`))
	require.Error(t, err)

	assert.Equal(t, []string{"evt_8", "evt_9"}, f.events.received)
	assert.Equal(t, "", f.events.processed["evt_8"])
	assert.Contains(t, f.events.processed["evt_9"], "missing cohort id")
}

func TestProcessSkipsWebhookLogForIgnoredEvents(t *testing.T) {
	f := newReconcileFixture()

	outcome, err := f.svc.Process(context.Background(), &payment.Ignored{EventID: "evt_11", EventType: "invoice.paid"}, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Empty(t, f.events.received)
	assert.Empty(t, f.events.processed)
	assert.Equal(t, 0, f.store.storageCalls())
}

func TestProcessIgnoresWebhookLogFailures(t *testing.T) {
	f := newReconcileFixture()
	f.events.recordErr = errors.New("audit table missing")

	outcome, err := f.svc.Process(context.Background(), completed("evt_10", "a@x.io", "C1"), nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
}
