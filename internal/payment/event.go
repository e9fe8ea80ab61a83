package payment

// Provider is the name recorded alongside provider event ids.
const Provider = "stripe"

// Metadata keys attached to checkout sessions.
const (
	MetadataOfferID   = "cohort_id"
	MetadataOfferSlug = "cohort_slug"
)

const eventCheckoutCompleted = "checkout.session.completed"

// Event is a verified provider event. Its concrete type is either
// *CheckoutCompleted or *Ignored.
type Event interface {
	// ID is the provider event id, unique per event across redeliveries.
	ID() string
	// Type is the provider event type.
	Type() string
	isEvent()
}

// CheckoutCompleted reports a finished hosted checkout, paid or fully discounted.
type CheckoutCompleted struct {
	EventID     string
	SessionID   string
	Email       string
	OfferID     string
	OfferSlug   string
	AmountTotal int64
	Currency    string
}

func (e *CheckoutCompleted) ID() string   { return e.EventID }
func (e *CheckoutCompleted) Type() string { return eventCheckoutCompleted }
func (*CheckoutCompleted) isEvent()       {}

// Ignored is any event type the portal acknowledges without acting on.
type Ignored struct {
	EventID   string
	EventType string
}

func (e *Ignored) ID() string   { return e.EventID }
func (e *Ignored) Type() string { return e.EventType }
func (*Ignored) isEvent()       {}
