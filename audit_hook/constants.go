package audithook

// Action constants for audit events.
const (
	// Stream actions
	ActionStreamCreated   = "stream.created"
	ActionStreamWithdrawn = "stream.withdrawn"
	ActionStreamCanceled  = "stream.canceled"

	// Negotiation actions
	ActionPaymentRequired   = "payment.required"
	ActionPaymentNegotiated = "payment.negotiated"
)

// Resource constants for audit events.
const (
	ResourceStream      = "stream"
	ResourceNegotiation = "negotiation"
)

// Category constants for audit events.
const (
	CategoryPayment     = "payment"
	CategoryNegotiation = "negotiation"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
