package flowstream

// Wire header names for the payment-required handshake. The provider
// middleware advertises terms with the response headers; the negotiator
// attaches HeaderStream to retried requests.
const (
	// HeaderStream carries the stream reference on paid requests.
	HeaderStream = "X-Payment-Stream"

	// Response headers advertising payment terms on a 402.
	HeaderMode      = "X-Payment-Mode"
	HeaderRate      = "X-Payment-Rate"
	HeaderRecipient = "X-Payment-Recipient"
	HeaderToken     = "X-Payment-Token"
)

// ModeStreaming is the only payment mode FlowStream speaks. Providers may
// advertise others; negotiators fail fast on them rather than approximate.
const ModeStreaming = "streaming"
