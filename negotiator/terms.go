package negotiator

import (
	"fmt"
	"net/http"

	"github.com/xraph/flowstream"
	"github.com/xraph/flowstream/types"
)

// Wire constants, shared with the provider middleware.
const (
	HeaderStream    = flowstream.HeaderStream
	HeaderMode      = flowstream.HeaderMode
	HeaderRate      = flowstream.HeaderRate
	HeaderRecipient = flowstream.HeaderRecipient
	HeaderToken     = flowstream.HeaderToken

	// ModeStreaming is the only payment mode this negotiator supports.
	// Other modes fail fast; they are never approximated.
	ModeStreaming = flowstream.ModeStreaming
)

// Terms are the payment conditions advertised by a provider on a 402
// response.
type Terms struct {
	Mode      string
	Rate      types.Amount // value per second, smallest units
	Recipient types.Address
	Token     string
}

// ParseTerms extracts payment terms from a 402 response's headers.
//
// The recipient must be explicit. Some providers conflate the settlement
// target with the token identifier; that is never accepted here. A missing
// recipient header is ErrMalformedPaymentTerms, not a guess.
func ParseTerms(h http.Header, defaultToken string) (Terms, error) {
	mode := h.Get(HeaderMode)
	if mode == "" {
		return Terms{}, fmt.Errorf("%w: missing %s header", flowstream.ErrMalformedPaymentTerms, HeaderMode)
	}
	if mode != ModeStreaming {
		return Terms{}, fmt.Errorf("%w: %q", flowstream.ErrUnsupportedPaymentMode, mode)
	}

	recipient := h.Get(HeaderRecipient)
	if recipient == "" {
		return Terms{}, fmt.Errorf("%w: missing %s header", flowstream.ErrMalformedPaymentTerms, HeaderRecipient)
	}

	token := h.Get(HeaderToken)
	if token == "" {
		token = defaultToken
	}

	rawRate := h.Get(HeaderRate)
	if rawRate == "" {
		return Terms{}, fmt.Errorf("%w: missing %s header", flowstream.ErrMalformedPaymentTerms, HeaderRate)
	}

	rate, err := types.ParseDecimal(rawRate, token)
	if err != nil {
		return Terms{}, fmt.Errorf("%w: rate %q: %v", flowstream.ErrMalformedPaymentTerms, rawRate, err)
	}
	if !rate.IsPositive() {
		return Terms{}, fmt.Errorf("%w: rate must be positive, got %q", flowstream.ErrMalformedPaymentTerms, rawRate)
	}

	return Terms{
		Mode:      mode,
		Rate:      rate,
		Recipient: types.NormalizeAddress(recipient),
		Token:     token,
	}, nil
}
