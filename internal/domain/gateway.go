package domain

// GatewayVariant identifies which external gateway protocol governs a
// transaction. The set is closed: behavior is selected by switching on the
// variant, never by looking up provider strings at runtime.
type GatewayVariant string

const (
	// VariantMellat is the Behpardakht Mellat bank gateway (SOAP, two-phase
	// verify + settle confirmation).
	VariantMellat GatewayVariant = "mellat"

	// VariantZarinpal is the ZarinPal payment aggregator (REST, single-phase
	// verify confirmation).
	VariantZarinpal GatewayVariant = "zarinpal"
)

// GatewayResult is the parsed outcome of one gateway round trip (pay, verify,
// settle, inquiry, reversal or token request). It is ephemeral: it never
// outlives the reconciliation step that consumed it.
type GatewayResult struct {
	// Code is the gateway's result code ("0" means success for Mellat;
	// "100"/"101" mean success for ZarinPal).
	Code string

	// Raw is the unparsed response payload, kept for logging.
	Raw string

	// Fields holds positional or named payload values beyond the code
	// (e.g. Mellat's RefId on a successful pay request, ZarinPal's ref_id).
	Fields map[string]string
}

// Field returns a payload field, or "" when absent.
func (r *GatewayResult) Field(key string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// CallbackData is the normalized, variant-tagged payload of an inbound
// gateway callback, extracted by the HTTP handler before validation.
type CallbackData struct {
	Variant GatewayVariant

	// Mellat POST form fields.
	RefID           string
	ResCode         string
	SaleOrderID     string
	SaleReferenceID string

	// ZarinPal GET query fields.
	Authority string
	Status    string
}

// InitiationResult is returned when a draft transaction has been successfully
// registered with a gateway. RedirectURL is the hosted payment page the payer
// must be sent to; it is an explicit value, never ambient state.
type InitiationResult struct {
	AcquirerReference string
	RedirectURL       string
}

// CustomerMetadata carries optional payer contact details forwarded to the
// gateway. Both fields may be empty, in which case metadata is omitted from
// the request entirely.
type CustomerMetadata struct {
	PartnerID   string
	PartnerName string
	Phone       string
	Email       string
}
