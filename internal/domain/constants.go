package domain

// Deposit rails.
const (
	MethodBank   = "bank"
	MethodCrypto = "crypto"
	MethodCard   = "card"
	MethodMomo   = "momo"
)

// Payment statuses. SUCCESS and FAILED are terminal; CANCELLED may still
// be finalized by a late provider confirmation.
const (
	StatusPending   = "PENDING"
	StatusCancelled = "CANCELLED"
	StatusSuccess   = "SUCCESS"
	StatusFailed    = "FAILED"
)

// Ledger audit record attributes.
const (
	ChannelWallet = "wallet"
	KindDeposit   = "deposit"
)

// TxRefPrefix returns the reference prefix for a rail. References are
// externally visible, so the prefix encodes the rail for support tooling.
func TxRefPrefix(method string) string {
	switch method {
	case MethodBank:
		return "DEP-BNK-"
	case MethodCrypto:
		return "DEP-CRY-"
	case MethodCard:
		return "DEP-CRD-"
	case MethodMomo:
		return "DEP-MOM-"
	default:
		return "DEP-"
	}
}

// IsMethod reports whether m names a supported deposit rail.
func IsMethod(m string) bool {
	switch m {
	case MethodBank, MethodCrypto, MethodCard, MethodMomo:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether a payment status permits no further transition.
func IsTerminal(status string) bool {
	return status == StatusSuccess || status == StatusFailed
}
