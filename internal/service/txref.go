package service

import (
	"strings"

	"github.com/google/uuid"
	"github.com/nairatrade/deposits/internal/domain"
)

// NewTxRef generates the externally visible correlation token for a
// payment. The uuid backing makes it collision-resistant under concurrent
// creation; the payments table's unique index remains the final arbiter.
func NewTxRef(method string) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return domain.TxRefPrefix(method) + raw
}
