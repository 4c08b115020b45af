package gateway

import (
	"context"
	"time"
)

// PaymentGateway defines the outbound contract with the payment gateway.
// Webhook and client-return data are hints; VerifyTransaction is the source
// of truth a confirmation must pass through before an enrollment turns PAID.
type PaymentGateway interface {
	// VerifyTransaction fetches the authoritative transaction status by tid
	// or merchant order id.
	VerifyTransaction(ctx context.Context, ref TransactionRef) (*TransactionStatus, error)

	// RequestRefund performs a (possibly partial) cancel against a settled
	// transaction.
	RequestRefund(ctx context.Context, req *RefundRequest) (*RefundResult, error)

	// Name returns the gateway name.
	Name() string
}

// TransactionRef identifies a gateway transaction by tid or moid.
// TID wins when both are present.
type TransactionRef struct {
	TID  string
	Moid string
}

// TransactionStatus is the authoritative state of a gateway transaction.
type TransactionStatus struct {
	TID       string                 `json:"tid"`
	Moid      string                 `json:"moid"`
	Amount    int64                  `json:"amount"`
	Paid      bool                   `json:"paid"`
	StatusCd  string                 `json:"status_cd"`
	PayMethod string                 `json:"pay_method,omitempty"`
	PaidAt    *time.Time             `json:"paid_at,omitempty"`
	Raw       map[string]interface{} `json:"raw,omitempty"`
}

// RefundRequest asks the gateway to cancel all or part of a transaction.
type RefundRequest struct {
	TID     string `json:"tid"`
	Moid    string `json:"moid"`
	Amount  int64  `json:"amount"`
	Partial bool   `json:"partial"`
	Reason  string `json:"reason"`
}

// RefundResult is the gateway response to a refund request.
type RefundResult struct {
	CancelTID  string                 `json:"cancel_tid"`
	CanceledAt time.Time              `json:"canceled_at"`
	Raw        map[string]interface{} `json:"raw,omitempty"`
}

// CallbackResult is the channel-agnostic view of an inbound confirmation
// signal (webhook payload or client return parameters).
type CallbackResult struct {
	Success      bool                   `json:"success"`
	TID          string                 `json:"tid"`
	Moid         string                 `json:"moid"`
	Amount       int64                  `json:"amount"`
	ResultCd     string                 `json:"result_cd"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	PayMethod    string                 `json:"pay_method,omitempty"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
}

// Error types for gateway operations
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *GatewayError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
