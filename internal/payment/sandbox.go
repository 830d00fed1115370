package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// Sandbox is an in-memory Provider used in development environments
// where no real payment platform is reachable.  Every charge succeeds
// synchronously and refunds are validated against recorded charges, so
// the purchase and refund flows can be exercised end to end.
type Sandbox struct {
	mu      sync.Mutex
	charges map[string]sandboxCharge // charge ref -> recorded charge
}

type sandboxCharge struct {
	amountCents   int64
	refundedCents int64
	accountID     string
}

// NewSandbox returns an empty sandbox provider.
func NewSandbox() *Sandbox {
	return &Sandbox{charges: make(map[string]sandboxCharge)}
}

// CloneMethod returns a new account-scoped method reference.
func (s *Sandbox) CloneMethod(_ context.Context, methodRef, accountID string) (string, error) {
	if methodRef == "" {
		return "", fmt.Errorf("sandbox: empty payment method ref")
	}
	return "pm_" + randomRef(), nil
}

// Charge records the charge and settles it immediately.
func (s *Sandbox) Charge(_ context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.AmountCents <= 0 {
		return ChargeResult{}, fmt.Errorf("sandbox: non-positive charge amount %d", req.AmountCents)
	}
	ref := "ch_" + randomRef()
	s.mu.Lock()
	s.charges[ref] = sandboxCharge{amountCents: req.AmountCents, accountID: req.AccountID}
	s.mu.Unlock()
	return ChargeResult{Status: ChargeSucceeded, ChargeRef: ref}, nil
}

// Refund validates the request against the recorded charge and returns
// a refund reference.  Refunding more than the remaining balance fails
// the way a real provider would.
func (s *Sandbox) Refund(_ context.Context, req RefundRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.charges[req.ChargeRef]
	if !ok {
		return "", fmt.Errorf("sandbox: unknown charge %s", req.ChargeRef)
	}
	if req.AmountCents <= 0 || ch.refundedCents+req.AmountCents > ch.amountCents {
		return "", fmt.Errorf("sandbox: refund of %d exceeds remaining balance on %s", req.AmountCents, req.ChargeRef)
	}
	ch.refundedCents += req.AmountCents
	s.charges[req.ChargeRef] = ch
	return "re_" + randomRef(), nil
}

func randomRef() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
