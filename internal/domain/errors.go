package domain

import "errors"

var (
	ErrClientNotFound     = errors.New("client not found")
	ErrContractNotFound   = errors.New("contract not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrContractCompleted  = errors.New("contract is already completed")
	ErrContractNotDerived = errors.New("one-time contracts cannot derive a follow-up")
)
