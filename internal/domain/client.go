package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Client is a customer record. The ID is unique and stable once assigned;
// ActiveContracts is maintained by the contract create/complete flows.
type Client struct {
	ID              uuid.UUID
	Name            string
	Company         string
	Email           string
	Phone           string
	Gender          string
	Address         string
	PinCode         string
	Notes           string
	ActiveContracts int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ClientRepository abstracts client persistence.
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	GetByID(ctx context.Context, clientID uuid.UUID) (*Client, error)
	GetByEmail(ctx context.Context, email string) (*Client, error)
	List(ctx context.Context) ([]*Client, error)
	AdjustActiveContracts(ctx context.Context, clientID uuid.UUID, delta int) error
}
