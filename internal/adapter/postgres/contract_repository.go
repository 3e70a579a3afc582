package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pestpro/pestpro/internal/domain"
)

const contractColumns = `id, client_id, service_types, last_service_date, due_date, amount,
	frequency_days, notes, completed, completed_at, created_at, updated_at`

type ContractRepo struct {
	pool *pgxpool.Pool
}

func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool}
}

func scanContract(row pgx.Row) (*domain.Contract, error) {
	var (
		c           domain.Contract
		services    []string
		frequency   int
		completedAt *time.Time
	)
	err := row.Scan(
		&c.ID, &c.ClientID, &services, &c.LastServiceDate, &c.DueDate, &c.Amount,
		&frequency, &c.Notes, &c.Completed, &completedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Frequency = domain.Frequency(frequency)
	c.ServiceTypes = make([]domain.ServiceType, len(services))
	for i, s := range services {
		c.ServiceTypes[i] = domain.ServiceType(s)
	}
	if completedAt != nil {
		c.CompletedAt = *completedAt
	}
	return &c, nil
}

func serviceStrings(types []domain.ServiceType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func (r *ContractRepo) Create(ctx context.Context, contract *domain.Contract) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contracts (id, client_id, service_types, last_service_date, due_date, amount,
			frequency_days, notes, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		contract.ID, contract.ClientID, serviceStrings(contract.ServiceTypes),
		contract.LastServiceDate, contract.DueDate, contract.Amount,
		int(contract.Frequency), contract.Notes, contract.Completed,
		contract.CreatedAt, contract.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

func (r *ContractRepo) GetByID(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id = $1`, contractID)
	contract, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrContractNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract by ID: %w", err)
	}
	return contract, nil
}

func (r *ContractRepo) List(ctx context.Context) ([]*domain.Contract, error) {
	return r.query(ctx, `SELECT `+contractColumns+` FROM contracts ORDER BY due_date`)
}

func (r *ContractRepo) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.Contract, error) {
	return r.query(ctx, `SELECT `+contractColumns+` FROM contracts WHERE client_id = $1 ORDER BY due_date`, clientID)
}

func (r *ContractRepo) ListOpenRecurring(ctx context.Context) ([]*domain.Contract, error) {
	return r.query(ctx, `SELECT `+contractColumns+` FROM contracts
		WHERE NOT completed AND frequency_days > 0 ORDER BY due_date`)
}

func (r *ContractRepo) MarkCompleted(ctx context.Context, contractID uuid.UUID, completedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contracts
		SET completed = TRUE, completed_at = $2, updated_at = $2
		WHERE id = $1 AND NOT completed`,
		contractID, completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark contract completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish an unknown contract from a double completion.
		if _, err := r.GetByID(ctx, contractID); err != nil {
			return err
		}
		return domain.ErrContractCompleted
	}
	return nil
}

func (r *ContractRepo) query(ctx context.Context, sql string, args ...any) ([]*domain.Contract, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*domain.Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read contracts: %w", err)
	}
	return contracts, nil
}
