package repository

import (
	"context"
	"errors"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
)

var (
	ErrRecordNotFound = errors.New("delivery record not found")
	ErrSchemaMismatch = errors.New("record store schema mismatch")
)

// RecordStore reads and patches delivery records in the system of record.
// Every method maps to one round trip to the backing store; there is no
// retry and no version check, so concurrent writers are last-write-wins.
type RecordStore interface {
	List(ctx context.Context) ([]domain.DeliveryRecord, error)
	Get(ctx context.Context, id string) (*domain.DeliveryRecord, error)
	FindByToken(ctx context.Context, token string) (*domain.DeliveryRecord, error)
	MarkPending(ctx context.Context, id string, update domain.PendingUpdate) error
	MarkVerified(ctx context.Context, id string, update domain.VerifiedUpdate) error
}
