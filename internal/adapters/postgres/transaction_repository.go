package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paygate-ir/payment-service/internal/domain"
	"github.com/paygate-ir/payment-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements ports.TransactionRepository over pgx.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `
	id, reference, order_id, variant, state, state_message,
	amount::text, currency, acquirer_reference,
	mellat_sale_reference_id,
	zarinpal_tx_ref_id, zarinpal_masked_card, zarinpal_hashed_card,
	zarinpal_fee_type, zarinpal_fee,
	created_at, updated_at, completed_at`

// Create creates a new transaction in draft state
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_transactions (
			id, reference, order_id, variant, state, amount, currency, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, now(), now())`,
		tx.ID,
		tx.Reference,
		tx.OrderID,
		string(tx.Variant),
		string(tx.State),
		tx.Amount.String(),
		tx.Currency,
	)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// GetByReference retrieves a transaction by its business key
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM payment_transactions
		WHERE reference = $1`,
		reference,
	)

	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTxnNotFound.WithDetail("reference", reference)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by reference: %w", err)
	}
	return tx, nil
}

// FindByAcquirerReference returns every transaction recorded against a
// gateway identifier. Mellat RefIds match case-insensitively. All matches
// are returned so the caller can reject ambiguous callbacks.
func (r *TransactionRepository) FindByAcquirerReference(ctx context.Context, variant domain.GatewayVariant, acquirerRef string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE variant = $1 AND acquirer_reference = $2`
	if variant == domain.VariantMellat {
		query = `
		SELECT ` + transactionColumns + `
		FROM payment_transactions
		WHERE variant = $1 AND upper(acquirer_reference) = upper($2)`
	}

	rows, err := r.pool.Query(ctx, query, string(variant), acquirerRef)
	if err != nil {
		return nil, fmt.Errorf("find by acquirer reference: %w", err)
	}
	defer rows.Close()

	var matches []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		matches = append(matches, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return matches, nil
}

// SetAcquirerReference records the gateway identifier on initiation and moves
// the transaction from draft to pending. The write is guarded so a reference
// set once is never overwritten.
func (r *TransactionRepository) SetAcquirerReference(ctx context.Context, reference, acquirerRef string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_transactions
		SET acquirer_reference = $2,
		    state = $3,
		    updated_at = now()
		WHERE reference = $1
		  AND state = $4
		  AND acquirer_reference IS NULL`,
		reference,
		acquirerRef,
		string(domain.TransactionStatePending),
		string(domain.TransactionStateDraft),
	)
	if err != nil {
		return fmt.Errorf("set acquirer reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTxnInvalidState.WithDetail("reference", reference)
	}
	return nil
}

// UpdateState applies a reconciliation outcome
func (r *TransactionRepository) UpdateState(ctx context.Context, reference string, update *ports.TransactionUpdate) error {
	var completedAt *time.Time
	if update.CompletedAt {
		now := time.Now()
		completedAt = &now
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE payment_transactions
		SET state = $2,
		    state_message = COALESCE($3, state_message),
		    completed_at = COALESCE($4, completed_at),
		    mellat_sale_reference_id = COALESCE($5, mellat_sale_reference_id),
		    zarinpal_tx_ref_id = COALESCE($6, zarinpal_tx_ref_id),
		    zarinpal_masked_card = COALESCE($7, zarinpal_masked_card),
		    zarinpal_hashed_card = COALESCE($8, zarinpal_hashed_card),
		    zarinpal_fee_type = COALESCE($9, zarinpal_fee_type),
		    zarinpal_fee = COALESCE($10, zarinpal_fee),
		    updated_at = now()
		WHERE reference = $1`,
		reference,
		string(update.State),
		update.StateMessage,
		completedAt,
		update.MellatSaleReferenceID,
		update.ZarinpalTxRefID,
		update.ZarinpalMaskedCard,
		update.ZarinpalHashedCard,
		update.ZarinpalFeeType,
		update.ZarinpalFee,
	)
	if err != nil {
		return fmt.Errorf("update transaction state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTxnNotFound.WithDetail("reference", reference)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx        domain.Transaction
		variant   string
		state     string
		amountRaw string
	)

	err := row.Scan(
		&tx.ID,
		&tx.Reference,
		&tx.OrderID,
		&variant,
		&state,
		&tx.StateMessage,
		&amountRaw,
		&tx.Currency,
		&tx.AcquirerReference,
		&tx.MellatSaleReferenceID,
		&tx.ZarinpalTxRefID,
		&tx.ZarinpalMaskedCard,
		&tx.ZarinpalHashedCard,
		&tx.ZarinpalFeeType,
		&tx.ZarinpalFee,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}

	tx.Variant = domain.GatewayVariant(variant)
	tx.State = domain.TransactionState(state)
	tx.Amount = amount
	return &tx, nil
}
