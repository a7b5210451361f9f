package integration

import (
	"context"
	"fmt"
	"sync"

	"zkledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("username already exists")
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) GetByAddress(ctx context.Context, address string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Address == address {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Balance Repo ---

type inMemoryBalanceRepo struct {
	mu       sync.RWMutex
	balances map[uuid.UUID]*domain.Balance
}

func newInMemoryBalanceRepo() *inMemoryBalanceRepo {
	return &inMemoryBalanceRepo{balances: make(map[uuid.UUID]*domain.Balance)}
}

func (r *inMemoryBalanceRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.balances[b.UserID]; ok {
		return fmt.Errorf("balance record already exists")
	}
	cp := *b
	r.balances[b.UserID] = &cp
	return nil
}

func (r *inMemoryBalanceRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.balances[userID]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryBalanceRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Balance, error) {
	return r.GetByUserID(ctx, userID)
}

// Update enforces the same nonce predicate as the SQL implementation: the
// stored row must still be at b.Nonce-1, otherwise the row moved under the
// caller and the write is refused.
func (r *inMemoryBalanceRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.balances[b.UserID]
	if !ok {
		return fmt.Errorf("balance record not found")
	}
	if stored.Nonce != b.Nonce-1 {
		return fmt.Errorf("balance row moved under update")
	}
	cp := *b
	r.balances[b.UserID] = &cp
	return nil
}

// --- In-Memory Transfer Repo ---

type inMemoryTransferRepo struct {
	mu        sync.RWMutex
	transfers []domain.Transfer
}

func newInMemoryTransferRepo() *inMemoryTransferRepo {
	return &inMemoryTransferRepo{}
}

func (r *inMemoryTransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers = append(r.transfers, *t)
	return nil
}

func (r *inMemoryTransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.transfers {
		if r.transfers[i].ID == id {
			cp := r.transfers[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryTransferRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Transfer
	// Newest first, as the SQL ORDER BY does.
	for i := len(r.transfers) - 1; i >= 0; i-- {
		t := r.transfers[i]
		if t.FromUserID == userID || t.ToUserID == userID {
			result = append(result, t)
		}
	}
	if offset >= len(result) {
		return []domain.Transfer{}, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// --- In-Memory Proof Repo ---

type inMemoryProofRepo struct {
	mu     sync.RWMutex
	proofs []domain.Proof
}

func newInMemoryProofRepo() *inMemoryProofRepo {
	return &inMemoryProofRepo{}
}

func (r *inMemoryProofRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Proof) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proofs = append(r.proofs, *p)
	return nil
}

func (r *inMemoryProofRepo) GetByTransferID(ctx context.Context, transferID uuid.UUID) (*domain.Proof, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.proofs {
		if r.proofs[i].TransferID == transferID {
			cp := r.proofs[i]
			return &cp, nil
		}
	}
	return nil, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transaction blocks with a single mutex,
// standing in for row-level locking: while one transaction is open, no other
// may begin. This is what lets the concurrency tests assert exact outcomes.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockTx{release: &t.mu}, nil
}

// lockTx is a pgx.Tx that holds the transactor mutex until Commit or
// Rollback, whichever comes first.
type lockTx struct {
	release *sync.Mutex
	done    sync.Once
}

func (t *lockTx) finish() {
	t.done.Do(func() { t.release.Unlock() })
}

func (t *lockTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockTx) Commit(ctx context.Context) error          { t.finish(); return nil }
func (t *lockTx) Rollback(ctx context.Context) error        { t.finish(); return nil }
func (t *lockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockTx) Conn() *pgx.Conn { return nil }
