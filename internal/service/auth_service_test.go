package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/internal/core/ports/mocks"
	"zkledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type authTestDeps struct {
	svc         *AuthServiceImpl
	accountRepo *mocks.MockAccountRepository
	hashSvc     *mocks.MockHashService
	tokens      *mocks.MockTokenService
	ledger      *mocks.MockLedgerService
	transactor  *mocks.MockDBTransactor
	engine      *MiMCCommitmentEngine
	ctrl        *gomock.Controller
}

func setupAuthService(t *testing.T) *authTestDeps {
	ctrl := gomock.NewController(t)
	d := &authTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		hashSvc:     mocks.NewMockHashService(ctrl),
		tokens:      mocks.NewMockTokenService(ctrl),
		ledger:      mocks.NewMockLedgerService(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		engine:      NewMiMCCommitmentEngine(),
		ctrl:        ctrl,
	}
	d.svc = NewAuthService(d.accountRepo, d.hashSvc, d.tokens, d.engine, d.ledger, d.transactor, zerolog.Nop())
	return d
}

func TestAuthService_Register_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.RegisterRequest{Username: "alice", Password: "correcthorse", PIN: "123456"}

	d.accountRepo.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("correcthorse").Return("hashed_password", nil)
	d.hashSvc.EXPECT().Hash("123456").Return("hashed_pin", nil)

	tx := &trackingTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)

	var createdID uuid.UUID
	d.accountRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, account *domain.Account) error {
			createdID = account.ID
			assert.Equal(t, "hashed_password", account.PasswordHash)
			assert.Equal(t, "hashed_pin", account.PINHash)
			assert.Equal(t, domain.AccountStatusActive, account.Status)
			assert.NotEmpty(t, account.Address)
			return nil
		})
	d.ledger.EXPECT().Initialize(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, userID uuid.UUID) (*domain.Balance, error) {
			assert.Equal(t, createdID, userID)
			return &domain.Balance{UserID: userID, Commitment: "seed_commitment"}, nil
		})

	resp, err := d.svc.Register(ctx, req)
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, createdID, resp.UserID)
	assert.Equal(t, "seed_commitment", resp.Commitment)

	// Address derivation is deterministic from the user ID.
	expected, err := d.engine.Address(createdID)
	require.NoError(t, err)
	assert.Equal(t, expected, resp.Address)
}

func TestAuthService_Register_SeedFailureLeavesNoAccount(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := ports.RegisterRequest{Username: "alice", Password: "correcthorse", PIN: "123456"}

	d.accountRepo.EXPECT().GetByUsername(ctx, "alice").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("correcthorse").Return("hashed_password", nil)
	d.hashSvc.EXPECT().Hash("123456").Return("hashed_pin", nil)

	tx := &trackingTx{}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	// Seeding the balance fails after the account insert; the whole
	// registration rolls back, so no account row survives without balance
	// state.
	d.ledger.EXPECT().Initialize(ctx, tx, gomock.Any()).
		Return(nil, apperror.ErrPersistence(errors.New("connection reset")))

	_, err := d.svc.Register(ctx, req)
	assert.Equal(t, "SYS_001", appCode(t, err))
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.accountRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.Account{ID: uuid.New()}, nil)

	_, err := d.svc.Register(ctx, ports.RegisterRequest{Username: "alice", Password: "correcthorse", PIN: "123456"})
	assert.Equal(t, "AUTH_002", appCode(t, err))
}

func TestAuthService_Register_Validation(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	tests := []struct {
		name string
		req  ports.RegisterRequest
	}{
		{"short username", ports.RegisterRequest{Username: "ab", Password: "correcthorse", PIN: "123456"}},
		{"short password", ports.RegisterRequest{Username: "alice", Password: "short", PIN: "123456"}},
		{"non-numeric PIN", ports.RegisterRequest{Username: "alice", Password: "correcthorse", PIN: "abcd12"}},
		{"PIN too short", ports.RegisterRequest{Username: "alice", Password: "correcthorse", PIN: "123"}},
		{"PIN too long", ports.RegisterRequest{Username: "alice", Password: "correcthorse", PIN: "123456789"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.svc.Register(context.Background(), tt.req)
			assert.Equal(t, "BAL_003", appCode(t, err))
		})
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	expiresAt := time.Now().Add(time.Hour)

	d.accountRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.Account{
		ID: userID, Username: "alice", PasswordHash: "hashed", Status: domain.AccountStatusActive,
	}, nil)
	d.hashSvc.EXPECT().Verify("correcthorse", "hashed").Return(true, nil)
	d.tokens.EXPECT().Generate(userID).Return("token", expiresAt, nil)

	token, exp, err := d.svc.Login(ctx, "alice", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, "token", token)
	assert.Equal(t, expiresAt, exp)
}

func TestAuthService_Login_IndistinguishableFailures(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	t.Run("unknown username", func(t *testing.T) {
		d.accountRepo.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)
		_, _, err := d.svc.Login(ctx, "ghost", "whatever")
		assert.Equal(t, "AUTH_001", appCode(t, err))
	})

	t.Run("wrong password", func(t *testing.T) {
		d.accountRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.Account{
			ID: uuid.New(), PasswordHash: "hashed", Status: domain.AccountStatusActive,
		}, nil)
		d.hashSvc.EXPECT().Verify("wrong", "hashed").Return(false, nil)
		_, _, err := d.svc.Login(ctx, "alice", "wrong")
		assert.Equal(t, "AUTH_001", appCode(t, err))
	})
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	d := setupAuthService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.accountRepo.EXPECT().GetByUsername(ctx, "alice").Return(&domain.Account{
		ID: uuid.New(), PasswordHash: "hashed", Status: domain.AccountStatusInactive,
	}, nil)

	_, _, err := d.svc.Login(ctx, "alice", "correcthorse")
	assert.Equal(t, "BAL_005", appCode(t, err))
}
