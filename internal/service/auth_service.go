package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var pinPattern = regexp.MustCompile(`^\d{4,8}$`)

// AuthServiceImpl implements registration and login. Registration is the
// only place balance state is born: account, address, salt, seed balance
// and initial commitment are created together.
type AuthServiceImpl struct {
	accountRepo ports.AccountRepository
	hasher      ports.HashService
	tokens      ports.TokenService
	engine      ports.CommitmentEngine
	ledger      ports.LedgerService
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewAuthService creates the auth service.
func NewAuthService(
	accountRepo ports.AccountRepository,
	hasher ports.HashService,
	tokens ports.TokenService,
	engine ports.CommitmentEngine,
	ledger ports.LedgerService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		hasher:      hasher,
		tokens:      tokens,
		engine:      engine,
		ledger:      ledger,
		transactor:  transactor,
		log:         log.With().Str("component", "auth_service").Logger(),
	}
}

// Register creates an account with a hashed password and PIN, derives its
// public transfer address, and seeds its encrypted balance.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*ports.RegisterResponse, error) {
	if len(req.Username) < 3 || len(req.Username) > 64 {
		return nil, apperror.Validation("Username must be 3-64 characters")
	}
	if len(req.Password) < 8 {
		return nil, apperror.Validation("Password must be at least 8 characters")
	}
	if !pinPattern.MatchString(req.PIN) {
		return nil, apperror.Validation("PIN must be 4-8 digits")
	}

	existing, err := s.accountRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("checking username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hashing password: %w", err))
	}
	pinHash, err := s.hasher.Hash(req.PIN)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hashing PIN: %w", err))
	}

	userID := uuid.New()
	address, err := s.engine.Address(userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("deriving address: %w", err))
	}

	now := time.Now()
	account := &domain.Account{
		ID:           userID,
		Username:     req.Username,
		PasswordHash: passwordHash,
		PINHash:      pinHash,
		Address:      address,
		Status:       domain.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// Account row and seeded balance commit together; a registration never
	// leaves an account without balance state.
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("beginning transaction: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("creating account: %w", err))
	}

	balance, err := s.ledger.Initialize(ctx, dbTx, userID)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrPersistence(fmt.Errorf("committing registration: %w", err))
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("address", address).
		Msg("account registered")

	return &ports.RegisterResponse{
		UserID:     userID,
		Address:    address,
		Commitment: balance.Commitment,
	}, nil
}

// Login verifies credentials and issues a session token. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	account, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.ErrPersistence(fmt.Errorf("loading account: %w", err))
	}
	if account == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}
	if !account.IsActive() {
		return "", time.Time{}, apperror.ErrInactiveAccount()
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verifying password: %w", err))
	}
	if !ok {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokens.Generate(account.ID)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("issuing token: %w", err))
	}
	return token, expiresAt, nil
}
