package service

import (
	"context"
	"testing"
	"time"

	"zkledger/internal/core/domain"
	"zkledger/internal/core/ports"
	"zkledger/internal/core/ports/mocks"
	"zkledger/pkg/apperror"
	"zkledger/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type transferTestDeps struct {
	svc          *TransferServiceImpl
	accountRepo  *mocks.MockAccountRepository
	balanceRepo  *mocks.MockBalanceRepository
	transferRepo *mocks.MockTransferRepository
	transactor   *mocks.MockDBTransactor
	encSvc       *mocks.MockEncryptionService
	ledger       *mocks.MockLedgerService
	proofs       *mocks.MockProofService
	ctrl         *gomock.Controller
}

func setupTransferService(t *testing.T) *transferTestDeps {
	ctrl := gomock.NewController(t)
	d := &transferTestDeps{
		accountRepo:  mocks.NewMockAccountRepository(ctrl),
		balanceRepo:  mocks.NewMockBalanceRepository(ctrl),
		transferRepo: mocks.NewMockTransferRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		encSvc:       mocks.NewMockEncryptionService(ctrl),
		ledger:       mocks.NewMockLedgerService(ctrl),
		proofs:       mocks.NewMockProofService(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewTransferService(
		d.accountRepo, d.balanceRepo, d.transferRepo, d.transactor,
		d.encSvc, d.ledger, d.proofs, zerolog.Nop(),
	)
	return d
}

func activeAccount(id uuid.UUID, username, address string) *domain.Account {
	return &domain.Account{
		ID:       id,
		Username: username,
		Address:  address,
		Status:   domain.AccountStatusActive,
	}
}

func TestTransferService_Execute_Success(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderID, recipientID := uuid.New(), uuid.New()
	sender := activeAccount(senderID, "alice", "0xaaa")
	recipient := activeAccount(recipientID, "bob", "0xbbb")

	req := ports.TransferRequest{
		FromUserID:       senderID,
		RecipientAddress: "0xbbb",
		Amount:           "250",
		PIN:              "123456",
		Description:      "rent",
	}

	amountMinor, err := money.ToMinorUnits("250")
	require.NoError(t, err)
	balanceMinor, err := money.ToMinorUnits("1000")
	require.NoError(t, err)
	input := &ports.ProofInput{Balance: balanceMinor, TransferAmount: amountMinor, Nonce: 2, Salt: "42"}
	proof := &domain.Proof{
		ID:            uuid.New(),
		ProofData:     "blob",
		PublicSignals: []string{amountMinor.String(), "c", "n", "1", "c2"},
	}

	d.accountRepo.EXPECT().GetByID(ctx, senderID).Return(sender, nil)
	d.accountRepo.EXPECT().GetByAddress(ctx, "0xbbb").Return(recipient, nil)
	d.ledger.EXPECT().CheckSufficiency(ctx, senderID, "250").Return(&ports.SufficiencyResult{Sufficient: true, CurrentBalance: "1000"}, nil)
	d.ledger.EXPECT().VerifyPIN(ctx, senderID, "123456").Return(nil)
	d.balanceRepo.EXPECT().GetByUserID(ctx, senderID).Return(&domain.Balance{
		UserID: senderID, EncryptedBalance: "enc_1000", Nonce: 2, Salt: "42",
	}, nil)
	d.encSvc.EXPECT().Decrypt("enc_1000").Return("1000", nil)
	d.proofs.EXPECT().BuildProofInput(balanceMinor, amountMinor, int64(2), "42").Return(input, nil)
	d.proofs.EXPECT().GenerateProof(ctx, input).Return(proof, nil)
	d.proofs.EXPECT().VerifyProof(ctx, proof, input).Return(&ports.VerificationResult{IsValid: true}, nil)
	d.ledger.EXPECT().Transfer(ctx, gomock.Any(), proof).DoAndReturn(
		func(_ context.Context, transfer *domain.Transfer, _ *domain.Proof) (*ports.LedgerTransferResult, error) {
			assert.Equal(t, senderID, transfer.FromUserID)
			assert.Equal(t, recipientID, transfer.ToUserID)
			assert.Equal(t, "0xaaa", transfer.FromAddress)
			assert.Equal(t, "0xbbb", transfer.ToAddress)
			assert.Equal(t, "250", transfer.Amount)
			assert.Equal(t, "rent", transfer.Description)
			transfer.Status = domain.TransferStatusCompleted
			return &ports.LedgerTransferResult{NewFromCommitment: "c2", NewToCommitment: "c3"}, nil
		})

	result, err := d.svc.Execute(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.TransferStatusCompleted, result.Transfer.Status)
	assert.Equal(t, proof, result.Proof)
}

func TestTransferService_Execute_RecipientNotFound(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderID := uuid.New()
	sender := activeAccount(senderID, "alice", "0xaaa")

	d.accountRepo.EXPECT().GetByID(ctx, senderID).Return(sender, nil)
	d.accountRepo.EXPECT().GetByAddress(ctx, "0xdead").Return(nil, nil)

	_, err := d.svc.Execute(ctx, ports.TransferRequest{
		FromUserID: senderID, RecipientAddress: "0xdead", Amount: "250", PIN: "123456",
	})
	assert.Equal(t, "BAL_004", appCode(t, err))
}

func TestTransferService_Execute_SelfTransfer(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderID := uuid.New()
	sender := activeAccount(senderID, "alice", "0xaaa")

	d.accountRepo.EXPECT().GetByID(ctx, senderID).Return(sender, nil)
	d.accountRepo.EXPECT().GetByAddress(ctx, "0xaaa").Return(sender, nil)

	_, err := d.svc.Execute(ctx, ports.TransferRequest{
		FromUserID: senderID, RecipientAddress: "0xaaa", Amount: "250", PIN: "123456",
	})
	assert.Equal(t, "BAL_003", appCode(t, err))
}

func TestTransferService_Execute_InsufficientBeforePIN(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderID, recipientID := uuid.New(), uuid.New()
	sender := activeAccount(senderID, "alice", "0xaaa")
	recipient := activeAccount(recipientID, "bob", "0xbbb")

	d.accountRepo.EXPECT().GetByID(ctx, senderID).Return(sender, nil)
	d.accountRepo.EXPECT().GetByAddress(ctx, "0xbbb").Return(recipient, nil)
	// Soft check fails; VerifyPIN is never reached and nothing is recorded.
	d.ledger.EXPECT().CheckSufficiency(ctx, senderID, "250").Return(&ports.SufficiencyResult{Sufficient: false, CurrentBalance: "100"}, nil)

	_, err := d.svc.Execute(ctx, ports.TransferRequest{
		FromUserID: senderID, RecipientAddress: "0xbbb", Amount: "250", PIN: "123456",
	})
	assert.Equal(t, "BAL_001", appCode(t, err))
}

func TestTransferService_Execute_PINDenied(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderID, recipientID := uuid.New(), uuid.New()
	sender := activeAccount(senderID, "alice", "0xaaa")
	recipient := activeAccount(recipientID, "bob", "0xbbb")

	d.accountRepo.EXPECT().GetByID(ctx, senderID).Return(sender, nil)
	d.accountRepo.EXPECT().GetByAddress(ctx, "0xbbb").Return(recipient, nil)
	d.ledger.EXPECT().CheckSufficiency(ctx, senderID, "250").Return(&ports.SufficiencyResult{Sufficient: true}, nil)
	d.ledger.EXPECT().VerifyPIN(ctx, senderID, "999999").Return(apperror.ErrAuthorizationDenied())

	_, err := d.svc.Execute(ctx, ports.TransferRequest{
		FromUserID: senderID, RecipientAddress: "0xbbb", Amount: "250", PIN: "999999",
	})
	assert.Equal(t, "AUTH_004", appCode(t, err))
}

func TestTransferService_Execute_LedgerFailureRecordsFailedTransfer(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderID, recipientID := uuid.New(), uuid.New()
	sender := activeAccount(senderID, "alice", "0xaaa")
	recipient := activeAccount(recipientID, "bob", "0xbbb")
	tx := &mockTx{}

	amountMinor, err := money.ToMinorUnits("250")
	require.NoError(t, err)
	balanceMinor, err := money.ToMinorUnits("1000")
	require.NoError(t, err)
	input := &ports.ProofInput{Balance: balanceMinor, TransferAmount: amountMinor, Nonce: 2, Salt: "42"}
	proof := &domain.Proof{ID: uuid.New(), ProofData: "blob", PublicSignals: []string{amountMinor.String(), "c", "n", "1", "c2"}}

	d.accountRepo.EXPECT().GetByID(ctx, senderID).Return(sender, nil)
	d.accountRepo.EXPECT().GetByAddress(ctx, "0xbbb").Return(recipient, nil)
	d.ledger.EXPECT().CheckSufficiency(ctx, senderID, "250").Return(&ports.SufficiencyResult{Sufficient: true}, nil)
	d.ledger.EXPECT().VerifyPIN(ctx, senderID, "123456").Return(nil)
	d.balanceRepo.EXPECT().GetByUserID(ctx, senderID).Return(&domain.Balance{
		UserID: senderID, EncryptedBalance: "enc_1000", Nonce: 2, Salt: "42",
	}, nil)
	d.encSvc.EXPECT().Decrypt("enc_1000").Return("1000", nil)
	d.proofs.EXPECT().BuildProofInput(balanceMinor, amountMinor, int64(2), "42").Return(input, nil)
	d.proofs.EXPECT().GenerateProof(ctx, input).Return(proof, nil)
	d.proofs.EXPECT().VerifyProof(ctx, proof, input).Return(&ports.VerificationResult{IsValid: true}, nil)
	d.ledger.EXPECT().Transfer(ctx, gomock.Any(), proof).Return(nil, apperror.ErrProofRejected())

	// Best-effort FAILED record after PIN verification.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, record *domain.Transfer) error {
			assert.Equal(t, domain.TransferStatusFailed, record.Status)
			assert.Equal(t, "250", record.Amount)
			return nil
		})

	_, err = d.svc.Execute(ctx, ports.TransferRequest{
		FromUserID: senderID, RecipientAddress: "0xbbb", Amount: "250", PIN: "123456",
	})
	assert.Equal(t, "ZKP_002", appCode(t, err))
}

func TestTransferService_Execute_ProofGenerationFailure(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderID, recipientID := uuid.New(), uuid.New()
	sender := activeAccount(senderID, "alice", "0xaaa")
	recipient := activeAccount(recipientID, "bob", "0xbbb")
	tx := &mockTx{}

	amountMinor, err := money.ToMinorUnits("250")
	require.NoError(t, err)
	balanceMinor, err := money.ToMinorUnits("1000")
	require.NoError(t, err)
	input := &ports.ProofInput{Balance: balanceMinor, TransferAmount: amountMinor, Nonce: 2, Salt: "42"}

	d.accountRepo.EXPECT().GetByID(ctx, senderID).Return(sender, nil)
	d.accountRepo.EXPECT().GetByAddress(ctx, "0xbbb").Return(recipient, nil)
	d.ledger.EXPECT().CheckSufficiency(ctx, senderID, "250").Return(&ports.SufficiencyResult{Sufficient: true}, nil)
	d.ledger.EXPECT().VerifyPIN(ctx, senderID, "123456").Return(nil)
	d.balanceRepo.EXPECT().GetByUserID(ctx, senderID).Return(&domain.Balance{
		UserID: senderID, EncryptedBalance: "enc_1000", Nonce: 2, Salt: "42",
	}, nil)
	d.encSvc.EXPECT().Decrypt("enc_1000").Return("1000", nil)
	d.proofs.EXPECT().BuildProofInput(balanceMinor, amountMinor, int64(2), "42").Return(input, nil)
	d.proofs.EXPECT().GenerateProof(ctx, input).Return(nil, apperror.ErrCircuitValidation())
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	_, err = d.svc.Execute(ctx, ports.TransferRequest{
		FromUserID: senderID, RecipientAddress: "0xbbb", Amount: "250", PIN: "123456",
	})
	assert.Equal(t, "ZKP_001", appCode(t, err))
}

func TestTransferService_Execute_InactiveRecipient(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	senderID, recipientID := uuid.New(), uuid.New()
	sender := activeAccount(senderID, "alice", "0xaaa")
	recipient := activeAccount(recipientID, "bob", "0xbbb")
	recipient.Status = domain.AccountStatusInactive

	d.accountRepo.EXPECT().GetByID(ctx, senderID).Return(sender, nil)
	d.accountRepo.EXPECT().GetByAddress(ctx, "0xbbb").Return(recipient, nil)

	_, err := d.svc.Execute(ctx, ports.TransferRequest{
		FromUserID: senderID, RecipientAddress: "0xbbb", Amount: "250", PIN: "123456",
	})
	assert.Equal(t, "BAL_005", appCode(t, err))
}

func TestTransferService_Execute_InvalidAmount(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	for _, amount := range []string{"", "0", "-5", "abc"} {
		_, err := d.svc.Execute(context.Background(), ports.TransferRequest{
			FromUserID: uuid.New(), RecipientAddress: "0xbbb", Amount: amount, PIN: "123456",
		})
		assert.Equal(t, "BAL_003", appCode(t, err), "amount %q", amount)
	}
}

func TestTransferService_History(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	records := []domain.Transfer{
		{ID: uuid.New(), Status: domain.TransferStatusCompleted, CreatedAt: time.Now()},
		{ID: uuid.New(), Status: domain.TransferStatusFailed, CreatedAt: time.Now().Add(-time.Hour)},
	}

	d.transferRepo.EXPECT().ListByUser(ctx, userID, 20, 0).Return(records, nil)

	got, err := d.svc.History(ctx, userID, 0, -1)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
