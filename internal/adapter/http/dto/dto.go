package dto

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	PIN      string `json:"pin" binding:"required,pin"`
}

// LoginRequest is the request body for account login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID     string `json:"user_id"`
	Address    string `json:"address"`
	Commitment string `json:"commitment"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// BalanceReadRequest carries the PIN re-authentication for a balance read.
// Reads are POST on purpose: the PIN must never appear in a URL or query
// string.
type BalanceReadRequest struct {
	PIN string `json:"pin" binding:"required,pin"`
}

// BalanceResponse returns the decrypted balance to its owner only.
type BalanceResponse struct {
	Balance string `json:"balance"`
}

// SufficiencyRequest asks whether the caller's own balance covers an amount.
type SufficiencyRequest struct {
	Amount string `json:"amount" binding:"required,amount"`
}

// SufficiencyResponse is the caller's own pre-transfer check outcome.
type SufficiencyResponse struct {
	Sufficient bool `json:"sufficient"`
}

// DepositRequest is the request body for crediting the caller's account.
type DepositRequest struct {
	Amount string `json:"amount" binding:"required,amount"`
}

// DepositResponse returns the advanced commitment after a deposit.
type DepositResponse struct {
	NewCommitment string `json:"new_commitment"`
}

// TransferRequest is the request body for a private transfer.
type TransferRequest struct {
	RecipientAddress string `json:"recipient_address" binding:"required,len=66"`
	Amount           string `json:"amount" binding:"required,amount"`
	PIN              string `json:"pin" binding:"required,pin"`
	Description      string `json:"description" binding:"max=256"`
}

// TransferResponse is the response body for a committed transfer. Balances
// never appear here; amount and parties are public by design of the record.
type TransferResponse struct {
	ID          string `json:"id"`
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// TransferDetailResponse adds the proof record to a committed transfer.
type TransferDetailResponse struct {
	TransferResponse
	ProofID       string   `json:"proof_id"`
	PublicSignals []string `json:"public_signals"`
}

// TransferListResponse wraps a paginated transfer history page.
type TransferListResponse struct {
	Items  []TransferResponse `json:"items"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
