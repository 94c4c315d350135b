package core

import "github.com/shopspring/decimal"

// BalanceKind discriminates the shape of a ledger balance entry.
type BalanceKind string

const (
	// BalanceNative is the network's native asset (XLM).
	BalanceNative BalanceKind = "native"

	// BalanceCreditAsset is an issued asset held via a trustline.
	BalanceCreditAsset BalanceKind = "credit_asset"

	// BalanceLiquidityPoolShare is a share in a liquidity pool.
	BalanceLiquidityPoolShare BalanceKind = "liquidity_pool_share"
)

// CreditAsset identifies an issued asset and its trustline limit.
type CreditAsset struct {
	Code   string          `json:"code"`
	Issuer string          `json:"issuer"`
	Limit  decimal.Decimal `json:"limit"`
}

// Balance is a single balance entry on an account. Kind selects which of
// the optional fields is populated.
type Balance struct {
	Kind            BalanceKind     `json:"kind"`
	Amount          decimal.Decimal `json:"amount"`
	Credit          *CreditAsset    `json:"credit,omitempty"`
	LiquidityPoolID string          `json:"liquidity_pool_id,omitempty"`
}

// Asset is a ledger asset record returned by asset search.
type Asset struct {
	Code        string          `json:"code"`
	Issuer      string          `json:"issuer"`
	Amount      decimal.Decimal `json:"amount"`
	NumAccounts int32           `json:"num_accounts"`
}
