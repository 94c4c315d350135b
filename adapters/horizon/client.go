// Package horizon is a thin read proxy over the Horizon API: account
// balances and asset search. Remote shapes are normalized into the tagged
// core.Balance variant before they leave this package.
package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mijinummi/Lumenpulse/core"
)

// Client talks to a Horizon instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Horizon client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type accountResponse struct {
	Balances []balanceRecord `json:"balances"`
}

type balanceRecord struct {
	Balance         string `json:"balance"`
	Limit           string `json:"limit"`
	AssetType       string `json:"asset_type"`
	AssetCode       string `json:"asset_code"`
	AssetIssuer     string `json:"asset_issuer"`
	LiquidityPoolID string `json:"liquidity_pool_id"`
}

type assetsResponse struct {
	Embedded struct {
		Records []assetRecord `json:"records"`
	} `json:"_embedded"`
}

type assetRecord struct {
	AssetCode   string `json:"asset_code"`
	AssetIssuer string `json:"asset_issuer"`
	Amount      string `json:"amount"`
	NumAccounts int32  `json:"num_accounts"`
}

// AccountBalances fetches the balances of an account and maps each entry
// onto the tagged balance variant.
func (c *Client) AccountBalances(ctx context.Context, account string) ([]core.Balance, error) {
	var resp accountResponse
	if err := c.get(ctx, "/accounts/"+url.PathEscape(account), nil, &resp); err != nil {
		return nil, err
	}

	balances := make([]core.Balance, 0, len(resp.Balances))
	for _, record := range resp.Balances {
		balance, err := record.toBalance()
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

// SearchAssets queries the asset directory by code and optional issuer.
func (c *Client) SearchAssets(ctx context.Context, code, issuer string, limit int) ([]core.Asset, error) {
	params := url.Values{}
	if code != "" {
		params.Set("asset_code", code)
	}
	if issuer != "" {
		params.Set("asset_issuer", issuer)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp assetsResponse
	if err := c.get(ctx, "/assets", params, &resp); err != nil {
		return nil, err
	}

	assets := make([]core.Asset, 0, len(resp.Embedded.Records))
	for _, record := range resp.Embedded.Records {
		amount, err := decimal.NewFromString(record.Amount)
		if err != nil {
			return nil, fmt.Errorf("bad asset amount %q: %w", record.Amount, err)
		}
		assets = append(assets, core.Asset{
			Code:        record.AssetCode,
			Issuer:      record.AssetIssuer,
			Amount:      amount,
			NumAccounts: record.NumAccounts,
		})
	}
	return assets, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("horizon request failed: %v: %w", err, core.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("horizon returned %d: %w", resp.StatusCode, core.ErrUnavailable)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("horizon returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode horizon response: %w", err)
	}
	return nil
}

func (r balanceRecord) toBalance() (core.Balance, error) {
	amount, err := decimal.NewFromString(r.Balance)
	if err != nil {
		return core.Balance{}, fmt.Errorf("bad balance amount %q: %w", r.Balance, err)
	}

	switch r.AssetType {
	case "native":
		return core.Balance{Kind: core.BalanceNative, Amount: amount}, nil

	case "liquidity_pool_shares":
		return core.Balance{
			Kind:            core.BalanceLiquidityPoolShare,
			Amount:          amount,
			LiquidityPoolID: r.LiquidityPoolID,
		}, nil

	default:
		limit := decimal.Zero
		if r.Limit != "" {
			limit, err = decimal.NewFromString(r.Limit)
			if err != nil {
				return core.Balance{}, fmt.Errorf("bad trustline limit %q: %w", r.Limit, err)
			}
		}
		return core.Balance{
			Kind:   core.BalanceCreditAsset,
			Amount: amount,
			Credit: &core.CreditAsset{
				Code:   r.AssetCode,
				Issuer: r.AssetIssuer,
				Limit:  limit,
			},
		}, nil
	}
}
