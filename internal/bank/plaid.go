package bank

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"github.com/nevy-wallets/satoshi/internal/apperr"
)

// PlaidConfig holds credentials for the Plaid API.
type PlaidConfig struct {
	ClientID   string
	Secret     string
	Env        string
	ClientName string
	// BaseURL overrides the environment host when set.
	BaseURL string
}

// PlaidAggregator talks to Plaid through the official client.
type PlaidAggregator struct {
	client     *plaid.APIClient
	clientName string
}

// NewPlaidAggregator builds a Plaid-backed aggregator.
func NewPlaidAggregator(cfg PlaidConfig) (*PlaidAggregator, error) {
	if cfg.ClientID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("plaid client id and secret are required")
	}
	pc := plaid.NewConfiguration()
	pc.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	pc.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	switch {
	case cfg.BaseURL != "":
		pc.UseEnvironment(plaid.Environment(strings.TrimSuffix(cfg.BaseURL, "/")))
	case strings.EqualFold(cfg.Env, "production"):
		pc.UseEnvironment(plaid.Production)
	default:
		pc.UseEnvironment(plaid.Sandbox)
	}
	name := cfg.ClientName
	if name == "" {
		name = "Nevy Wallets"
	}
	return &PlaidAggregator{client: plaid.NewAPIClient(pc), clientName: name}, nil
}

// CreateLinkToken issues a Link token scoped to the user.
func (p *PlaidAggregator) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{ClientUserId: userID}
	req := plaid.NewLinkTokenCreateRequest(p.clientName, "en", []plaid.CountryCode{plaid.COUNTRYCODE_US}, user)
	req.SetProducts([]plaid.Products{plaid.PRODUCTS_AUTH, plaid.PRODUCTS_TRANSACTIONS})

	resp, httpResp, err := p.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*req).Execute()
	if err != nil {
		return "", classifyPlaid(httpResp, err)
	}
	return resp.GetLinkToken(), nil
}

// ExchangePublicToken trades a Link public token for a long-lived access token.
func (p *PlaidAggregator) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	req := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, httpResp, err := p.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*req).Execute()
	if err != nil {
		return "", classifyPlaid(httpResp, err)
	}
	return resp.GetAccessToken(), nil
}

// AccountBalances reads real-time balances for every account on the item.
func (p *PlaidAggregator) AccountBalances(ctx context.Context, accessToken string) ([]Snapshot, error) {
	req := plaid.NewAccountsBalanceGetRequest(accessToken)
	resp, httpResp, err := p.client.PlaidApi.AccountsBalanceGet(ctx).AccountsBalanceGetRequest(*req).Execute()
	if err != nil {
		return nil, classifyPlaid(httpResp, err)
	}

	accounts := resp.GetAccounts()
	out := make([]Snapshot, 0, len(accounts))
	for _, acc := range accounts {
		balances := acc.GetBalances()
		avail, hasAvail := balances.GetAvailableOk()
		cur, hasCur := balances.GetCurrentOk()
		hasAvail = hasAvail && avail != nil
		hasCur = hasCur && cur != nil
		if !hasAvail && !hasCur {
			// No balance figure at all: the account cannot fund anything.
			continue
		}
		snap := Snapshot{
			AccountID: acc.GetAccountId(),
			Name:      acc.GetName(),
			Currency:  balances.GetIsoCurrencyCode(),
		}
		// Plaid leaves available null for some account types; current is
		// the documented best estimate in that case.
		switch {
		case hasAvail && hasCur:
			snap.Available, snap.Current = decimal.NewFromFloat(*avail), decimal.NewFromFloat(*cur)
		case hasCur:
			snap.Available = decimal.NewFromFloat(*cur)
			snap.Current = snap.Available
		default:
			snap.Available = decimal.NewFromFloat(*avail)
			snap.Current = snap.Available
		}
		out = append(out, snap)
	}
	return out, nil
}

func classifyPlaid(resp *http.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return apperr.Wrap(apperr.KindInvalid, "bank rejected the request", err)
	}
	return apperr.Wrap(apperr.KindBankUnavailable, "bank service unavailable", err)
}
