package payscribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SwiftFiat/NexaWallet-Backend/internal/ledger/domain"
	"github.com/SwiftFiat/NexaWallet-Backend/providers"
	"github.com/SwiftFiat/NexaWallet-Backend/services/monitoring/logging"
	"github.com/SwiftFiat/NexaWallet-Backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type PayscribeProvider struct {
	providers.BaseProvider
	config *PayscribeConfig
}

type PayscribeConfig struct {
	BaseURL string        `mapstructure:"PAYSCRIBE_BASE_URL"`
	APIKey  string        `mapstructure:"PAYSCRIBE_API_KEY"`
	Timeout time.Duration `mapstructure:"PAYSCRIBE_TIMEOUT"`
}

// LoadConfig reads NEXA_PAYSCRIBE_* settings.
func LoadConfig() (*PayscribeConfig, error) {
	var c PayscribeConfig
	if err := utils.LoadCustomConfig(utils.EnvPath, &c); err != nil {
		return nil, err
	}
	if c.BaseURL == "" {
		return nil, fmt.Errorf("PAYSCRIBE_BASE_URL must be specified")
	}
	return &c, nil
}

func NewPayscribeProvider(c *PayscribeConfig, logger *logging.Logger) *PayscribeProvider {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PayscribeProvider{
		BaseProvider: providers.BaseProvider{
			Name:    providers.Payscribe,
			BaseURL: strings.TrimRight(c.BaseURL, "/"),
			APIKey:  c.APIKey,
			Client: &http.Client{
				Timeout: timeout,
			},
			Logger: logger,
		},
		config: c,
	}
}

func (p *PayscribeProvider) CreateVirtualAccount(ctx context.Context, req domain.VirtualAccountRequest) (*domain.VirtualAccount, error) {
	var out PayscribeResponse[VirtualAccount]
	status, err := p.do(ctx, http.MethodPost, "/virtual-accounts", VirtualAccountRequest{
		CustomerEmail: req.CustomerEmail,
		WalletID:      req.WalletID,
		IsPermanent:   req.IsPermanent,
	}, &out)
	if err != nil {
		return nil, err
	}
	if (status != http.StatusOK && status != http.StatusCreated) || !out.Status {
		return nil, fmt.Errorf("virtual account rejected: %d %s", status, out.Message)
	}
	return &domain.VirtualAccount{
		AccountNumber: out.Data.AccountNumber,
		BankName:      out.Data.BankName,
		AccountName:   out.Data.AccountName,
	}, nil
}

func (p *PayscribeProvider) Payout(ctx context.Context, req domain.PayoutRequest) (*domain.ProviderResult, error) {
	return p.transaction(ctx, "/payouts/bank", PayoutRequest{
		Amount:        domain.FormatAmount(req.Amount),
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		Reference:     req.Reference,
		Narration:     req.Narration,
	})
}

func (p *PayscribeProvider) BuyAirtime(ctx context.Context, order domain.AirtimeOrder) (*domain.ProviderResult, error) {
	return p.transaction(ctx, "/vas/airtime", AirtimeRequest{
		PhoneNumber: order.PhoneNumber,
		Amount:      domain.FormatAmount(order.Amount),
		Network:     order.Network,
		Reference:   order.Reference,
	})
}

func (p *PayscribeProvider) BuyData(ctx context.Context, order domain.DataOrder) (*domain.ProviderResult, error) {
	return p.transaction(ctx, "/vas/data", DataRequest{
		PhoneNumber: order.PhoneNumber,
		PlanCode:    order.PlanCode,
		Network:     order.Network,
		Reference:   order.Reference,
	})
}

// TransactionStatus asks for the final state of a reference we sent earlier.
// A reference the provider has never seen is reported as failed. Any other
// error answer, 401 and 403 included, says nothing about the money and is
// reported as ErrProviderUnavailable so the hold stays in place.
func (p *PayscribeProvider) TransactionStatus(ctx context.Context, reference string) (*domain.ProviderResult, error) {
	var out PayscribeResponse[TransactionResult]
	status, err := p.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(reference)+"/status", nil, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return &domain.ProviderResult{Outcome: domain.OutcomeFailed, Message: "reference unknown to provider"}, nil
	case status < http.StatusOK || status >= http.StatusMultipleChoices:
		return nil, domain.NewLedgerError(domain.ErrProviderUnavailable, "", reference, fmt.Errorf("status query: %d %s", status, out.Message))
	}

	// Only an explicit status in the body settles the transaction
	result := &domain.ProviderResult{
		Outcome:           domain.OutcomePending,
		ProviderReference: out.Data.TransID,
		Message:           out.Message,
	}
	if outcome, ok := domain.ParseOutcome(out.Data.Status); ok {
		result.Outcome = outcome
	}
	return result, nil
}

func (p *PayscribeProvider) DataPlans(ctx context.Context, network string) ([]domain.DataPlan, error) {
	var out PayscribeResponse[[]DataPlan]
	status, err := p.do(ctx, http.MethodGet, "/vas/data/plans?network="+url.QueryEscape(network), nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !out.Status {
		return nil, domain.NewLedgerError(domain.ErrProviderUnavailable, "", "", fmt.Errorf("data plans: %d %s", status, out.Message))
	}

	plans := make([]domain.DataPlan, 0, len(out.Data))
	for _, dp := range out.Data {
		amount, err := decimal.NewFromString(dp.Amount)
		if err != nil {
			p.Logger.WithField("plan_code", dp.PlanCode).Warn("skipping data plan with invalid amount")
			continue
		}
		n := dp.Network
		if n == "" {
			n = network
		}
		plans = append(plans, domain.DataPlan{
			Code:    dp.PlanCode,
			Network: strings.ToUpper(n),
			Name:    dp.Name,
			Amount:  amount,
		})
	}
	return plans, nil
}

func (p *PayscribeProvider) transaction(ctx context.Context, path string, body interface{}) (*domain.ProviderResult, error) {
	var out PayscribeResponse[TransactionResult]
	status, err := p.do(ctx, http.MethodPost, path, body, &out)
	if err != nil {
		return nil, err
	}
	return toResult(status, out)
}

// toResult maps an answer that reached us. Rate limiting and 5xx mean the
// outcome is unknown; other 4xx are definite rejections.
func toResult(status int, out PayscribeResponse[TransactionResult]) (*domain.ProviderResult, error) {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return nil, domain.NewLedgerError(domain.ErrProviderUnavailable, "", out.Data.Reference, fmt.Errorf("status %d: %s", status, out.Message))
	case status >= http.StatusBadRequest:
		return &domain.ProviderResult{Outcome: domain.OutcomeFailed, ProviderReference: out.Data.TransID, Message: out.Message}, nil
	}

	result := &domain.ProviderResult{
		Outcome:           domain.OutcomePending,
		ProviderReference: out.Data.TransID,
		Message:           out.Message,
	}
	if outcome, ok := domain.ParseOutcome(out.Data.Status); ok {
		result.Outcome = outcome
	} else if !out.Status {
		result.Outcome = domain.OutcomeFailed
	}
	return result, nil
}

// do sends the request and decodes any JSON body into out. Transport errors
// are reported as ErrProviderUnavailable.
func (p *PayscribeProvider) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	resp, err := p.MakeRequest(ctx, method, p.BaseURL+path, body, nil)
	if err != nil {
		return 0, domain.NewLedgerError(domain.ErrProviderUnavailable, "", "", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, domain.NewLedgerError(domain.ErrProviderUnavailable, "", "", fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		p.Logger.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
			"body":   string(bodyBytes),
		}).Warn("Payscribe returned an error")
	}

	if len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, out); err != nil && resp.StatusCode < http.StatusInternalServerError {
			return resp.StatusCode, domain.NewLedgerError(domain.ErrProviderUnavailable, "", "", fmt.Errorf("error decoding response body: %w", err))
		}
	}
	return resp.StatusCode, nil
}
