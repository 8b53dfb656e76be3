package dex

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"reactor-watcher/internal/domain"
	"reactor-watcher/internal/observability"
)

// Default engine RPC configuration.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
	DefaultMaxDelay   = 10 * time.Second
)

// PoolKey identifies a pool by its asset pair and fee tier.
type PoolKey struct {
	TokenA string         `json:"token_a"`
	TokenB string         `json:"token_b"`
	Fee    domain.FeeTier `json:"fee"`
}

// PoolState is the on-chain state of a pool.
type PoolState struct {
	PoolID       string `json:"pool_id"`
	Liquidity    string `json:"liquidity"`
	SqrtPriceX64 string `json:"sqrt_price_x64"`
	TickCurrent  int64  `json:"tick_current"`
}

// Receipt is the result of a state-changing engine call.
type Receipt struct {
	TxID   string `json:"tx_id"`
	Status string `json:"status"`
}

// CreatePoolCall carries the raw arguments of a create-and-seed call.
type CreatePoolCall struct {
	TokenAssetID   string         `json:"token_asset_id"`
	QuoteAssetID   string         `json:"quote_asset_id"`
	TokenDecimals  int            `json:"token_decimals"`
	QuoteDecimals  int            `json:"quote_decimals"`
	TokenAmount    float64        `json:"token_amount"`
	QuoteAmount    float64        `json:"quote_amount"`
	Fee            domain.FeeTier `json:"fee"`
	PriceLower     int            `json:"price_lower"`
	PriceUpper     int            `json:"price_upper"`
	DeadlineBlocks int            `json:"deadline_blocks"`
}

// QuoteCall carries the arguments of an exact-in quote.
type QuoteCall struct {
	Pool           PoolKey `json:"pool"`
	TokenInID      string  `json:"token_in_id"`
	TokenOutID     string  `json:"token_out_id"`
	AmountIn       string  `json:"amount_in"`
	DeadlineBlocks int     `json:"deadline_blocks"`
}

// SwapCall carries the arguments of an exact-in swap.
type SwapCall struct {
	Pool           PoolKey `json:"pool"`
	TokenInID      string  `json:"token_in_id"`
	TokenOutID     string  `json:"token_out_id"`
	AmountIn       string  `json:"amount_in"`
	MinAmountOut   string  `json:"min_amount_out"`
	DeadlineBlocks int     `json:"deadline_blocks"`
}

// Engine is the low-level DEX contract call surface. Transaction construction
// and finality are the engine's concern, not this service's.
type Engine interface {
	GetPoolState(ctx context.Context, key PoolKey) (*PoolState, error)
	CreatePoolWithLiquidity(ctx context.Context, call CreatePoolCall) (*Receipt, error)
	QuoteExactIn(ctx context.Context, call QuoteCall) (*big.Int, error)
	SwapExactIn(ctx context.Context, call SwapCall) (*Receipt, error)
}

// RPCEngine implements Engine by posting signed call envelopes to the chain
// provider endpoint.
type RPCEngine struct {
	endpoint   string
	contractID string
	wallet     *Wallet
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// EngineOption configures RPCEngine.
type EngineOption func(*RPCEngine)

// WithEngineTimeout sets the HTTP client timeout.
func WithEngineTimeout(d time.Duration) EngineOption {
	return func(e *RPCEngine) {
		e.client.Timeout = d
	}
}

// WithEngineHTTPClient sets a custom http.Client.
func WithEngineHTTPClient(client *http.Client) EngineOption {
	return func(e *RPCEngine) {
		e.client = client
	}
}

// WithEngineMaxRetries sets the retry budget for transient failures.
func WithEngineMaxRetries(n int) EngineOption {
	return func(e *RPCEngine) {
		e.maxRetries = n
	}
}

// NewRPCEngine creates an engine client bound to a pool contract and wallet.
func NewRPCEngine(endpoint, contractID string, wallet *Wallet, opts ...EngineOption) *RPCEngine {
	e := &RPCEngine{
		endpoint:   endpoint,
		contractID: contractID,
		wallet:     wallet,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type engineRequest struct {
	Method     string          `json:"method"`
	ContractID string          `json:"contract_id"`
	Caller     string          `json:"caller"`
	Params     json.RawMessage `json:"params"`
	Signature  string          `json:"signature,omitempty"`
}

type engineError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *engineError) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

type engineResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *engineError    `json:"error,omitempty"`
}

// call posts a call envelope with retries and exponential backoff on
// transport-level failures. Engine-level errors are returned immediately.
func (e *RPCEngine) call(ctx context.Context, method string, params any, signed bool, result any) error {
	start := time.Now()
	defer func() {
		observability.RecordEngineCall(method, time.Since(start))
	}()

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	req := engineRequest{
		Method:     method,
		ContractID: e.contractID,
		Caller:     e.wallet.Address(),
		Params:     rawParams,
	}
	if signed {
		req.Signature = hex.EncodeToString(e.wallet.Sign(rawParams))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := e.retryDelay
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > e.maxDelay {
				delay = e.maxDelay
			}
		}

		lastErr = e.post(ctx, body, result)
		if lastErr == nil {
			return nil
		}
		var engErr *engineError
		if errors.As(lastErr, &engErr) {
			return lastErr
		}
	}
	return fmt.Errorf("engine call %s failed after %d attempts: %w", method, e.maxRetries+1, lastErr)
}

func (e *RPCEngine) post(ctx context.Context, body []byte, result any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider request failed: %s", resp.Status)
	}

	var envelope engineResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if result != nil && envelope.Result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// GetPoolState implements Engine.
func (e *RPCEngine) GetPoolState(ctx context.Context, key PoolKey) (*PoolState, error) {
	var state PoolState
	if err := e.call(ctx, "dex_getPoolState", key, false, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// CreatePoolWithLiquidity implements Engine.
func (e *RPCEngine) CreatePoolWithLiquidity(ctx context.Context, call CreatePoolCall) (*Receipt, error) {
	var receipt Receipt
	if err := e.call(ctx, "dex_createPoolWithLiquidity", call, true, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// QuoteExactIn implements Engine.
func (e *RPCEngine) QuoteExactIn(ctx context.Context, call QuoteCall) (*big.Int, error) {
	var quoted string
	if err := e.call(ctx, "dex_quoteExactIn", call, false, &quoted); err != nil {
		return nil, err
	}
	out, ok := new(big.Int).SetString(quoted, 10)
	if !ok {
		return nil, fmt.Errorf("invalid quote amount from engine: %q", quoted)
	}
	return out, nil
}

// SwapExactIn implements Engine.
func (e *RPCEngine) SwapExactIn(ctx context.Context, call SwapCall) (*Receipt, error) {
	var receipt Receipt
	if err := e.call(ctx, "dex_swapExactIn", call, true, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
