package chain

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"gigbridge-platform/pkg/config"
)

var Module = fx.Module("chain", fx.Provide(ProvideClient))

// Reputation/escrow contract surface used by the platform (simplified ABI).
const contractABI = `[
	{"name":"createProfile","type":"function","inputs":[{"name":"userId","type":"string"},{"name":"role","type":"string"}]},
	{"name":"mintBadge","type":"function","inputs":[{"name":"userId","type":"string"},{"name":"badge","type":"string"}]},
	{"name":"submitReview","type":"function","inputs":[{"name":"userId","type":"string"},{"name":"eventId","type":"string"},{"name":"rating","type":"uint8"}]},
	{"name":"createEscrow","type":"function","inputs":[{"name":"eventId","type":"string"},{"name":"amount","type":"uint256"}]}
]`

// Client mirrors marketplace activity onto the reputation smart contract.
// Calls are fire-and-forget: the returned value is an opaque transaction hash
// and failures never affect the request that triggered them. A disabled
// client (Enable=false or missing RPC config) is nil-safe and returns empty
// receipts.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	opts     *bind.TransactOpts
	timeout  time.Duration
}

type Params struct {
	fx.In
	Config *config.Config
}

func ProvideClient(p Params) *Client {
	cfg := p.Config.Chain
	if !cfg.Enable || cfg.RPCURL == "" {
		zap.L().Info("[Chain] integration disabled")
		return nil
	}

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		zap.L().Error("[Chain] failed to dial RPC, integration disabled", zap.Error(err))
		return nil
	}

	parsedABI, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		zap.L().Error("[Chain] failed to parse contract ABI", zap.Error(err))
		return nil
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		zap.L().Error("[Chain] invalid signing key, integration disabled", zap.Error(err))
		return nil
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		zap.L().Error("[Chain] failed to build transactor", zap.Error(err))
		return nil
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	addr := common.HexToAddress(cfg.ContractAddr)
	contract := bind.NewBoundContract(addr, parsedABI, eth, eth, eth)

	zap.L().Info("[Chain] connected", zap.String("contract", addr.Hex()), zap.Int64("chain_id", cfg.ChainID))

	return &Client{
		eth:      eth,
		contract: contract,
		opts:     opts,
		timeout:  timeout,
	}
}

func (c *Client) CreateProfile(ctx context.Context, userID, role string) string {
	return c.transact(ctx, "createProfile", userID, role)
}

func (c *Client) MintBadge(ctx context.Context, userID, badge string) string {
	return c.transact(ctx, "mintBadge", userID, badge)
}

func (c *Client) SubmitReview(ctx context.Context, userID, eventID string, rating uint8) string {
	return c.transact(ctx, "submitReview", userID, eventID, rating)
}

func (c *Client) CreateEscrow(ctx context.Context, eventID string, amountMinor *big.Int) string {
	return c.transact(ctx, "createEscrow", eventID, amountMinor)
}

func (c *Client) transact(ctx context.Context, method string, args ...interface{}) string {
	if c == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := *c.opts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, method, args...)
	if err != nil {
		zap.L().Warn("[Chain] transaction failed", zap.String("method", method), zap.Error(err))
		return ""
	}

	hash := tx.Hash().Hex()
	zap.L().Info("[Chain] transaction submitted", zap.String("method", method), zap.String("tx", hash))
	return hash
}
