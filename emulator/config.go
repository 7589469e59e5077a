package emulator

import (
	"math/big"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethCore "github.com/ethereum/go-ethereum/core"
	gethVM "github.com/ethereum/go-ethereum/core/vm"
	gethParams "github.com/ethereum/go-ethereum/params"

	"github.com/forkvm/forkvm/types"
)

// Config holds the geth-facing configuration a call executes under.
type Config struct {
	ChainConfig  *gethParams.ChainConfig
	EVMConfig    gethVM.Config
	BlockContext *gethVM.BlockContext
}

// ChainRules returns the chain rules at the configured block.
func (c *Config) ChainRules() gethParams.Rules {
	return c.ChainConfig.Rules(
		c.BlockContext.BlockNumber,
		c.BlockContext.Random != nil,
		c.BlockContext.Time,
	)
}

// DefaultChainConfig returns a chain config with every fork through
// Shanghai active from genesis, so simulation always runs under current
// rules regardless of the fork height.
func DefaultChainConfig(chainID *big.Int) *gethParams.ChainConfig {
	shanghaiTime := uint64(0)
	return &gethParams.ChainConfig{
		ChainID: chainID,

		HomesteadBlock:      big.NewInt(0),
		DAOForkBlock:        big.NewInt(0),
		DAOForkSupport:      false,
		EIP150Block:         big.NewInt(0),
		EIP155Block:         big.NewInt(0),
		EIP158Block:         big.NewInt(0),
		ByzantiumBlock:      big.NewInt(0),
		ConstantinopleBlock: big.NewInt(0),
		PetersburgBlock:     big.NewInt(0),
		IstanbulBlock:       big.NewInt(0),
		MuirGlacierBlock:    big.NewInt(0),
		BerlinBlock:         big.NewInt(0),
		LondonBlock:         big.NewInt(0),
		ArrowGlacierBlock:   big.NewInt(0),
		GrayGlacierBlock:    big.NewInt(0),
		MergeNetsplitBlock:  big.NewInt(0),

		TerminalTotalDifficulty:       big.NewInt(0),
		TerminalTotalDifficultyPassed: true,

		ShanghaiTime: &shanghaiTime,
	}
}

func defaultConfig() *Config {
	random := gethCommon.Hash{}
	return &Config{
		ChainConfig: DefaultChainConfig(big.NewInt(1)),
		EVMConfig:   gethVM.Config{NoBaseFee: true},
		BlockContext: &gethVM.BlockContext{
			CanTransfer: gethCore.CanTransfer,
			Transfer:    gethCore.Transfer,
			GasLimit:    types.DefaultBlockGasLimit,
			BlockNumber: big.NewInt(0),
			Time:        0,
			Difficulty:  big.NewInt(0),
			BaseFee:     big.NewInt(0),
			Random:      &random,
			GetHash:     types.DerivedBlockHashFunc,
		},
	}
}

// Option configures the execution config.
type Option func(*Config)

// NewConfig constructs a config from the default, applying options.
func NewConfig(opts ...Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithChainID sets the chain id of the config.
func WithChainID(chainID *big.Int) Option {
	return func(c *Config) {
		c.ChainConfig.ChainID = chainID
	}
}

// WithBlockNumber sets the block number calls observe.
func WithBlockNumber(number uint64) Option {
	return func(c *Config) {
		c.BlockContext.BlockNumber = new(big.Int).SetUint64(number)
	}
}

// WithBlockTime sets the block timestamp calls observe.
func WithBlockTime(time uint64) Option {
	return func(c *Config) {
		c.BlockContext.Time = time
	}
}

// WithCoinbase sets the gas fee collector.
func WithCoinbase(coinbase gethCommon.Address) Option {
	return func(c *Config) {
		c.BlockContext.Coinbase = coinbase
	}
}

// WithGasLimit sets the block gas ceiling.
func WithGasLimit(limit uint64) Option {
	return func(c *Config) {
		c.BlockContext.GasLimit = limit
	}
}

// WithBaseFee sets the block base fee.
func WithBaseFee(baseFee *big.Int) Option {
	return func(c *Config) {
		c.BlockContext.BaseFee = baseFee
	}
}

// WithRandom sets the PREVRANDAO value.
func WithRandom(random gethCommon.Hash) Option {
	return func(c *Config) {
		r := random
		c.BlockContext.Random = &r
	}
}

// WithGetBlockHashFunction sets the BLOCKHASH provider.
func WithGetBlockHashFunction(getHash func(n uint64) gethCommon.Hash) Option {
	return func(c *Config) {
		c.BlockContext.GetHash = getHash
	}
}

// configFromContext translates a chain context observed or overridden
// for a snapshot into an execution config.
func configFromContext(cc *types.ChainContext) *Config {
	opts := []Option{
		WithBlockNumber(cc.BlockNumber),
		WithBlockTime(cc.BlockTime),
		WithCoinbase(cc.Coinbase.ToCommon()),
		WithRandom(cc.Random),
	}
	if cc.ChainID != nil {
		opts = append(opts, WithChainID(cc.ChainID))
	}
	if cc.GasLimit != 0 {
		opts = append(opts, WithGasLimit(cc.GasLimit))
	}
	if cc.BaseFee != nil {
		opts = append(opts, WithBaseFee(cc.BaseFee))
	}
	if cc.GetHashFunc != nil {
		opts = append(opts, WithGetBlockHashFunction(cc.GetHashFunc))
	}
	return NewConfig(opts...)
}
