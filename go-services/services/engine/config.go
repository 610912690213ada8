package engine

// TradeType filters which entry signals are permitted to open a position.
type TradeType string

const (
	TradeTypeLong      TradeType = "long"
	TradeTypeShort     TradeType = "short"
	TradeTypeLongShort TradeType = "long_short"
)

// SignalPriority controls the order in which the exit and entry processors
// run within a single bar. See the simulator's bar loop for the exact
// branching this enum drives.
type SignalPriority string

const (
	SignalPriorityExitFirst    SignalPriority = "exit_first"
	SignalPriorityEntryFirst   SignalPriority = "entry_first"
	SignalPrioritySameBarTrade SignalPriority = "same_bar_trade"
)

// Timeframe is the bar cadence used purely to annualise return/ratio
// metrics; it never affects trade accounting.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// periodsPerYear maps a timeframe to the number of bars per calendar year,
// used to annualise returns and risk ratios. An unrecognised timeframe
// falls back to 365 rather than erroring, matching the parse-with-default
// idiom the original backtester used for its string enums.
var periodsPerYear = map[Timeframe]int{
	Timeframe1m:  525600,
	Timeframe5m:  105120,
	Timeframe15m: 35040,
	Timeframe30m: 17520,
	Timeframe1h:  8760,
	Timeframe4h:  2190,
	Timeframe1d:  365,
}

func (tf Timeframe) periodsPerYear() int {
	if n, ok := periodsPerYear[tf]; ok {
		return n
	}
	return 365
}

// Config is the immutable parameter bundle for a single backtest run. Build
// one with NewConfig, which validates every field up front; the simulator
// never re-validates.
type Config struct {
	Timeframe         Timeframe
	TradeType         TradeType
	InitialCapital    float64
	PositionSizePct   float64
	CommissionPct     float64
	TakeProfitPct     float64
	StopLossPct       float64
	MinHoldingPeriod  int
	MaxHoldingPeriod  int
	SlippagePct       float64
	MaxPositions      int
	ForceCloseAtEnd   bool
	SignalPriority    SignalPriority
	RiskFreeRate      float64
}

// DefaultConfig mirrors the original backtester's constructor defaults.
func DefaultConfig() Config {
	return Config{
		Timeframe:        Timeframe1d,
		TradeType:        TradeTypeLong,
		InitialCapital:   10000.0,
		PositionSizePct:  1.0,
		CommissionPct:    0.001,
		MinHoldingPeriod: 1,
		MaxPositions:     10,
		ForceCloseAtEnd:  true,
		SignalPriority:   SignalPriorityExitFirst,
	}
}

// Validate checks every field that the simulator assumes is already sound.
// It is called once, at construction, by NewConfig.
func (c Config) Validate() error {
	switch c.TradeType {
	case TradeTypeLong, TradeTypeShort, TradeTypeLongShort:
	default:
		return invalidInput("trade_type", "must be long, short, or long_short")
	}
	switch c.SignalPriority {
	case SignalPriorityExitFirst, SignalPriorityEntryFirst, SignalPrioritySameBarTrade:
	default:
		return invalidInput("signal_priority", "must be exit_first, entry_first, or same_bar_trade")
	}
	if c.InitialCapital <= 0 {
		return invalidInput("initial_capital", "must be > 0")
	}
	if c.PositionSizePct <= 0 || c.PositionSizePct > 1 {
		return invalidInput("position_size_pct", "must be in (0, 1]")
	}
	if c.CommissionPct < 0 {
		return invalidInput("commission_pct", "must be >= 0")
	}
	if c.TakeProfitPct < 0 {
		return invalidInput("take_profit_pct", "must be >= 0")
	}
	if c.StopLossPct < 0 {
		return invalidInput("stop_loss_pct", "must be >= 0")
	}
	if c.MinHoldingPeriod < 0 {
		return invalidInput("min_holding_period", "must be >= 0")
	}
	if c.MaxHoldingPeriod < 0 {
		return invalidInput("max_holding_period", "must be >= 0")
	}
	if c.SlippagePct < 0 {
		return invalidInput("slippage_pct", "must be >= 0")
	}
	if c.MaxPositions < 0 {
		return invalidInput("max_positions", "must be >= 0 (0 means unlimited)")
	}
	return nil
}

// NewConfig applies DefaultConfig for the zero-value Timeframe/TradeType/
// SignalPriority (so callers can fill only the fields they care about) and
// validates the result.
func NewConfig(c Config) (Config, error) {
	if c.Timeframe == "" {
		c.Timeframe = Timeframe1d
	}
	if c.TradeType == "" {
		c.TradeType = TradeTypeLong
	}
	if c.SignalPriority == "" {
		c.SignalPriority = SignalPriorityExitFirst
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) maxPositionsUnbounded() bool {
	return c.MaxPositions == 0
}
