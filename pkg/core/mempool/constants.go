package mempool

// Tunable defaults. The pool reads the values from Config, which starts
// from these constants and can override them without a rebuild.
const (
	// DefaultTransactionRelayFeeMin is the fee-per-byte floor below which
	// a transaction counts against a sender's free-transaction quota.
	DefaultTransactionRelayFeeMin = 1.0
	// DefaultTransactionsPerSenderMax caps how many transactions a single
	// sender may have pooled at once.
	DefaultTransactionsPerSenderMax = 500
	// DefaultFreeTransactionsPerSenderMax caps how many of a sender's
	// pooled transactions may fall below DefaultTransactionRelayFeeMin.
	DefaultFreeTransactionsPerSenderMax = 10
	// DefaultSizeMax caps the pool's total transaction count.
	DefaultSizeMax = 100_000
)

// Config is the filter rule set plus the tunable constants that govern
// admission and capacity.
type Config struct {
	FilterRules                  FilterConfig `yaml:"FilterRules"`
	TransactionRelayFeeMin       float64      `yaml:"TransactionRelayFeeMin"`
	TransactionsPerSenderMax     int          `yaml:"TransactionsPerSenderMax"`
	FreeTransactionsPerSenderMax int          `yaml:"FreeTransactionsPerSenderMax"`
	SizeMax                      int          `yaml:"SizeMax"`
}

// DefaultConfig returns a Config set to the package's default constants
// and a permissive filter.
func DefaultConfig() Config {
	return Config{
		FilterRules:                  DefaultFilterConfig(),
		TransactionRelayFeeMin:       DefaultTransactionRelayFeeMin,
		TransactionsPerSenderMax:     DefaultTransactionsPerSenderMax,
		FreeTransactionsPerSenderMax: DefaultFreeTransactionsPerSenderMax,
		SizeMax:                      DefaultSizeMax,
	}
}
