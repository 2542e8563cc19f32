package domain

// AppConfig represents a user-specific key-value setting.
type AppConfig struct {
	Key            string `json:"key"`
	Value          string `json:"value"`
	UpdatedAtUnixM int64  `json:"updated_at_unix,string"` // JSON string for int64
}

// DefaultCurrencyKey is the settings key holding the committed local currency.
const DefaultCurrencyKey = "local_currency.default_symbol"
