package model

// CurrencyMeta describes the ERC20 token used as the platform's base currency.
type CurrencyMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
	Name     string `json:"name,omitempty"`
}
