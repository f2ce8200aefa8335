package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultDeployer is the address local pools are derived from when none is configured.
const DefaultDeployer = "0x000000000000000000000000000000000000ad00"

// Addresses are the parsed platform addresses.
type Addresses struct {
	Oracle       common.Address
	Dex          common.Address
	BaseCurrency common.Address
	Deployer     common.Address
}

// ParseAddresses checks that every platform address is set and hex encoded.
// It says nothing about whether the contracts behind them work.
func (c Config) ParseAddresses() (Addresses, error) {
	var (
		out Addresses
		err error
	)
	if out.Oracle, err = parseAddress("oracle", c.Oracle); err != nil {
		return Addresses{}, err
	}
	if out.Dex, err = parseAddress("dex", c.Dex); err != nil {
		return Addresses{}, err
	}
	if out.BaseCurrency, err = parseAddress("base-currency", c.BaseCurrency); err != nil {
		return Addresses{}, err
	}
	if out.Deployer, err = parseAddress("deployer", c.Deployer); err != nil {
		return Addresses{}, err
	}
	return out, nil
}

func parseAddress(key, input string) (common.Address, error) {
	if input == "" {
		return common.Address{}, fmt.Errorf("%s address is required", key)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", key, input)
	}
	return common.HexToAddress(input), nil
}
