package model

import "github.com/ethereum/go-ethereum/common"

// ManagerBadge is the bearer credential handed to a pool's creator.
// Whoever holds the token manages the pool.
type ManagerBadge struct {
	Pool  common.Address `json:"pool"`
	Token string         `json:"token"`
}
