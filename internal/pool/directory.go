package pool

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"radhedge/internal/model"
)

// InvestmentPool holds the attributes of an instantiated pool. Fee accounting
// and investor positions are not modelled here.
type InvestmentPool struct {
	Address        common.Address
	TrackingToken  common.Address
	Name           string
	Symbol         string
	PerformanceFee decimal.Decimal
	Oracle         common.Address
	Dex            common.Address
	BaseCurrency   common.Address

	badgeDigest common.Hash
}

// Authorize reports whether badge is the manager badge minted for this pool.
func (p InvestmentPool) Authorize(badge model.ManagerBadge) bool {
	if badge.Pool != p.Address || p.badgeDigest == (common.Hash{}) {
		return false
	}
	digest := crypto.Keccak256Hash([]byte(badge.Token))
	return subtle.ConstantTimeCompare(digest[:], p.badgeDigest[:]) == 1
}

// Directory resolves PoolRefs to the pools they point at.
type Directory struct {
	mu    sync.RWMutex
	pools map[common.Address]InvestmentPool
}

func NewDirectory() *Directory {
	return &Directory{pools: make(map[common.Address]InvestmentPool)}
}

// Lookup returns the pool deployed at address.
func (d *Directory) Lookup(address common.Address) (InvestmentPool, bool) {
	d.mu.RLock()
	p, ok := d.pools[address]
	d.mu.RUnlock()
	return p, ok
}

// Resolve follows a registry handle.
func (d *Directory) Resolve(ref model.PoolRef) (InvestmentPool, bool) {
	return d.Lookup(ref.Address)
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.pools)
}

func (d *Directory) add(p InvestmentPool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pools[p.Address]; ok {
		return fmt.Errorf("pool already deployed at %s", p.Address.Hex())
	}
	d.pools[p.Address] = p
	return nil
}
