package state

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"

	"github.com/forkvm/forkvm/types"
)

// Cache persists remote state imported for forks, so re-provisioning a
// fork at the same endpoint and height does not re-fetch over RPC.
//
// The cache is strictly best-effort: faults are logged and degrade to a
// miss, they never fail the read path. Entries are keyed by endpoint,
// height and account (plus slot key for storage) and are valid forever,
// since state at a pinned height never changes.
type Cache struct {
	db  *badger.DB
	log zerolog.Logger
}

// cachedAccount is the persisted shape of an imported account.
type cachedAccount struct {
	Balance []byte `cbor:"balance"`
	Nonce   uint64 `cbor:"nonce"`
	Code    []byte `cbor:"code"`
}

// OpenCache opens (creating if needed) a persistent cache at dir.
func OpenCache(dir string, log zerolog.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening fork cache at %s: %w", dir, err)
	}
	return &Cache{
		db:  db,
		log: log.With().Str("component", "fork_cache").Logger(),
	}, nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.db.Close()
}

func accountKey(endpoint string, height uint64, addr gethCommon.Address) []byte {
	return []byte(fmt.Sprintf("a/%s/%d/%x", endpoint, height, addr))
}

func slotKey(endpoint string, height uint64, sk types.SlotAddress) []byte {
	return []byte(fmt.Sprintf("s/%s/%d/%x/%x", endpoint, height, sk.Address, sk.Key))
}

func (c *Cache) get(key []byte, out interface{}) bool {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, out)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.log.Debug().Err(err).Msg("cache read failed")
		}
		return false
	}
	return true
}

func (c *Cache) put(key []byte, in interface{}) {
	val, err := cbor.Marshal(in)
	if err == nil {
		err = c.db.Update(func(txn *badger.Txn) error {
			return txn.Set(key, val)
		})
	}
	if err != nil {
		c.log.Debug().Err(err).Msg("cache write failed")
	}
}

// GetAccount looks up an imported account.
func (c *Cache) GetAccount(endpoint string, height uint64, addr gethCommon.Address) (*cachedAccount, bool) {
	var acc cachedAccount
	if !c.get(accountKey(endpoint, height, addr), &acc) {
		return nil, false
	}
	return &acc, true
}

// PutAccount stores an imported account.
func (c *Cache) PutAccount(endpoint string, height uint64, addr gethCommon.Address, acc *cachedAccount) {
	c.put(accountKey(endpoint, height, addr), acc)
}

// GetSlot looks up an imported storage slot.
func (c *Cache) GetSlot(endpoint string, height uint64, sk types.SlotAddress) (gethCommon.Hash, bool) {
	var raw []byte
	if !c.get(slotKey(endpoint, height, sk), &raw) {
		return gethCommon.Hash{}, false
	}
	return gethCommon.BytesToHash(raw), true
}

// PutSlot stores an imported storage slot.
func (c *Cache) PutSlot(endpoint string, height uint64, sk types.SlotAddress, value gethCommon.Hash) {
	c.put(slotKey(endpoint, height, sk), value.Bytes())
}
