package guard

import (
	"encoding/hex"
	"encoding/json"
	"math/big"

	"github.com/cockroachdb/pebble"

	"github.com/wizzybrown/Drosera/internal/evm"
	pebblestore "github.com/wizzybrown/Drosera/internal/storage/pebble"
)

// State is the guard's persisted authorization record. Owner is set at
// construction and changed only by explicit transfer; Trigger is the single
// non-owner identity allowed to invoke the protected withdrawal; Paused
// gates the protected withdrawal only.
type State struct {
	Owner   evm.Address `json:"owner"`
	Trigger evm.Address `json:"trigger"`
	Paused  bool        `json:"paused"`
}

// Keyspace:
// - guard/state          JSON State
// - guard/bal/t/{hex20}  big-endian held balance per asset
// - guard/bal/native     big-endian held native balance

var (
	stateKey        = []byte("guard/state")
	balTokenPrefix  = []byte("guard/bal/t/")
	balNativeKeyRaw = []byte("guard/bal/native")
)

func keyBalance(token evm.Address) []byte {
	k := make([]byte, 0, len(balTokenPrefix)+40)
	k = append(k, balTokenPrefix...)
	return append(k, hex.EncodeToString(token[:])...)
}

func keyNativeBalance() []byte { return balNativeKeyRaw }

func loadState(db *pebblestore.DB) (State, bool, error) {
	b, err := db.Get(stateKey)
	if err != nil {
		if err == pebblestore.ErrNotFound {
			return State{}, false, nil
		}
		return State{}, false, err
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, false, err
	}
	return s, true, nil
}

func stageState(b *pebble.Batch, s State) error {
	enc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return b.Set(stateKey, enc, nil)
}

func loadBalance(db *pebblestore.DB, key []byte) (*big.Int, error) {
	b, err := db.Get(key)
	if err != nil {
		if err == pebblestore.ErrNotFound {
			return new(big.Int), nil
		}
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func stageBalance(b *pebble.Batch, key []byte, v *big.Int) error {
	if v.Sign() == 0 {
		return b.Delete(key, nil)
	}
	return b.Set(key, v.Bytes(), nil)
}
