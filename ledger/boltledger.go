package ledger

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var (
	bucketBalances   = []byte("balances")
	bucketAllowances = []byte("allowances")
	bucketSupply     = []byte("supply")

	keyTotalSupply = []byte("total")
)

// BoltLedger is a Service implementation persisted in a bbolt database.
// Every operation runs inside a single bbolt transaction, so the atomicity
// guarantees of Service hold across process restarts.
type BoltLedger struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Service = (*BoltLedger)(nil)

// OpenBoltLedger opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltLedger(dbPath string) (*BoltLedger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBalances, bucketAllowances, bucketSupply} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltledger: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger: create buckets: %w", err)
	}

	return &BoltLedger{db: db}, nil
}

// Close closes the underlying database.
func (l *BoltLedger) Close() error { return l.db.Close() }

// allowanceKey encodes a holder→spender pair as a 40-byte key.
func allowanceKey(holder, spender Address) []byte {
	k := make([]byte, 2*AddressLen)
	copy(k[:AddressLen], holder[:])
	copy(k[AddressLen:], spender[:])
	return k
}

// getAmount reads an 8-byte big-endian amount; missing keys are zero.
func getAmount(b *bbolt.Bucket, key []byte) Amount {
	v := b.Get(key)
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

// putAmount writes an 8-byte big-endian amount. Zero amounts delete the
// key so the buckets do not accumulate empty accounts.
func putAmount(b *bbolt.Bucket, key []byte, amount Amount) error {
	if amount == 0 {
		return b.Delete(key)
	}
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, amount)
	return b.Put(key, v)
}

// Mint creates amount new units and credits them to to.
func (l *BoltLedger) Mint(_ context.Context, to Address, amount Amount) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketSupply)
		supply := getAmount(sb, keyTotalSupply)
		if supply > math.MaxUint64-amount {
			return fmt.Errorf("%w: supply %d + %d", ErrSupplyOverflow, supply, amount)
		}
		if err := putAmount(sb, keyTotalSupply, supply+amount); err != nil {
			return fmt.Errorf("boltledger: put supply: %w", err)
		}
		bb := tx.Bucket(bucketBalances)
		return putAmount(bb, to[:], getAmount(bb, to[:])+amount)
	})
}

// BurnFrom destroys amount units held by holder.
func (l *BoltLedger) BurnFrom(_ context.Context, holder Address, amount Amount) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		bb := tx.Bucket(bucketBalances)
		bal := getAmount(bb, holder[:])
		if bal < amount {
			return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, bal, amount)
		}
		if err := putAmount(bb, holder[:], bal-amount); err != nil {
			return fmt.Errorf("boltledger: put balance: %w", err)
		}
		sb := tx.Bucket(bucketSupply)
		return putAmount(sb, keyTotalSupply, getAmount(sb, keyTotalSupply)-amount)
	})
}

// Transfer moves amount units from from to to.
func (l *BoltLedger) Transfer(_ context.Context, from, to Address, amount Amount) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		return moveTx(tx, from, to, amount)
	})
}

// TransferFrom moves amount units from holder to to on behalf of spender.
func (l *BoltLedger) TransferFrom(_ context.Context, spender, holder, to Address, amount Amount) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		ab := tx.Bucket(bucketAllowances)
		key := allowanceKey(holder, spender)
		granted := getAmount(ab, key)
		if granted < amount {
			return fmt.Errorf("%w: granted %d, need %d", ErrInsufficientAllowance, granted, amount)
		}
		if err := moveTx(tx, holder, to, amount); err != nil {
			return err
		}
		return putAmount(ab, key, granted-amount)
	})
}

// Approve sets the holder→spender allowance.
func (l *BoltLedger) Approve(_ context.Context, holder, spender Address, amount Amount) error {
	return l.db.Update(func(tx *bbolt.Tx) error {
		return putAmount(tx.Bucket(bucketAllowances), allowanceKey(holder, spender), amount)
	})
}

// BalanceOf returns holder's current balance.
func (l *BoltLedger) BalanceOf(_ context.Context, holder Address) (Amount, error) {
	var bal Amount
	err := l.db.View(func(tx *bbolt.Tx) error {
		bal = getAmount(tx.Bucket(bucketBalances), holder[:])
		return nil
	})
	return bal, err
}

// Allowance returns the current holder→spender allowance.
func (l *BoltLedger) Allowance(_ context.Context, holder, spender Address) (Amount, error) {
	var granted Amount
	err := l.db.View(func(tx *bbolt.Tx) error {
		granted = getAmount(tx.Bucket(bucketAllowances), allowanceKey(holder, spender))
		return nil
	})
	return granted, err
}

// TotalSupply returns the recorded aggregate supply.
func (l *BoltLedger) TotalSupply() (Amount, error) {
	var supply Amount
	err := l.db.View(func(tx *bbolt.Tx) error {
		supply = getAmount(tx.Bucket(bucketSupply), keyTotalSupply)
		return nil
	})
	return supply, err
}

// moveTx debits from and credits to inside an open write transaction.
func moveTx(tx *bbolt.Tx, from, to Address, amount Amount) error {
	bb := tx.Bucket(bucketBalances)
	bal := getAmount(bb, from[:])
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, bal, amount)
	}
	if from == to {
		return nil
	}
	if err := putAmount(bb, from[:], bal-amount); err != nil {
		return fmt.Errorf("boltledger: put balance: %w", err)
	}
	return putAmount(bb, to[:], getAmount(bb, to[:])+amount)
}
