package indexer

import (
	"fmt"
	"math/big"
	"time"
)

// Balance is the spendable balance of an account in base units.
type Balance struct {
	Address  string `json:"address"`
	Amount   string `json:"amount"`
	Denom    string `json:"denom"`
	Decimals uint8  `json:"decimals"`
}

// RawAmount parses Amount as an integer count of base units.
func (b *Balance) RawAmount() (*big.Int, error) {
	raw, ok := new(big.Int).SetString(b.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", b.Amount)
	}
	return raw, nil
}

// Formatted renders the balance with its decimal point and denomination.
func (b *Balance) Formatted() (string, error) {
	raw, err := b.RawAmount()
	if err != nil {
		return "", err
	}
	return FormatAmount(raw, b.Decimals) + " " + b.Denom, nil
}

// Transaction is one entry of an account's history.
type Transaction struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Height    uint64 `json:"height"`
}

// Time returns the transaction timestamp.
func (t *Transaction) Time() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}

type transactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

type errorResponse struct {
	Error string `json:"error"`
}
