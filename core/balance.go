package core

// Stats holds the per-login activity counts and volumes alongside the
// derived balance.
type Stats struct {
	Balance       int64
	SentCount     int
	ReceivedCount int
	TotalSent     int64
	TotalReceived int64
}

// TotalTransactions is the combined count of sent and received transactions.
func (s Stats) TotalTransactions() int {
	return s.SentCount + s.ReceivedCount
}

// Balance walks the chain in reverse from the tip and returns login's
// balance: the configured initial balance plus every ClassicTransaction
// credit, minus every debit. Arithmetic is signed to tolerate transient
// negatives during replay even though the steady-state invariant is
// non-negative.
func (cs *ChainStore) Balance(login string) (int64, error) {
	stats, err := cs.Stats(login)
	if err != nil {
		return 0, err
	}
	return stats.Balance, nil
}

// Stats returns login's derived balance and activity counts.
func (cs *ChainStore) Stats(login string) (Stats, error) {
	tip, _ := cs.Tip()
	stats := Stats{Balance: InitialBalance}
	it := cs.IterReverse(tip)
	for {
		block, err := it.Next()
		if err != nil {
			return Stats{}, err
		}
		if block == nil {
			break
		}
		for _, tx := range block.Transactions {
			classic, ok := tx.Data.(ClassicTransactionData)
			if !ok {
				continue
			}
			if tx.Header.Emitter == login {
				stats.Balance -= int64(classic.Amount)
				stats.SentCount++
				stats.TotalSent += int64(classic.Amount)
			}
			if classic.Receiver == login {
				stats.Balance += int64(classic.Amount)
				stats.ReceivedCount++
				stats.TotalReceived += int64(classic.Amount)
			}
		}
	}
	return stats, nil
}
