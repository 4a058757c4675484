package repositories

import "context"

// TxFn is a function that runs within a transaction.
// Repositories called with the ctx passed to fn join the transaction.
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx executes fn within a transaction. If ctx already carries a
	// transaction, fn joins it instead of starting a nested one.
	ExecTx(ctx context.Context, fn TxFn) error
}
