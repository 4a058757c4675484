package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"coursedrive/internal/domain/repositories"
)

// TransactionManager implements the TransactionManager interface with sessions
type TransactionManager struct {
	client *mongo.Client
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(client *mongo.Client) repositories.TransactionManager {
	return &TransactionManager{client: client}
}

// ExecTx executes a function within a transaction
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return withTransaction(ctx, tm.client, fn)
}

// withTransaction runs fn in the session carried by ctx, or in a new transaction.
// The driver retries fn on transient transaction errors such as write conflicts.
func withTransaction(ctx context.Context, client *mongo.Client, fn repositories.TxFn) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
