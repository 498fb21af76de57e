package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	apperrors "parkly/pkg/errors"
)

const transientTransactionLabel = "TransientTransactionError"

// ErrTransactionConflict means the transaction was aborted because another
// writer touched the same documents. The caller may retry.
var ErrTransactionConflict = errors.New("transaction conflict")

// TransactionFunc runs inside a transaction. The context it receives carries
// the session and must be passed to every repository call.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

// ExecuteTransaction runs fn exactly once. Transient aborts are reported as
// ErrTransactionConflict instead of being retried here.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	err = mongo.WithSession(ctx, session, func(sessCtx mongo.SessionContext) error {
		if err := sessCtx.StartTransaction(txnOpts); err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		if err := fn(sessCtx); err != nil {
			_ = sessCtx.AbortTransaction(context.WithoutCancel(sessCtx))
			return err
		}
		return sessCtx.CommitTransaction(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		if isTransient(err) {
			return fmt.Errorf("%w: %v", ErrTransactionConflict, err)
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

func isTransient(err error) bool {
	var labeled mongo.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel(transientTransactionLabel)
}
