package repository

import (
	"context"

	mongotx "parkly/pkg/db/mongo"
)

func (r *mongoParkingSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
