package dynamo

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/quarry/transport"
)

// isConditionFailure reports whether a single-item write failed its
// condition expression.
func isConditionFailure(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

// classify maps a DynamoDB failure to a transport error code. Anything not
// recognized passes through as an internal failure wrapping the SDK error;
// context cancellation in particular is propagated, never swallowed.
func classify(err error) error {
	var dup *types.DuplicateItemException
	if errors.As(err, &dup) {
		return transport.NewError(transport.CodeConflict, "duplicate document", err)
	}
	var noTable *types.ResourceNotFoundException
	if errors.As(err, &noTable) {
		return transport.NewError(transport.CodeNotFound, "table does not exist", err)
	}
	return transport.NewError(transport.CodeInternal, "", err)
}

// identityConflict is a conflict on the identity attribute, the only
// constraint this store enforces. The implicated field is reported so the
// caller need not guess it.
func identityConflict(table, keyField string, cause error) *transport.Error {
	e := transport.NewError(transport.CodeConflict,
		fmt.Sprintf("document with the same %s exists in %s", keyField, table), cause)
	e.Fields = []string{keyField}
	return e
}

// mapBatchError maps a transaction failure for BatchPut. A cancellation
// reason of ConditionalCheckFailed means one of the documents collided on
// its identity; the failing index is reported in the detail.
func mapBatchError(err error, table, keyField string) error {
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				e := transport.NewError(transport.CodeConflict,
					fmt.Sprintf("document %d collides on %s in %s", i, keyField, table), err)
				e.Fields = []string{keyField}
				return e
			}
		}
	}
	return classify(err)
}
