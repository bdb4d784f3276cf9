// Package transport defines the contract between the quarry engine and a
// concrete document store. The engine compiles queries and document
// operations; a Transport executes them and reports results or classified
// failures. Cancellation and timeouts live entirely on the caller's context:
// a Transport must propagate them as errors, never swallow them.
package transport

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Row is one document as returned by (or sent to) the store, with
// type-tagged attribute values.
type Row = map[string]types.AttributeValue

// Statement is a compiled read statement with positional parameters.
type Statement struct {
	// Text is the statement in the store's query language.
	Text string

	// Params are the positional, type-tagged parameters bound to Text.
	Params []types.AttributeValue

	// Limit caps the number of rows fetched. 0 means no cap.
	Limit int
}

// PutOp creates a single document. The document must already contain its
// identity attribute; the transport fails with CodeConflict if a document
// with that identity exists.
type PutOp struct {
	Table    string
	KeyField string
	RevField string // empty: the transport assigns no revision
	Doc      Row
}

// UpdateOp rewrites the given attributes of one existing document.
type UpdateOp struct {
	Table    string
	KeyField string
	RevField string
	Key      types.AttributeValue
	Set      Row // attributes to set; may be empty (no-op round trip)
}

// DeleteOp removes one document by identity.
type DeleteOp struct {
	Table    string
	KeyField string
	Key      types.AttributeValue
}

// WriteResult is the store's response to a single-document write.
type WriteResult struct {
	// Doc is the authoritative post-write document (pre-delete document for
	// deletes). Always populated on success.
	Doc Row
}

// BatchResult is the store's response to an atomic batch write.
type BatchResult struct {
	// Count is the number of documents accepted. All-or-nothing: either every
	// supplied document was accepted or the batch failed as a whole.
	Count int

	// Docs are the persisted documents in input order, when the transport's
	// capabilities report it can return them.
	Docs []Row
}

// Capabilities reports optional transport behaviors.
type Capabilities struct {
	// ReturnsBatchDocuments is true when BatchPut returns the persisted
	// documents alongside the count.
	ReturnsBatchDocuments bool
}

// Transport executes compiled statements and document operations against a
// store. Implementations must report distinguishable error codes for "not
// found", "constraint conflict" and other failures (see Code).
type Transport interface {
	// Query executes a read statement and returns the matching rows in store
	// order.
	Query(ctx context.Context, stmt Statement) ([]Row, error)

	// Put creates one document.
	Put(ctx context.Context, op PutOp) (*WriteResult, error)

	// Update rewrites attributes of one document.
	Update(ctx context.Context, op UpdateOp) (*WriteResult, error)

	// Delete removes one document.
	Delete(ctx context.Context, op DeleteOp) (*WriteResult, error)

	// BatchPut creates the given documents atomically.
	BatchPut(ctx context.Context, table, keyField, revField string, docs []Row) (*BatchResult, error)

	// Capabilities reports optional behaviors.
	Capabilities() Capabilities
}
