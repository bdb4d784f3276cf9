// Package dynamo implements the quarry transport over DynamoDB. Reads
// execute compiled PartiQL statements; writes use the native document
// endpoints with condition expressions guarding identity uniqueness.
//
// DynamoDB does not mint document identities or revisions, so this transport
// is the store side that assigns them: a missing identity and the revision
// field get a fresh UUID on every write, and the authoritative post-write
// document is returned so the engine can merge it back.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/quarry/transport"
)

// maxBatchItems is the DynamoDB transaction item cap.
const maxBatchItems = 100

// Transport executes quarry operations against DynamoDB.
type Transport struct {
	client *dynamodb.Client
}

// New creates a Transport over a DynamoDB client.
func New(client *dynamodb.Client) *Transport {
	return &Transport{client: client}
}

// Capabilities reports that batch writes return the persisted documents:
// the transport holds the authoritative post-write bodies because it
// assigns identities and revisions itself.
func (t *Transport) Capabilities() transport.Capabilities {
	return transport.Capabilities{ReturnsBatchDocuments: true}
}

// Query executes a PartiQL statement, paginating until the statement is
// exhausted or the row cap is reached. Row order is the store's order.
func (t *Transport) Query(ctx context.Context, stmt transport.Statement) ([]transport.Row, error) {
	input := &dynamodb.ExecuteStatementInput{
		Statement: aws.String(stmt.Text),
	}
	if len(stmt.Params) > 0 {
		input.Parameters = stmt.Params
	}
	if stmt.Limit > 0 {
		input.Limit = aws.Int32(int32(stmt.Limit))
	}

	var rows []transport.Row
	for {
		out, err := t.client.ExecuteStatement(ctx, input)
		if err != nil {
			return nil, classify(err)
		}
		for _, item := range out.Items {
			rows = append(rows, item)
			if stmt.Limit > 0 && len(rows) >= stmt.Limit {
				return rows, nil
			}
		}
		if out.NextToken == nil {
			return rows, nil
		}
		input.NextToken = out.NextToken
	}
}

// Put creates one document, assigning identity and revision as needed. A
// document with the same identity already present is a conflict.
func (t *Transport) Put(ctx context.Context, op transport.PutOp) (*transport.WriteResult, error) {
	doc := stamp(op.Doc, op.KeyField, op.RevField)

	_, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(op.Table),
		Item:                     doc,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": op.KeyField},
	})
	if err != nil {
		if isConditionFailure(err) {
			return nil, identityConflict(op.Table, op.KeyField, err)
		}
		return nil, classify(err)
	}
	return &transport.WriteResult{Doc: doc}, nil
}

// Update rewrites the given attributes of one existing document and assigns
// a fresh revision. An empty attribute set is the no-op round trip: the
// current document is read back unchanged, so repeating it is idempotent.
func (t *Transport) Update(ctx context.Context, op transport.UpdateOp) (*transport.WriteResult, error) {
	key := transport.Row{op.KeyField: op.Key}

	if len(op.Set) == 0 {
		out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(op.Table),
			Key:       key,
		})
		if err != nil {
			return nil, classify(err)
		}
		if out.Item == nil {
			return nil, transport.NewError(transport.CodeNotFound,
				fmt.Sprintf("no document in %s", op.Table), nil)
		}
		return &transport.WriteResult{Doc: out.Item}, nil
	}

	exprNames := map[string]string{"#k": op.KeyField}
	exprValues := map[string]types.AttributeValue{}
	var setClauses []string

	i := 0
	for attr, v := range op.Set {
		if attr == op.KeyField || (op.RevField != "" && attr == op.RevField) {
			continue
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = attr
		exprValues[valueKey] = v
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
		i++
	}
	if op.RevField != "" {
		exprNames["#rev"] = op.RevField
		exprValues[":rev"] = &types.AttributeValueMemberS{Value: uuid.NewString()}
		setClauses = append(setClauses, "#rev = :rev")
	}
	if len(setClauses) == 0 {
		// Only identity/revision attributes were supplied; nothing to write.
		return t.Update(ctx, transport.UpdateOp{Table: op.Table, KeyField: op.KeyField, Key: op.Key})
	}

	updateExpr := "SET " + setClauses[0]
	for _, c := range setClauses[1:] {
		updateExpr += ", " + c
	}

	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(op.Table),
		Key:                       key,
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String("attribute_exists(#k)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailure(err) {
			return nil, transport.NewError(transport.CodeNotFound,
				fmt.Sprintf("no document in %s", op.Table), err)
		}
		return nil, classify(err)
	}
	return &transport.WriteResult{Doc: out.Attributes}, nil
}

// Delete removes one document by identity. A missing document is not found.
func (t *Transport) Delete(ctx context.Context, op transport.DeleteOp) (*transport.WriteResult, error) {
	out, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(op.Table),
		Key:                      transport.Row{op.KeyField: op.Key},
		ConditionExpression:      aws.String("attribute_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": op.KeyField},
		ReturnValues:             types.ReturnValueAllOld,
	})
	if err != nil {
		if isConditionFailure(err) {
			return nil, transport.NewError(transport.CodeNotFound,
				fmt.Sprintf("no document in %s", op.Table), err)
		}
		return nil, classify(err)
	}
	return &transport.WriteResult{Doc: out.Attributes}, nil
}

// BatchPut creates the given documents in one transaction: either every
// document is accepted or the whole batch fails.
func (t *Transport) BatchPut(ctx context.Context, table, keyField, revField string, docs []transport.Row) (*transport.BatchResult, error) {
	if len(docs) > maxBatchItems {
		return nil, transport.NewError(transport.CodeInternal,
			fmt.Sprintf("batch of %d exceeds the %d-item transaction cap", len(docs), maxBatchItems), nil)
	}

	stamped := make([]transport.Row, len(docs))
	items := make([]types.TransactWriteItem, len(docs))
	for i, doc := range docs {
		stamped[i] = stamp(doc, keyField, revField)
		items[i] = types.TransactWriteItem{
			Put: &types.Put{
				TableName:                aws.String(table),
				Item:                     stamped[i],
				ConditionExpression:      aws.String("attribute_not_exists(#k)"),
				ExpressionAttributeNames: map[string]string{"#k": keyField},
			},
		}
	}

	_, err := t.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return nil, mapBatchError(err, table, keyField)
	}

	return &transport.BatchResult{Count: len(stamped), Docs: stamped}, nil
}

// stamp copies a document and fills in a missing identity plus a fresh
// revision. The copy keeps caller-held rows immutable.
func stamp(doc transport.Row, keyField, revField string) transport.Row {
	out := make(transport.Row, len(doc)+2)
	for k, v := range doc {
		out[k] = v
	}
	if _, ok := out[keyField]; !ok {
		out[keyField] = &types.AttributeValueMemberS{Value: uuid.NewString()}
	}
	if revField != "" {
		out[revField] = &types.AttributeValueMemberS{Value: uuid.NewString()}
	}
	return out
}
