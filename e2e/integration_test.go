//go:build e2e

// Package e2e contains end-to-end tests against a real DynamoDB API,
// provided by a dynamodb-local container.
// Run with: go test -tags=e2e -v ./e2e/...
package e2e

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jacentio/quarry/dynamo"
	"github.com/jacentio/quarry/query"
	"github.com/jacentio/quarry/schema"
	"github.com/jacentio/quarry/store"
)

const usersTable = "quarry_e2e_users"

var (
	ddbClient *dynamodb.Client
	testStore *store.Store
	users     *schema.Collection
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "amazon/dynamodb-local:2.5.2",
			ExposedPorts: []string{"8000/tcp"},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start dynamodb-local: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		log.Fatalf("container endpoint: %v", err)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")),
	)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	ddbClient = dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String("http://" + endpoint)
	})

	if err := createUsersTable(ctx); err != nil {
		log.Fatalf("create table: %v", err)
	}

	users = &schema.Collection{
		Name: usersTable,
		Fields: []schema.Field{
			{Name: "email", Kind: schema.String},
			{Name: "age", Kind: schema.Int},
		},
		Constraints: []schema.Constraint{
			{Name: "users_pkey", Kind: "unique", Fields: []string{"_key"}},
		},
	}
	registry := schema.NewRegistry()
	registry.Register(users)
	testStore = store.New(dynamo.New(ddbClient), registry, store.DefaultConfig())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func createUsersTable(ctx context.Context) error {
	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(usersTable),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("_key"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("_key"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return err
	}
	waiter := dynamodb.NewTableExistsWaiter(ddbClient)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(usersTable)}, 30*time.Second)
}

func newUserEmail() string {
	return fmt.Sprintf("%s@example.com", uuid.NewString()[:8])
}

func TestInsertThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	email := newUserEmail()

	cs := store.NewChangeset(store.NewEntity(users, store.Row{"_rev": "stale"})).
		Set("email", email).
		Set("age", 30)

	inserted, err := testStore.Insert(ctx, cs)
	require.NoError(t, err)
	require.Equal(t, store.Persisted, inserted.State)
	require.NotNil(t, inserted.Key(), "store must assign an identity")
	require.NotEqual(t, "stale", inserted.Rev(), "revision must be re-read from the write")

	fetched, err := testStore.MustGet(ctx, usersTable, inserted.Key())
	require.NoError(t, err)
	require.Equal(t, email, fetched.Fields["email"])
	require.Equal(t, inserted.Rev(), fetched.Rev())
}

func TestGetByStringFormOfIdentity(t *testing.T) {
	ctx := context.Background()

	inserted, err := testStore.Insert(ctx,
		store.NewChangeset(store.NewEntity(users, nil)).Set("email", newUserEmail()))
	require.NoError(t, err)

	fetched, err := testStore.MustGet(ctx, usersTable, fmt.Sprint(inserted.Key()))
	require.NoError(t, err)
	require.Equal(t, inserted.Key(), fetched.Key())
}

func TestGetMissIsSilentMustGetRaises(t *testing.T) {
	ctx := context.Background()

	e, err := testStore.Get(ctx, usersTable, "no-such-key")
	require.NoError(t, err)
	require.Nil(t, e)

	_, err = testStore.MustGet(ctx, usersTable, "no-such-key")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetByMultipleFields(t *testing.T) {
	ctx := context.Background()
	email := newUserEmail()

	_, err := testStore.Insert(ctx, store.NewChangeset(store.NewEntity(users, nil)).
		Set("email", email).
		Set("age", 41))
	require.NoError(t, err)

	found, err := testStore.GetBy(ctx, usersTable, map[string]any{"email": email, "age": 41})
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, email, found.Fields["email"])

	miss, err := testStore.GetBy(ctx, usersTable, map[string]any{"email": email, "age": 99})
	require.NoError(t, err)
	require.Nil(t, miss)
}

func TestEmptyMembershipShortCircuits(t *testing.T) {
	ctx := context.Background()

	rows, err := testStore.Find(ctx, query.New(usersTable).Where(query.In("age")))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestUpdateEmptyChangesetTwice(t *testing.T) {
	ctx := context.Background()

	inserted, err := testStore.Insert(ctx,
		store.NewChangeset(store.NewEntity(users, nil)).Set("email", newUserEmail()))
	require.NoError(t, err)

	first, err := testStore.Update(ctx, store.NewChangeset(inserted))
	require.NoError(t, err)
	second, err := testStore.Update(ctx, store.NewChangeset(first))
	require.NoError(t, err)
	require.Equal(t, first.Fields, second.Fields)
}

func TestDuplicateIdentityIsAConstraintViolation(t *testing.T) {
	ctx := context.Background()
	key := uuid.NewString()

	insert := func() error {
		_, err := testStore.Insert(ctx, store.NewChangeset(store.NewEntity(users, nil)).
			Set("_key", key).
			Set("email", newUserEmail()))
		return err
	}
	require.NoError(t, insert())

	err := insert()
	var v *store.ConstraintViolation
	require.ErrorAs(t, err, &v)
	require.Equal(t, "unique", v.Kind)
	require.Equal(t, "users_pkey", v.Constraint)
	require.Contains(t, v.Error(), "users_pkey")
}

func TestBulkInsert(t *testing.T) {
	ctx := context.Background()

	count, docs, err := testStore.InsertAll(ctx, usersTable, nil)
	require.NoError(t, err)
	require.Zero(t, count)
	require.Nil(t, docs)

	bodies := []map[string]any{
		{"email": newUserEmail(), "age": 1},
		{"email": newUserEmail(), "age": 2},
		{"email": newUserEmail(), "age": 3},
	}
	count, docs, err = testStore.InsertAll(ctx, usersTable, bodies)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.Len(t, docs, 3)
	for i, doc := range docs {
		require.Equal(t, bodies[i]["email"], doc["email"], "persisted bodies keep input order")
		require.NotNil(t, doc["_key"])
		require.NotNil(t, doc["_rev"])
	}
}

func TestDeleteThenGet(t *testing.T) {
	ctx := context.Background()

	inserted, err := testStore.Insert(ctx,
		store.NewChangeset(store.NewEntity(users, nil)).Set("email", newUserEmail()))
	require.NoError(t, err)

	deleted, err := testStore.Delete(ctx, inserted)
	require.NoError(t, err)
	require.Equal(t, store.Deleted, deleted.State)
	require.Equal(t, inserted.Fields, deleted.Fields)

	gone, err := testStore.Get(ctx, usersTable, inserted.Key())
	require.NoError(t, err)
	require.Nil(t, gone)

	_, err = testStore.Delete(ctx, inserted)
	require.ErrorIs(t, err, store.ErrNotFound)
}
