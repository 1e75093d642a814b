//go:build e2e

// Package e2e contains end-to-end integration tests using real DynamoDB tables.
// Run with: go test -tags=e2e -v ./e2e/...
//
// Set DYNAMODB_ENDPOINT to run against DynamoDB Local; otherwise the default
// AWS credential chain and AWS_REGION are used.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/users/internal/shard"
	"github.com/jacentio/users/store"
	"github.com/jacentio/users/stream"
	"github.com/jacentio/users/user"
)

// Table names are unique per test run to avoid conflicts.
const tablePrefix = "users-e2e-test"

var (
	testID      string
	usersTable  string
	claimsTable string

	ddbClient *dynamodb.Client
	testStore *store.Store
	svc       *user.Service
)

// --- Test Setup & Teardown ---

func TestMain(m *testing.M) {
	testID = uuid.New().String()[:8]
	usersTable = fmt.Sprintf("%s-%s-users", tablePrefix, testID)
	claimsTable = fmt.Sprintf("%s-%s-email-claims", tablePrefix, testID)

	fmt.Printf("Test ID: %s\n", testID)
	fmt.Printf("Tables:\n")
	fmt.Printf("  - Users: %s\n", usersTable)
	fmt.Printf("  - Email claims: %s\n", claimsTable)

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := os.Getenv("DYNAMODB_ENDPOINT")

	ctx := context.Background()
	client, err := store.NewClient(ctx, store.ClientConfig{
		Region:   region,
		Endpoint: endpoint,
		Offline:  endpoint != "",
	})
	if err != nil {
		fmt.Printf("Failed to create DynamoDB client: %v\n", err)
		os.Exit(1)
	}
	ddbClient = client

	if err := createTables(ctx); err != nil {
		fmt.Printf("Failed to create tables: %v\n", err)
		os.Exit(1)
	}

	testStore = store.New(ddbClient, store.Config{
		UsersTable:  usersTable,
		UniqueTable: claimsTable,
	})
	svc = user.NewService(testStore)

	code := m.Run()

	if err := deleteTables(ctx); err != nil {
		fmt.Printf("Failed to delete tables: %v\n", err)
	}

	os.Exit(code)
}

func createTables(ctx context.Context) error {
	fmt.Println("Creating test tables...")

	_, err := ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(usersTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	_, err = ddbClient.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(claimsTable),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create email claims table: %w", err)
	}

	for _, tableName := range []string{usersTable, claimsTable} {
		waiter := dynamodb.NewTableExistsWaiter(ddbClient)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", tableName, err)
		}
	}

	fmt.Println("All tables created and active")
	return nil
}

func deleteTables(ctx context.Context) error {
	fmt.Println("Deleting test tables...")

	for _, tableName := range []string{usersTable, claimsTable} {
		_, err := ddbClient.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			fmt.Printf("Warning: failed to delete table %s: %v\n", tableName, err)
		}
	}

	fmt.Println("Tables deleted")
	return nil
}

// --- Helpers ---

func uniqueEmail(label string) string {
	return fmt.Sprintf("%s-%s@example.com", label, uuid.New().String()[:8])
}

func strPtr(s string) *string { return &s }

// claimOwner returns the user_id on the claim for email, or "" when absent.
func claimOwner(t *testing.T, email string) string {
	t.Helper()
	out, err := ddbClient.GetItem(context.Background(), &dynamodb.GetItemInput{
		TableName: aws.String(claimsTable),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: shard.UniqueConstraintPK("user", "email", user.NormalizeEmail(email))},
			"sk": &types.AttributeValueMemberS{Value: "CONSTRAINT"},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		t.Fatalf("GetItem on claims failed: %v", err)
	}
	if v, ok := out.Item["user_id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func mustCreate(t *testing.T, name, email string) *user.User {
	t.Helper()
	u, err := svc.Create(context.Background(), user.CreateRequest{Name: name, Email: email})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return u
}

// --- CRUD Tests ---

func TestCreate_AndGet(t *testing.T) {
	ctx := context.Background()
	email := uniqueEmail("ada")

	created := mustCreate(t, "  Ada  ", email)

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Ada" {
		t.Errorf("expected name %q, got %q", "Ada", got.Name)
	}
	if got.Email != user.NormalizeEmail(email) {
		t.Errorf("expected email %q, got %q", user.NormalizeEmail(email), got.Email)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) || !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Errorf("expected stored timestamps to round-trip, got %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	if owner := claimOwner(t, email); owner != created.ID {
		t.Errorf("expected claim owned by %q, got %q", created.ID, owner)
	}
}

func TestCreate_DuplicateEmail(t *testing.T) {
	email := uniqueEmail("dup")
	first := mustCreate(t, "First", email)

	_, err := svc.Create(context.Background(), user.CreateRequest{Name: "Second", Email: " " + email + " "})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if owner := claimOwner(t, email); owner != first.ID {
		t.Errorf("expected claim still owned by %q, got %q", first.ID, owner)
	}
}

func TestCreate_ConcurrentSameEmail(t *testing.T) {
	email := uniqueEmail("race")
	const n = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Create(context.Background(), user.CreateRequest{
				Name:  fmt.Sprintf("racer-%d", i),
				Email: email,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, user.ErrEmailTaken):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly 1 success, got %d", successes)
	}
	if conflicts != n-1 {
		t.Errorf("expected %d conflicts, got %d", n-1, conflicts)
	}
	for _, err := range others {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := svc.Get(context.Background(), uuid.New().String())
	if !errors.Is(err, user.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	created := mustCreate(t, "Listed", uniqueEmail("list"))

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	found := false
	for _, u := range users {
		if u.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s in list of %d users", created.ID, len(users))
	}
}

// --- Update Tests ---

func TestUpdate_Name(t *testing.T) {
	ctx := context.Background()
	created := mustCreate(t, "Before", uniqueEmail("rename"))

	updated, err := svc.Update(ctx, created.ID, user.UpdateRequest{Name: strPtr(" After ")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "After" {
		t.Errorf("expected name %q, got %q", "After", updated.Name)
	}
	if updated.Email != created.Email {
		t.Errorf("expected email unchanged, got %q", updated.Email)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("expected createdAt unchanged, got %v", updated.CreatedAt)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("expected updatedAt >= %v, got %v", created.UpdatedAt, updated.UpdatedAt)
	}
}

func TestUpdate_EmailMovesClaim(t *testing.T) {
	ctx := context.Background()
	oldEmail := uniqueEmail("old")
	newEmail := uniqueEmail("new")
	created := mustCreate(t, "Mover", oldEmail)

	updated, err := svc.Update(ctx, created.ID, user.UpdateRequest{Email: strPtr(newEmail)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Email != user.NormalizeEmail(newEmail) {
		t.Errorf("expected email %q, got %q", newEmail, updated.Email)
	}

	if owner := claimOwner(t, oldEmail); owner != "" {
		t.Errorf("expected old claim released, still owned by %q", owner)
	}
	if owner := claimOwner(t, newEmail); owner != created.ID {
		t.Errorf("expected new claim owned by %q, got %q", created.ID, owner)
	}

	// The released email can be taken by someone else.
	mustCreate(t, "Newcomer", oldEmail)
}

func TestUpdate_EmailTaken(t *testing.T) {
	ctx := context.Background()
	a := mustCreate(t, "A", uniqueEmail("a"))
	b := mustCreate(t, "B", uniqueEmail("b"))

	_, err := svc.Update(ctx, a.ID, user.UpdateRequest{Email: strPtr(b.Email)})
	if !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Email != a.Email {
		t.Errorf("expected email unchanged %q, got %q", a.Email, got.Email)
	}
	if owner := claimOwner(t, a.Email); owner != a.ID {
		t.Errorf("expected original claim kept by %q, got %q", a.ID, owner)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	_, err := svc.Update(context.Background(), uuid.New().String(), user.UpdateRequest{Name: strPtr("x")})
	if !errors.Is(err, user.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = svc.Update(context.Background(), uuid.New().String(), user.UpdateRequest{Email: strPtr(uniqueEmail("ghost"))})
	if !errors.Is(err, user.ErrNotFound) {
		t.Errorf("expected ErrNotFound for email update, got %v", err)
	}
}

// --- Delete Tests ---

func TestDelete_ReleasesClaim(t *testing.T) {
	ctx := context.Background()
	email := uniqueEmail("gone")
	created := mustCreate(t, "Gone", email)

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if owner := claimOwner(t, email); owner != "" {
		t.Errorf("expected claim released, still owned by %q", owner)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// --- Stream Tests ---

func TestStream_ReleasesOrphanedClaim(t *testing.T) {
	ctx := context.Background()
	email := uniqueEmail("orphan")
	created := mustCreate(t, "Orphan", email)

	// Delete the record directly, leaving its claim behind.
	_, err := ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(usersTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: created.ID},
		},
	})
	if err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	if owner := claimOwner(t, email); owner != created.ID {
		t.Fatalf("expected orphaned claim owned by %q, got %q", created.ID, owner)
	}

	h := stream.NewHandler(testStore, nil)
	event := events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{{
			EventID:   "1",
			EventName: "REMOVE",
			Change: events.DynamoDBStreamRecord{
				OldImage: map[string]events.DynamoDBAttributeValue{
					"id":    events.NewStringAttribute(created.ID),
					"email": events.NewStringAttribute(created.Email),
				},
			},
		}},
	}

	if err := h.HandleClaimRelease(ctx, event); err != nil {
		t.Fatalf("HandleClaimRelease failed: %v", err)
	}
	if owner := claimOwner(t, email); owner != "" {
		t.Errorf("expected claim released, still owned by %q", owner)
	}

	// Replaying the event is a no-op.
	if err := h.HandleClaimRelease(ctx, event); err != nil {
		t.Errorf("expected idempotent replay, got %v", err)
	}
}

func TestReleaseClaim_KeepsOtherOwner(t *testing.T) {
	ctx := context.Background()
	email := uniqueEmail("kept")
	created := mustCreate(t, "Kept", email)

	if err := testStore.ReleaseClaim(ctx, created.Email, uuid.New().String()); err != nil {
		t.Fatalf("ReleaseClaim failed: %v", err)
	}
	if owner := claimOwner(t, email); owner != created.ID {
		t.Errorf("expected claim kept by %q, got %q", created.ID, owner)
	}
}
