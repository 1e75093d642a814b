package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/users/internal/shard"
	"github.com/jacentio/users/user"
)

const (
	attrID        = "id"
	attrEmail     = "email"
	attrUpdatedAt = "updatedAt"

	claimSK         = "CONSTRAINT"
	claimEntityType = "user"

	// emailSwapCondition rejects the user update if anything changed since
	// the read that chose the claims to swap.
	emailSwapCondition = "attribute_exists(id) AND #email = :old_email AND #updated_at = :read_updated_at"

	// releaseCondition holds when the user no longer uses the email.
	releaseCondition = "attribute_not_exists(id) OR #email <> :email"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store implements user.Store on DynamoDB.
type Store struct {
	client API
	config Config
}

// New creates a new Store instance.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the effective configuration.
func (s *Store) Config() Config {
	return s.config
}

// claimPK computes the claim table partition key for a normalized email.
func (s *Store) claimPK(email string) string {
	return shard.UniqueConstraintPK(claimEntityType, attrEmail, email)
}

// PutIfAbsent writes the claim for u.Email and the user item in one transaction.
func (s *Store) PutIfAbsent(ctx context.Context, u user.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	// Index 0 is the claim, index 1 the user; mapCreateTransactionError relies on it.
	items := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           aws.String(s.config.UniqueTable),
				Item:                s.claimItem(u.Email, u.ID),
				ConditionExpression: aws.String("attribute_not_exists(pk)"),
			},
		},
		{
			Put: &types.Put{
				TableName:           aws.String(s.config.UsersTable),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			},
		},
	}

	err = s.transactWrite(ctx, items)
	return mapCreateTransactionError(err, 0, 1)
}

// GetByKey retrieves a user by id with a strongly consistent read.
func (s *Store) GetByKey(ctx context.Context, id string) (*user.User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.UsersTable),
		Key:            userKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(result.Item) == 0 {
		return nil, user.ErrNotFound
	}

	return unmarshalUser(result.Item)
}

// ScanAll reads one page of at most limit users. No pagination token is
// followed; ordering is whatever DynamoDB returns.
func (s *Store) ScanAll(ctx context.Context, limit int32) ([]user.User, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.config.UsersTable),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	result, err := s.client.Scan(ctx, input)
	if err != nil {
		return nil, err
	}

	users := make([]user.User, 0, len(result.Items))
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &users); err != nil {
		return nil, fmt.Errorf("unmarshal users: %w", err)
	}
	return users, nil
}

// UpdateIfExists applies m to an existing user.
// Without an email assignment this is a single UpdateItem guarded by
// attribute_exists(id). An email change reads the current item to learn the
// old claim, then swaps claims and updates the user in one transaction.
func (s *Store) UpdateIfExists(ctx context.Context, id string, m user.Mutation) (*user.User, error) {
	newEmail, changesEmail := m.Value(user.FieldEmail)
	if !changesEmail {
		return s.updateSimple(ctx, id, m, "")
	}

	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		current, err := s.GetByKey(ctx, id)
		if err != nil {
			return nil, err
		}

		var updated *user.User
		if current.Email == newEmail {
			updated, err = s.updateSimple(ctx, id, m, current.Email)
		} else {
			updated, err = s.updateWithEmailClaim(ctx, current, newEmail, m)
		}
		if errors.Is(err, errRecordChanged) {
			continue
		}
		return updated, err
	}

	return nil, ErrContention
}

// updateSimple performs a single conditional UpdateItem. When guardEmail is
// set the update also requires the stored email to still equal it, so the
// claim table stays in step with the user item.
func (s *Store) updateSimple(ctx context.Context, id string, m user.Mutation, guardEmail string) (*user.User, error) {
	updateExpr, exprNames, exprValues, err := buildUpdateExpression(m)
	if err != nil {
		return nil, err
	}

	condExpr := "attribute_exists(id)"
	if guardEmail != "" {
		condExpr += " AND #email = :guard_email"
		exprNames["#email"] = attrEmail
		exprValues[":guard_email"] = &types.AttributeValueMemberS{Value: guardEmail}
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.UsersTable),
		Key:                       userKey(id),
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String(condExpr),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			if guardEmail != "" {
				return nil, errRecordChanged
			}
			return nil, user.ErrNotFound
		}
		return nil, err
	}

	return unmarshalUser(result.Attributes)
}

// updateWithEmailClaim moves current onto newEmail: the old claim is deleted,
// the new claim is created and the user item is updated, all or nothing.
func (s *Store) updateWithEmailClaim(ctx context.Context, current *user.User, newEmail string, m user.Mutation) (*user.User, error) {
	updateExpr, exprNames, exprValues, err := buildUpdateExpression(m)
	if err != nil {
		return nil, err
	}
	readUpdatedAt, err := attributevalue.Marshal(current.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("marshal updatedAt: %w", err)
	}
	exprNames["#email"] = attrEmail
	exprValues[":old_email"] = &types.AttributeValueMemberS{Value: current.Email}
	exprValues[":read_updated_at"] = readUpdatedAt

	// Index 0 is the user update, index 2 the new claim; mapUpdateTransactionError relies on it.
	items := []types.TransactWriteItem{
		{
			Update: &types.Update{
				TableName:                 aws.String(s.config.UsersTable),
				Key:                       userKey(current.ID),
				UpdateExpression:          aws.String(updateExpr),
				ConditionExpression:       aws.String(emailSwapCondition),
				ExpressionAttributeNames:  exprNames,
				ExpressionAttributeValues: exprValues,
			},
		},
		{
			Delete: &types.Delete{
				TableName: aws.String(s.config.UniqueTable),
				Key:       s.claimKey(current.Email),
			},
		},
		{
			Put: &types.Put{
				TableName:           aws.String(s.config.UniqueTable),
				Item:                s.claimItem(newEmail, current.ID),
				ConditionExpression: aws.String("attribute_not_exists(pk) OR user_id = :user_id"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":user_id": &types.AttributeValueMemberS{Value: current.ID},
				},
			},
		},
	}

	if err := s.transactWrite(ctx, items); err != nil {
		return nil, mapUpdateTransactionError(err, 0, 2)
	}

	// TransactWriteItems returns no attributes. The guard on email and
	// updatedAt means current was the stored state right before the write,
	// so current plus m is the stored state right after it.
	updated := m.Apply(*current)
	return &updated, nil
}

// DeleteIfExists removes the user and its email claim in one transaction.
func (s *Store) DeleteIfExists(ctx context.Context, id string) error {
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		current, err := s.GetByKey(ctx, id)
		if err != nil {
			return err
		}

		items := []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:           aws.String(s.config.UsersTable),
					Key:                 userKey(id),
					ConditionExpression: aws.String("attribute_exists(id) AND #email = :email"),
					ExpressionAttributeNames: map[string]string{
						"#email": attrEmail,
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":email": &types.AttributeValueMemberS{Value: current.Email},
					},
				},
			},
			{
				Delete: &types.Delete{
					TableName:           aws.String(s.config.UniqueTable),
					Key:                 s.claimKey(current.Email),
					ConditionExpression: aws.String("attribute_not_exists(pk) OR user_id = :user_id"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":user_id": &types.AttributeValueMemberS{Value: id},
					},
				},
			},
		}

		err = mapDeleteTransactionError(s.transactWrite(ctx, items), 0, 1)
		switch {
		case errors.Is(err, errRecordChanged):
			continue
		case errors.Is(err, ErrClaimMismatch):
			return fmt.Errorf("delete user %s with email %s: %w", id, current.Email, err)
		}
		return err
	}

	return ErrContention
}

// ReleaseClaim deletes the claim for email if it is still owned by userID
// and the user item no longer holds email. The check and the delete run in
// one transaction, so a claim the user took back in the meantime survives.
// A claim that is missing, owned by someone else or still in use is left alone.
func (s *Store) ReleaseClaim(ctx context.Context, email, userID string) error {
	// Index 0 is the user check, index 1 the claim delete.
	items := []types.TransactWriteItem{
		{
			ConditionCheck: &types.ConditionCheck{
				TableName:           aws.String(s.config.UsersTable),
				Key:                 userKey(userID),
				ConditionExpression: aws.String(releaseCondition),
				ExpressionAttributeNames: map[string]string{
					"#email": attrEmail,
				},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":email": &types.AttributeValueMemberS{Value: email},
				},
			},
		},
		{
			Delete: &types.Delete{
				TableName:           aws.String(s.config.UniqueTable),
				Key:                 s.claimKey(email),
				ConditionExpression: aws.String("user_id = :user_id"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":user_id": &types.AttributeValueMemberS{Value: userID},
				},
			},
		},
	}

	err := s.transactWrite(ctx, items)
	if failedConditionIndex(err) >= 0 {
		return nil
	}
	return err
}

// transactWrite executes a transaction, retrying when DynamoDB cancels it
// because another transaction held one of the items.
func (s *Store) transactWrite(ctx context.Context, items []types.TransactWriteItem) error {
	var err error
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		})
		if !isTransactionConflict(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 20 * time.Millisecond):
		}
	}
	return err
}

func (s *Store) claimKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: s.claimPK(email)},
		"sk": &types.AttributeValueMemberS{Value: claimSK},
	}
}

func (s *Store) claimItem(email, userID string) map[string]types.AttributeValue {
	item := s.claimKey(email)
	item["entity_type"] = &types.AttributeValueMemberS{Value: claimEntityType}
	item["field_name"] = &types.AttributeValueMemberS{Value: attrEmail}
	item["field_value"] = &types.AttributeValueMemberS{Value: email}
	item["user_id"] = &types.AttributeValueMemberS{Value: userID}
	return item
}

func userKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberS{Value: id},
	}
}

// buildUpdateExpression builds the SET expression for a mutation.
// updatedAt is always assigned.
func buildUpdateExpression(m user.Mutation) (string, map[string]string, map[string]types.AttributeValue, error) {
	updatedAt, err := attributevalue.Marshal(m.UpdatedAt)
	if err != nil {
		return "", nil, nil, fmt.Errorf("marshal updatedAt: %w", err)
	}

	exprNames := map[string]string{
		"#updated_at": attrUpdatedAt,
	}
	exprValues := map[string]types.AttributeValue{
		":updated_at": updatedAt,
	}

	setClauses := make([]string, 0, len(m.Assignments)+1)
	for i, a := range m.Assignments {
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = string(a.Field)
		exprValues[valueKey] = &types.AttributeValueMemberS{Value: a.Value}
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}
	setClauses = append(setClauses, "#updated_at = :updated_at")

	return "SET " + strings.Join(setClauses, ", "), exprNames, exprValues, nil
}

func unmarshalUser(item map[string]types.AttributeValue) (*user.User, error) {
	var u user.User
	if err := attributevalue.UnmarshalMap(item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

var _ user.Store = (*Store)(nil)
