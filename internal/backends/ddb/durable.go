package ddb

import (
	"brokerfront/internal/types"
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

// DurableStore implements ports.DurableCache on a single-table design: every entry shares the partition
// STORE#<types.DurableStoreKey> and is addressed by the sort key BROKER#<tenantKey>.
type DurableStore struct {
	table string
	cli   API
}

type entryItem struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
	types.CacheEntry
}

// NewDurableStore creates the table if it does not exist yet.
func NewDurableStore(ctx context.Context, table string, cli API) (*DurableStore, error) {
	if err := createTableIfNotExists(ctx, cli, table); err != nil {
		return nil, err
	}
	return &DurableStore{table: table, cli: cli}, nil
}

func (s *DurableStore) Get(ctx context.Context, tenantKey string) (types.CacheEntry, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkStore()},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skBroker(tenantKey)},
		},
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return types.CacheEntry{}, err
	}
	if out.Item == nil {
		return types.CacheEntry{}, types.ErrNotFound
	}
	var it entryItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return types.CacheEntry{}, err
	}
	return it.CacheEntry, nil
}

func (s *DurableStore) Set(ctx context.Context, entry types.CacheEntry) error {
	item, err := attributevalue.MarshalMap(entryItem{
		PK:         pkStore(),
		SK:         skBroker(entry.BrokerKey),
		CacheEntry: entry,
	})
	if err != nil {
		return err
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      item,
	})
	return err
}

func (s *DurableStore) Clear(ctx context.Context, tenantKey string) error {
	_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkStore()},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skBroker(tenantKey)},
		},
	})
	return err
}

// Load queries the store partition page by page.
func (s *DurableStore) Load(ctx context.Context) ([]types.CacheEntry, error) {
	p := dynamodb.NewQueryPaginator(s.cli, &dynamodb.QueryInput{
		TableName:              &s.table,
		KeyConditionExpression: awsString("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
			":pk": &ddbTypes.AttributeValueMemberS{Value: pkStore()},
			":sk": &ddbTypes.AttributeValueMemberS{Value: SBroker + "#"},
		},
		ConsistentRead: awsBool(true),
	})
	var entries []types.CacheEntry
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			var it entryItem
			if err := attributevalue.UnmarshalMap(item, &it); err != nil {
				log.WithError(err).Error("Skipping undecodable cache entry")
				continue
			}
			key, err := parseBrokerKey(it.SK)
			if err != nil {
				log.WithError(err).Error("Skipping cache entry with invalid key")
				continue
			}
			it.BrokerKey = key
			entries = append(entries, it.CacheEntry)
		}
	}
	return entries, nil
}
