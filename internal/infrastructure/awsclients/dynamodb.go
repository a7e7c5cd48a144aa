package awsclients

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

// ProgressRepository reads archive job progress rows, partitioned by folder
// and sorted by zip file name.
type ProgressRepository struct {
	table string
	api   dynamodb.QueryAPIClient
}

func NewProgressRepository(table string, api dynamodb.QueryAPIClient) *ProgressRepository {
	return &ProgressRepository{table: table, api: api}
}

func (r *ProgressRepository) ListByFolder(ctx context.Context, folder string) (rows []domain.ZipProgress, err error) {
	defer func(start time.Time) { observe("dynamodb", "query", start, err) }(time.Now())

	p := dynamodb.NewQueryPaginator(r.api, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("#folder = :folder"),
		ExpressionAttributeNames: map[string]string{
			"#folder": "folder",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":folder": &types.AttributeValueMemberS{Value: folder},
		},
	})

	rows = []domain.ZipProgress{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", r.table, err)
		}
		var batch []domain.ZipProgress
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("decode %s rows: %w", r.table, err)
		}
		rows = append(rows, batch...)
	}
	return rows, nil
}
