package awsclients

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/s3ui/bucketgate/internal/core/domain"
)

// LambdaAPI is the subset of *lambda.Client used here.
type LambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// JobInvoker starts the archive function asynchronously.
type JobInvoker struct {
	function string
	api      LambdaAPI
}

func NewJobInvoker(function string, api LambdaAPI) *JobInvoker {
	return &JobInvoker{function: function, api: api}
}

// InvokeZip queues job with InvocationType Event and returns the status code
// reported by Lambda; 202 means the event was accepted.
func (j *JobInvoker) InvokeZip(ctx context.Context, job domain.ZipJob) (status int, err error) {
	defer func(start time.Time) { observe("lambda", "invoke", start, err) }(time.Now())

	payload, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("encode zip job: %w", err)
	}

	out, err := j.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(j.function),
		InvocationType: types.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return 0, err
	}
	return int(out.StatusCode), nil
}
