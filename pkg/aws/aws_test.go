package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	calls int
	value *string
	err   error
}

func (f *fakeSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.value}, nil
}

func TestSecretsClient_CachesValue(t *testing.T) {
	v := "s3cret"
	api := &fakeSecrets{value: &v}
	client := newSecretsClient(api)

	for i := 0; i < 3; i++ {
		got, err := client.GetSecret(context.Background(), "storefront/JWT_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", got)
	}
	assert.Equal(t, 1, api.calls)
}

func TestSecretsClient_Errors(t *testing.T) {
	_, err := newSecretsClient(&fakeSecrets{err: errors.New("denied")}).GetSecret(context.Background(), "x")
	assert.ErrorContains(t, err, "denied")

	_, err = newSecretsClient(&fakeSecrets{}).GetSecret(context.Background(), "x")
	assert.ErrorContains(t, err, "no string value")
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient_DisabledSendsNothing(t *testing.T) {
	api := &fakeCloudWatch{}
	m := &MetricsClient{client: api, namespace: "Storefront"}

	require.NoError(t, m.RecordCount(context.Background(), MetricImagesUploaded, nil))
	assert.Empty(t, api.inputs)
	assert.False(t, m.IsEnabled())

	var nilClient *MetricsClient
	assert.NoError(t, nilClient.RecordCount(context.Background(), MetricImagesUploaded, nil))
}

func TestMetricsClient_EnabledSendsDatum(t *testing.T) {
	api := &fakeCloudWatch{}
	m := &MetricsClient{client: api, namespace: "Storefront", enabled: true}

	require.NoError(t, m.RecordValue(context.Background(), MetricImagesUploaded, 3, map[string]string{"Operation": "UploadMany"}))
	require.Len(t, api.inputs, 1)
	in := api.inputs[0]
	assert.Equal(t, "Storefront", *in.Namespace)
	require.Len(t, in.MetricData, 1)
	assert.Equal(t, MetricImagesUploaded, *in.MetricData[0].MetricName)
	assert.Equal(t, 3.0, *in.MetricData[0].Value)
	require.Len(t, in.MetricData[0].Dimensions, 1)
}

func TestObjectURL(t *testing.T) {
	assert.Equal(t, "http://localhost:9000/media/a.png", ObjectURL("http://localhost:9000/", "media", "a.png"))
	assert.Equal(t, "https://s3.example.com/media/a.png", ObjectURL("https://s3.example.com", "media", "a.png"))
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.True(t, IsNotFound(&types.NoSuchKey{}))
	assert.True(t, IsNotFound(&types.NotFound{}))
	assert.True(t, IsNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, IsNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
}
