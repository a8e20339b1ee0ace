package secrets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	secrets map[string]string
	calls   int
}

func (f *fakeClient) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	s, ok := f.secrets[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("no such secret")}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(s)}, nil
}

func TestGetCachesForTTL(t *testing.T) {
	client := &fakeClient{secrets: map[string]string{
		"acme/aurora": `{"username": "acme", "password": "s3cr'et", "port": 5432}`,
	}}
	m := NewManager(client, time.Minute)
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	values, err := m.Get(context.Background(), "acme/aurora")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"username": "acme", "password": "s3cr'et", "port": "5432"}, values)

	clock = clock.Add(30 * time.Second)
	p, err := m.Password(context.Background(), "acme/aurora")
	require.NoError(t, err)
	assert.Equal(t, "s3cr'et", p)
	assert.Equal(t, 1, client.calls)

	clock = clock.Add(time.Minute)
	_, err = m.Get(context.Background(), "acme/aurora")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)

	m.Invalidate("acme/aurora")
	_, err = m.Get(context.Background(), "acme/aurora")
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls)
}

func TestGetErrors(t *testing.T) {
	client := &fakeClient{secrets: map[string]string{
		"plain":  "hunter2",
		"nopass": `{"username": "acme"}`,
	}}
	m := NewManager(client, 0)
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = m.Get(ctx, "plain")
	assert.Error(t, err)

	_, err = m.Password(ctx, "nopass")
	assert.ErrorIs(t, err, ErrNoPassword)
}
