// Package secrets resolves database credentials from AWS Secrets Manager.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"go.uber.org/zap"
)

const DefaultTTL = time.Hour

var (
	ErrNotFound   = errors.New("secret not found")
	ErrNoPassword = errors.New("secret has no password field")
)

// API is the subset of the Secrets Manager client used here.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type entry struct {
	values  map[string]string
	expires time.Time
}

// Manager caches JSON key/value secrets for a fixed TTL. It is safe for
// concurrent use.
type Manager struct {
	client API
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]entry
}

func NewManager(client API, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		client: client,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]entry),
	}
}

// Load builds a Manager from the default AWS credential chain.
func Load(ctx context.Context, region string) (*Manager, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewManager(secretsmanager.NewFromConfig(cfg), DefaultTTL), nil
}

// Get returns the key/value pairs stored in the named secret.
func (m *Manager) Get(ctx context.Context, name string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.cache[name]; ok && m.now().Before(e.expires) {
		return e.values, nil
	}

	zap.S().Debugf("Fetching secret %s", name)
	out, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(name)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", name)
	}
	values, err := parse(*out.SecretString)
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", name, err)
	}
	m.cache[name] = entry{values: values, expires: m.now().Add(m.ttl)}
	return values, nil
}

// Password returns the "password" field of the named secret.
func (m *Manager) Password(ctx context.Context, name string) (string, error) {
	values, err := m.Get(ctx, name)
	if err != nil {
		return "", err
	}
	p, ok := values["password"]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrNoPassword)
	}
	return p, nil
}

// Invalidate drops the cached copy of the named secret.
func (m *Manager) Invalidate(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, name)
}

func parse(s string) (map[string]string, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			values[k] = v
		case nil:
			values[k] = ""
		default:
			values[k] = fmt.Sprint(v)
		}
	}
	return values, nil
}
