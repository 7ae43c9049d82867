package api_key

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
)

type memStore struct {
	keys     map[string]*models.APIKey
	lastUsed map[string]int
}

func newMemStore() *memStore {
	return &memStore{keys: map[string]*models.APIKey{}, lastUsed: map[string]int{}}
}

func (m *memStore) Create(ctx context.Context, apiKey *models.APIKey) error {
	apiKey.ID = apiKey.Prefix
	apiKey.Project = models.Project{ID: apiKey.ProjectID, Timezone: "UTC"}
	m.keys[apiKey.Prefix] = apiKey
	return nil
}

func (m *memStore) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	return m.keys[prefix], nil
}

func (m *memStore) ListByProject(ctx context.Context, projectID string) ([]*models.APIKey, error) {
	var out []*models.APIKey
	for _, k := range m.keys {
		if k.ProjectID == projectID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *memStore) UpdateLastUsed(ctx context.Context, id string) error {
	m.lastUsed[id]++
	return nil
}

func (m *memStore) Deactivate(ctx context.Context, projectID, id string) (bool, error) {
	k, ok := m.keys[id]
	if !ok || k.ProjectID != projectID {
		return false, nil
	}
	k.IsActive = false
	return true, nil
}

func TestNewKeyShape(t *testing.T) {
	key, raw, err := NewKey("p1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, key.Prefix+"."))
	assert.True(t, strings.HasPrefix(key.Prefix, prefixMarker))
	assert.NotContains(t, key.SecretHash, strings.TrimPrefix(raw, key.Prefix+"."))
	assert.True(t, key.IsActive)
}

func TestGenerateValidateRevoke(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store)
	tenant := models.Tenant{ProjectID: "p1"}

	resp, err := svc.GenerateAPIKey(ctx, tenant)
	require.NoError(t, err)

	project, err := svc.ValidateAPIKey(ctx, resp.Key)
	require.NoError(t, err)
	assert.Equal(t, "p1", project.ID)
	assert.Equal(t, 1, store.lastUsed[resp.APIKey.ID])

	_, err = svc.ValidateAPIKey(ctx, resp.APIKey.Prefix+".wrong")
	assert.Error(t, err)
	_, err = svc.ValidateAPIKey(ctx, "no-dot-here")
	assert.Error(t, err)

	err = svc.RevokeAPIKey(ctx, models.Tenant{ProjectID: "p2"}, resp.APIKey.ID)
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, svc.RevokeAPIKey(ctx, tenant, resp.APIKey.ID))
	_, err = svc.ValidateAPIKey(ctx, resp.Key)
	assert.EqualError(t, err, "API key is disabled")
}
