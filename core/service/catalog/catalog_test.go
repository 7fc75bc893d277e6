package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"officeflow/adapter/out/memory"
	"officeflow/core/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchIsExact(t *testing.T) {
	c := New([]domain.RequestType{
		{Name: "Access Request", RoutingTeam: "IT Security"},
		{Name: "Access Request", RoutingTeam: "ignored duplicate"},
		{Name: "Leave Request", RoutingTeam: "HR"},
	})

	tests := []struct {
		name string
		ok   bool
	}{
		{"Access Request", true},
		{"access request", false},
		{"Access Request ", false},
		{"Unknown", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.Match(tt.name)
			assert.Equal(t, tt.ok, ok)
		})
	}

	rt, _ := c.Match("Access Request")
	assert.Equal(t, "IT Security", rt.RoutingTeam)
	assert.Equal(t, []string{"Access Request", "Leave Request"}, c.Names())
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	_, ok := c.Match("anything")
	assert.False(t, ok)
	assert.Empty(t, c.PromptSummary())
}

func TestPromptSummary(t *testing.T) {
	c := New([]domain.RequestType{
		{Name: "Access Request", Category: "IT", Keywords: []string{"vpn", "login"}},
		{Name: "General", Category: "General", Keywords: []string{}},
	})
	want := "- Access Request (IT): keywords: vpn, login\n- General (General): keywords: "
	assert.Equal(t, want, c.PromptSummary())
}

func TestDefaultSeedParses(t *testing.T) {
	types, err := ParseSeed(DefaultSeed())
	require.NoError(t, err)
	require.NotEmpty(t, types)

	c := New(types)
	rt, ok := c.Match("Access Request")
	require.True(t, ok)
	assert.Equal(t, "IT Security", rt.RoutingTeam)
	assert.Equal(t, 8, rt.SLAHours)
}

func TestParseSeedValidation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", "request_types:\n  - category: IT\n    sla_hours: 8\n"},
		{"zero sla", "request_types:\n  - name: X\n    sla_hours: 0\n"},
		{"bad yaml", "request_types: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().RequestTypes()

	n, err := Seed(ctx, repo, "")
	require.NoError(t, err)
	_, err = Seed(ctx, repo, "")
	require.NoError(t, err)

	types, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, types, n)
}

func TestSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	doc := "request_types:\n  - name: Facilities\n    category: Office\n    routing_team: Facilities\n    sla_hours: 72\n    is_active: true\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	repo := memory.NewStore().RequestTypes()
	n, err := Seed(context.Background(), repo, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = Seed(context.Background(), repo, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type mapCache struct {
	data   map[string][]domain.RequestType
	getErr error
	sets   int
}

func (m *mapCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]domain.RequestType)) = v
	return true, nil
}

func (m *mapCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	m.sets++
	m.data[key] = value.([]domain.RequestType)
	return nil
}

func TestLoadUsesCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().RequestTypes()
	_, err := Seed(ctx, repo, "")
	require.NoError(t, err)

	cache := &mapCache{data: map[string][]domain.RequestType{}}
	svc := NewService(repo, cache, zerolog.Nop())

	first, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "miss fills the cache")

	// 캐시 히트: 저장소 내용이 바뀌어도 캐시된 카탈로그 반환
	require.NoError(t, repo.Upsert(ctx, &domain.RequestType{Name: "Zz New", SLAHours: 1, IsActive: true}))
	second, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Names(), second.Names())
	assert.Equal(t, 1, cache.sets)
}

func TestLoadFallsBackWhenCacheFails(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewStore().RequestTypes()
	_, err := Seed(ctx, repo, "")
	require.NoError(t, err)

	cache := &mapCache{data: map[string][]domain.RequestType{}, getErr: errors.New("redis down")}
	c, err := NewService(repo, cache, zerolog.Nop()).Load(ctx)
	require.NoError(t, err)
	_, ok := c.Match("Access Request")
	assert.True(t, ok)
}

func TestLoadWithoutCache(t *testing.T) {
	c, err := NewService(memory.NewStore().RequestTypes(), nil, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, c.Types())
}
