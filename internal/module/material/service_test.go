package material

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vidgo/server/internal/shared/errors"
	"github.com/vidgo/server/internal/utils/pagination"
)

type fakeRepo struct {
	materials []*Material
}

func (f *fakeRepo) Create(_ context.Context, m *Material) error {
	f.materials = append(f.materials, m)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Material, error) {
	for _, m := range f.materials {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("material")
}

func (f *fakeRepo) List(_ context.Context, filter Filter, p *pagination.Pagination) ([]*Material, int64, error) {
	var matched []*Material
	for _, m := range f.materials {
		if !m.Enabled {
			continue
		}
		if filter.Kind != "" && string(m.Kind) != filter.Kind {
			continue
		}
		matched = append(matched, m)
	}
	total := int64(len(matched))
	start := p.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + p.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func TestService_Create(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	m, err := svc.Create(context.Background(), &CreateMaterialRequest{
		Kind:      "style",
		Name:      "Ghibli",
		TaskTypes: []string{"t2i", "i2v"},
		Tags:      []string{"anime"},
		Payload:   map[string]any{"prompt_suffix": ", studio ghibli style"},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, KindStyle, m.Kind)
	assert.True(t, m.Enabled)
	assert.JSONEq(t, `{"prompt_suffix": ", studio ghibli style"}`, string(m.Payload))
	require.Len(t, repo.materials, 1)
}

func TestService_Create_UnknownKind(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	_, err := svc.Create(context.Background(), &CreateMaterialRequest{Kind: "sticker", Name: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestService_GetAndList(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	style, err := svc.Create(context.Background(), &CreateMaterialRequest{Kind: "style", Name: "Ghibli"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), &CreateMaterialRequest{Kind: "voice", Name: "Aria"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), style.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ghibli", got.Name)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	materials, total, err := svc.List(context.Background(), Filter{Kind: "voice"}, pagination.New())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, materials, 1)
	assert.Equal(t, "Aria", materials[0].Name)
}

func TestMaterial_ToResponse(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	m, err := svc.Create(context.Background(), &CreateMaterialRequest{
		Kind:    "effect",
		Name:    "Explosion",
		Payload: map[string]any{"effect_id": "explosion_v2"},
	})
	require.NoError(t, err)

	resp := m.ToResponse()
	assert.Equal(t, m.ID, resp.ID)
	assert.Equal(t, KindEffect, resp.Kind)
	assert.JSONEq(t, `{"effect_id": "explosion_v2"}`, string(resp.Payload))
}
