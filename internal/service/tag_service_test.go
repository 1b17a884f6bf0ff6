package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
	"github.com/avtoscan/reports-backend/internal/repository"
)

type mockTagRepo struct {
	mock.Mock
}

func (m *mockTagRepo) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *mockTagRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *mockTagRepo) Create(ctx context.Context, tag *models.Tag) error {
	args := m.Called(ctx, tag)
	if args.Error(0) == nil {
		tag.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockTagRepo) List(ctx context.Context) ([]models.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *mockTagRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTagRepo) Restore(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockTagRepo) Purge(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestTagService_Resolve_Existing(t *testing.T) {
	repo := new(mockTagRepo)
	svc := NewTagService(repo)
	ctx := context.Background()

	existing := &models.Tag{ID: uuid.New(), Name: "family"}
	repo.On("GetByName", ctx, "family").Return(existing, nil)

	tag, err := svc.Resolve(ctx, "family")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, tag.ID)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTagService_Resolve_CreatesMissing(t *testing.T) {
	repo := new(mockTagRepo)
	svc := NewTagService(repo)
	ctx := context.Background()

	repo.On("GetByName", ctx, "suv").Return(nil, repository.ErrTagNotFound).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*models.Tag")).Return(nil)

	tag, err := svc.Resolve(ctx, "suv")
	require.NoError(t, err)
	assert.Equal(t, "suv", tag.Name)
	assert.NotEqual(t, uuid.Nil, tag.ID)
}

func TestTagService_Resolve_RaceRereadsWinner(t *testing.T) {
	repo := new(mockTagRepo)
	svc := NewTagService(repo)
	ctx := context.Background()

	winner := &models.Tag{ID: uuid.New(), Name: "suv"}

	// Первый lookup промахивается, вставка натыкается на unique constraint,
	// повторный lookup возвращает тег, созданный победителем гонки.
	repo.On("GetByName", ctx, "suv").Return(nil, repository.ErrTagNotFound).Once()
	repo.On("Create", ctx, mock.AnythingOfType("*models.Tag")).
		Return(&pq.Error{Code: "23505"})
	repo.On("GetByName", ctx, "suv").Return(winner, nil).Once()

	tag, err := svc.Resolve(ctx, "suv")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, tag.ID)
}

// fakeTagRepo повторяет семантику схемы: поиск по имени и уникальность —
// по LOWER(name), как в индексе tags_name_active_uniq.
type fakeTagRepo struct {
	mockTagRepo
	byName map[string]*models.Tag
}

func newFakeTagRepo(existing ...*models.Tag) *fakeTagRepo {
	f := &fakeTagRepo{byName: make(map[string]*models.Tag)}
	for _, tag := range existing {
		f.byName[strings.ToLower(tag.Name)] = tag
	}
	return f
}

func (f *fakeTagRepo) GetByName(ctx context.Context, name string) (*models.Tag, error) {
	if tag, ok := f.byName[strings.ToLower(name)]; ok {
		return tag, nil
	}
	return nil, repository.ErrTagNotFound
}

func (f *fakeTagRepo) Create(ctx context.Context, tag *models.Tag) error {
	key := strings.ToLower(tag.Name)
	if _, ok := f.byName[key]; ok {
		return &pq.Error{Code: "23505"}
	}
	tag.ID = uuid.New()
	f.byName[key] = tag
	return nil
}

func TestTagService_Resolve_CaseVariantReturnsExisting(t *testing.T) {
	existing := &models.Tag{ID: uuid.New(), Name: "sedan"}
	svc := NewTagService(newFakeTagRepo(existing))

	tag, err := svc.Resolve(context.Background(), "Sedan")

	require.NoError(t, err, "вариант регистра существующего имени не должен отдавать ошибку")
	assert.Equal(t, existing.ID, tag.ID)
	assert.Equal(t, "sedan", tag.Name, "возвращается тег в исходном написании")
}

func TestTagService_Resolve_EmptyName(t *testing.T) {
	svc := NewTagService(new(mockTagRepo))

	_, err := svc.Resolve(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestTagService_ResolveAll_PreservesOrderAndDedupes(t *testing.T) {
	repo := new(mockTagRepo)
	svc := NewTagService(repo)
	ctx := context.Background()

	first := &models.Tag{ID: uuid.New(), Name: "family"}
	second := &models.Tag{ID: uuid.New(), Name: "suv"}
	repo.On("GetByName", ctx, "family").Return(first, nil)
	repo.On("GetByName", ctx, "suv").Return(second, nil)

	tags, err := svc.ResolveAll(ctx, []string{"family", "suv", "Family", "", "  "})
	require.NoError(t, err)

	require.Len(t, tags, 2, "дубликаты и пустые имена схлопываются")
	assert.Equal(t, "family", tags[0].Name)
	assert.Equal(t, "suv", tags[1].Name)
}

func TestTagService_Restore_StateMapping(t *testing.T) {
	repo := new(mockTagRepo)
	svc := NewTagService(repo)
	ctx := context.Background()

	missing := uuid.New()
	active := uuid.New()

	repo.On("Restore", ctx, missing).Return(repository.ErrTagNotFound)
	repo.On("Restore", ctx, active).Return(repository.ErrTagNotDeleted)

	err := svc.Restore(ctx, missing)
	assert.True(t, apperror.IsNotFound(err), "несуществующий тег — NOT_FOUND")

	err = svc.Restore(ctx, active)
	assert.True(t, apperror.IsInvalidState(err), "активный тег — INVALID_STATE")
}
