package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avtoscan/reports-backend/internal/models"
	"github.com/avtoscan/reports-backend/internal/pagination"
	"github.com/avtoscan/reports-backend/internal/pkg/apperror"
	"github.com/avtoscan/reports-backend/internal/repository"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*models.User, error) {
	args := m.Called(ctx, id, includeDeleted)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) FindAll(ctx context.Context, p pagination.Params) (*repository.UserListResult, error) {
	args := m.Called(ctx, p)
	if r := args.Get(0); r != nil {
		return r.(*repository.UserListResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) UpdateProfilePicture(ctx context.Context, id uuid.UUID, path string) error {
	return m.Called(ctx, id, path).Error(0)
}

func (m *mockUserRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) Restore(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Purge(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) ListDeleted(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if u := args.Get(0); u != nil {
		return u.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAvatarStorage struct {
	mock.Mock
}

func (m *mockAvatarStorage) SaveAvatar(ctx context.Context, userID uuid.UUID, originalName string, r io.Reader) (string, int64, error) {
	args := m.Called(ctx, userID, originalName)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *mockAvatarStorage) Delete(ctx context.Context, relativePath string) error {
	return m.Called(ctx, relativePath).Error(0)
}

type mockOwnerImages struct {
	mock.Mock
}

func (m *mockOwnerImages) ListByOwner(ctx context.Context, userID uuid.UUID) ([]models.ReportImage, error) {
	args := m.Called(ctx, userID)
	if imgs := args.Get(0); imgs != nil {
		return imgs.([]models.ReportImage), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestUserService_Restore_NotDeleted(t *testing.T) {
	users := new(mockUserRepo)
	svc := NewUserService(users, new(mockAvatarStorage), new(mockOwnerImages))

	id := uuid.New()
	users.On("Restore", mock.Anything, id).Return(nil, repository.ErrUserNotDeleted)

	_, err := svc.Restore(context.Background(), id)

	require.Error(t, err)
	assert.True(t, apperror.IsInvalidState(err), "восстановление активного пользователя — ошибка состояния")
}

func TestUserService_UploadProfilePicture_ReplacesOldFile(t *testing.T) {
	users := new(mockUserRepo)
	avatars := new(mockAvatarStorage)
	svc := NewUserService(users, avatars, new(mockOwnerImages))

	ctx := context.Background()
	id := uuid.New()
	oldPath := "avatars/" + id.String() + "/old.png"
	user := &models.User{ID: id, Email: "a@example.com", ProfilePicture: &oldPath}

	users.On("GetByID", ctx, id, false).Return(user, nil)
	avatars.On("SaveAvatar", ctx, id, "new.png").Return("avatars/"+id.String()+"/new.png", int64(123), nil)
	users.On("UpdateProfilePicture", ctx, id, "avatars/"+id.String()+"/new.png").Return(nil)
	avatars.On("Delete", ctx, oldPath).Return(nil)

	updated, err := svc.UploadProfilePicture(ctx, id, "new.png", strings.NewReader("png-bytes"))

	require.NoError(t, err)
	require.NotNil(t, updated.ProfilePicture)
	assert.Equal(t, "avatars/"+id.String()+"/new.png", *updated.ProfilePicture)
	avatars.AssertCalled(t, "Delete", ctx, oldPath)
}

func TestUserService_UploadProfilePicture_CleansUpOnDBError(t *testing.T) {
	users := new(mockUserRepo)
	avatars := new(mockAvatarStorage)
	svc := NewUserService(users, avatars, new(mockOwnerImages))

	ctx := context.Background()
	id := uuid.New()
	user := &models.User{ID: id, Email: "a@example.com"}
	newPath := "avatars/" + id.String() + "/new.png"

	users.On("GetByID", ctx, id, false).Return(user, nil)
	avatars.On("SaveAvatar", ctx, id, "new.png").Return(newPath, int64(123), nil)
	users.On("UpdateProfilePicture", ctx, id, newPath).Return(assert.AnError)
	avatars.On("Delete", ctx, newPath).Return(nil)

	_, err := svc.UploadProfilePicture(ctx, id, "new.png", strings.NewReader("png-bytes"))

	require.Error(t, err)
	avatars.AssertCalled(t, "Delete", ctx, newPath)
}

func TestUserService_Purge_RemovesFiles(t *testing.T) {
	users := new(mockUserRepo)
	avatars := new(mockAvatarStorage)
	images := new(mockOwnerImages)
	svc := NewUserService(users, avatars, images)

	ctx := context.Background()
	id := uuid.New()
	avatarPath := "avatars/" + id.String() + "/me.png"
	user := &models.User{ID: id, Email: "a@example.com", ProfilePicture: &avatarPath}

	reportImages := []models.ReportImage{
		{ID: uuid.New(), Filename: "reports/r1/1.jpg"},
		{ID: uuid.New(), Filename: "reports/r2/2.jpg"},
	}

	users.On("GetByID", ctx, id, true).Return(user, nil)
	images.On("ListByOwner", ctx, id).Return(reportImages, nil)
	users.On("Purge", ctx, id).Return(nil)
	avatars.On("Delete", ctx, "reports/r1/1.jpg").Return(nil)
	avatars.On("Delete", ctx, "reports/r2/2.jpg").Return(nil)
	avatars.On("Delete", ctx, avatarPath).Return(nil)

	err := svc.Purge(ctx, id)

	require.NoError(t, err)
	avatars.AssertCalled(t, "Delete", ctx, "reports/r1/1.jpg")
	avatars.AssertCalled(t, "Delete", ctx, "reports/r2/2.jpg")
	avatars.AssertCalled(t, "Delete", ctx, avatarPath)
}

func TestUserService_FindAll_PassesNormalizedParams(t *testing.T) {
	users := new(mockUserRepo)
	svc := NewUserService(users, new(mockAvatarStorage), new(mockOwnerImages))

	ctx := context.Background()
	users.On("FindAll", ctx, mock.MatchedBy(func(p pagination.Params) bool {
		return p.Page == 3 && p.Limit == 20 && p.SortColumn == "created_at"
	})).Return(&repository.UserListResult{Users: []models.User{}, Total: 55}, nil)

	out, err := svc.FindAll(ctx, pagination.Query{Page: "3", Limit: "20", SortBy: "registeredAt"})

	require.NoError(t, err)
	assert.Equal(t, 55, out.Total)
	assert.Equal(t, 3, out.Page)
}
