package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/minhvh/teacher-hub-api/internal/models"
)

type mockUserRepo struct {
	users   map[int64]*models.User
	nextID  int64
	deleted []int64
	toggled map[int64]bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[int64]*models.User{}, nextID: 1, toggled: map[int64]bool{}}
}

func (r *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

func (r *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	for _, u := range r.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockUserRepo) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	for _, u := range r.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *mockUserRepo) Delete(ctx context.Context, id int64) error {
	delete(r.users, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *mockUserRepo) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	r.users[id].Enabled = enabled
	r.toggled[id] = enabled
	return nil
}

func (r *mockUserRepo) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		if u.Role == role && u.Enabled {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *mockUserRepo) Stats(ctx context.Context) (*models.UserStats, error) {
	stats := &models.UserStats{}
	for _, u := range r.users {
		stats.TotalUsers++
		if u.Enabled {
			stats.ActiveUsers++
		}
		switch u.Role {
		case models.RoleTeacher:
			stats.TotalTeacher++
		case models.RoleAdmin:
			stats.TotalAdmins++
		}
	}
	return stats, nil
}

func newUserFixture() (*UserService, *mockUserRepo) {
	repo := newMockUserRepo()
	return NewUserService(repo, nil, nil), repo
}

func TestUserServiceCreate(t *testing.T) {
	svc, repo := newUserFixture()

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.True(t, user.Enabled)
	assert.NotEqual(t, "secret-pass", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-pass")))
	assert.Len(t, repo.users, 1)
}

func TestUserServiceCreateDuplicateUsername(t *testing.T) {
	svc, _ := newUserFixture()

	req := models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.RoleTeacher,
	}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	req.Email = "other@example.com"
	_, err = svc.Create(context.Background(), req)
	assert.Error(t, err)
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	svc, _ := newUserFixture()

	req := models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.RoleTeacher,
	}
	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	req.Username = "tran.thi.b"
	_, err = svc.Create(context.Background(), req)
	assert.Error(t, err)
}

func TestUserServiceCreateInvalidPayload(t *testing.T) {
	svc, _ := newUserFixture()

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "ab", // too short
		Email:    "not-an-email",
		Password: "short",
		FullName: "",
		Role:     models.RoleTeacher,
	})
	assert.Error(t, err)
}

func TestUserServiceCreateUnknownRole(t *testing.T) {
	svc, _ := newUserFixture()

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.UserRole("JANITOR"),
	})
	assert.Error(t, err)
}

func TestUserServiceUpdate(t *testing.T) {
	svc, repo := newUserFixture()

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), user.ID, models.UpdateUserRequest{
		Email:    strPtr("new@example.com"),
		FullName: strPtr("Nguyen Van An"),
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "Nguyen Van An", updated.FullName)
	assert.Equal(t, models.RoleTeacher, updated.Role)
	assert.Equal(t, "new@example.com", repo.users[user.ID].Email)
}

func TestUserServiceUpdateEmailTaken(t *testing.T) {
	svc, _ := newUserFixture()

	first, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), models.CreateUserRequest{
		Username: "tran.thi.b",
		Email:    "b@example.com",
		Password: "secret-pass",
		FullName: "Tran Thi B",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), first.ID, models.UpdateUserRequest{Email: strPtr("b@example.com")})
	assert.Error(t, err)
}

func TestUserServiceChangePassword(t *testing.T) {
	svc, repo := newUserFixture()

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "wrong-pass",
		NewPassword: "next-secret",
	})
	assert.Error(t, err)

	err = svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{
		OldPassword: "secret-pass",
		NewPassword: "next-secret",
	})
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[user.ID].PasswordHash), []byte("next-secret")))
}

func TestUserServiceSetEnabled(t *testing.T) {
	svc, repo := newUserFixture()

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetEnabled(context.Background(), user.ID, false))
	assert.False(t, repo.users[user.ID].Enabled)

	err = svc.SetEnabled(context.Background(), 99, false)
	assert.Error(t, err)
}

func TestUserServiceDelete(t *testing.T) {
	svc, repo := newUserFixture()

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Username: "nguyen.van.a",
		Email:    "a@example.com",
		Password: "secret-pass",
		FullName: "Nguyen Van A",
		Role:     models.RoleTeacher,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), user.ID))
	assert.Equal(t, []int64{user.ID}, repo.deleted)

	err = svc.Delete(context.Background(), user.ID)
	assert.Error(t, err)
}

func TestUserServiceListTeachers(t *testing.T) {
	svc, repo := newUserFixture()

	repo.users[1] = &models.User{ID: 1, Username: "t1", Role: models.RoleTeacher, Enabled: true}
	repo.users[2] = &models.User{ID: 2, Username: "t2", Role: models.RoleTeacher, Enabled: false}
	repo.users[3] = &models.User{ID: 3, Username: "boss", Role: models.RoleAdmin, Enabled: true}

	teachers, err := svc.ListTeachers(context.Background())
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "t1", teachers[0].Username)
}

func TestUserServiceStats(t *testing.T) {
	svc, repo := newUserFixture()

	repo.users[1] = &models.User{ID: 1, Role: models.RoleTeacher, Enabled: true}
	repo.users[2] = &models.User{ID: 2, Role: models.RoleTeacher, Enabled: false}
	repo.users[3] = &models.User{ID: 3, Role: models.RoleAdmin, Enabled: true}

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveUsers)
	assert.Equal(t, 2, stats.TotalTeacher)
	assert.Equal(t, 1, stats.TotalAdmins)
}
