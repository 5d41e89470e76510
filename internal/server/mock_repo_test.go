package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteCascade(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Stats(ctx context.Context, id uint) (*models.UserStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStats), args.Error(1)
}

// newMockServer wires only the user service, which is all the auth handlers need.
func newMockServer(repo *MockUserRepository) *fiber.App {
	s := &Server{
		config:      testConfig(),
		sessions:    middleware.NewSessionManager(testSecret, time.Hour, false, nil),
		userRepo:    repo,
		userService: service.NewUserService(repo, bcrypt.MinCost),
	}
	return s.NewApp()
}

func postForm(t *testing.T, app *fiber.App, target string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestLogin_Mocked(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name           string
		setupMock      func(*MockUserRepository)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success",
			setupMock: func(m *MockUserRepository) {
				m.On("GetByUsername", mock.Anything, "testuser").
					Return(&models.User{ID: 1, Username: "testuser", Password: string(hash)}, nil).Once()
			},
			expectedStatus: http.StatusFound,
		},
		{
			name: "unknown user",
			setupMock: func(m *MockUserRepository) {
				m.On("GetByUsername", mock.Anything, "testuser").Return(nil, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "Invalid credentials.",
		},
		{
			name: "database failure",
			setupMock: func(m *MockUserRepository) {
				m.On("GetByUsername", mock.Anything, "testuser").
					Return(nil, models.NewInternalError(errors.New("connection reset"))).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "<h1>500</h1>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setupMock(repo)
			app := newMockServer(repo)

			resp := postForm(t, app, "/login", url.Values{
				"username": {"testuser"},
				"password": {"password"},
			})
			body := readBody(t, resp)

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedBody != "" {
				assert.Contains(t, body, tt.expectedBody)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestSignup_MockedConflict(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "testuser" && u.Password != "password"
	})).Return(models.NewConflictError("Username or email already taken", nil)).Once()
	app := newMockServer(repo)

	resp := postForm(t, app, "/signup", url.Values{
		"username": {"testuser"},
		"email":    {"testuser@test.com"},
		"password": {"password"},
	})
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Username already taken")
	repo.AssertExpectations(t)
}
