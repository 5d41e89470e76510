package server

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedUsers creates two users and logs in as the first.
func seedUsers(t *testing.T, env *testEnv) (*models.User, *models.User) {
	t.Helper()
	user := testutil.CreateUser(t, env.db, "testuser", "password")
	other := testutil.CreateUser(t, env.db, "user2", "password")
	env.loginAs(user)
	return user, other
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "testuser", "password")
	testutil.CreateUser(t, env.db, "someone", "password")

	resp := env.get("/users")
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<div class="card user-card">`)
	assert.Contains(t, body, "<p>@testuser</p>")
	assert.Contains(t, body, "<p>@someone</p>")
}

func TestListUsers_Search(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "testuser", "password")
	testutil.CreateUser(t, env.db, "someone", "password")

	body := readBody(t, env.get("/users?q=test"))
	assert.Contains(t, body, "<p>@testuser</p>")
	assert.NotContains(t, body, "<p>@someone</p>")

	body = readBody(t, env.get("/users?q=zzz"))
	assert.Contains(t, body, "Sorry, no users found")
}

func TestShowUser(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "testuser", "password")
	testutil.CreateMessage(t, env.db, user.ID, "my first warble")

	resp := env.get(fmt.Sprintf("/users/%d", user.ID))
	body := readBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<h4 id="sidebar-username">@testuser</h4>`)
	assert.Contains(t, body, "my first warble")
}

func TestShowUser_NotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/users/9999", "/users/abc", "/nowhere"} {
		resp := env.get(path)
		body := readBody(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Contains(t, body, "404", path)
	}
}

func TestShowFollowing(t *testing.T) {
	t.Run("logged in", func(t *testing.T) {
		env := newTestEnv(t)
		user, other := seedUsers(t, env)
		testutil.CreateFollow(t, env.db, user.ID, other.ID)

		resp := env.get(fmt.Sprintf("/users/%d/following", user.ID))
		body := readBody(t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `<h4 id="sidebar-username">@testuser</h4>`)
		assert.Contains(t, body, "<p>@user2</p>")
	})

	t.Run("anonymous", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateUser(t, env.db, "testuser", "password")

		resp := env.get(fmt.Sprintf("/users/%d/following", user.ID))
		requireRedirectHome(t, resp)
	})
}

func TestShowFollowers(t *testing.T) {
	t.Run("logged in", func(t *testing.T) {
		env := newTestEnv(t)
		user, other := seedUsers(t, env)
		testutil.CreateFollow(t, env.db, other.ID, user.ID)

		resp := env.get(fmt.Sprintf("/users/%d/followers", user.ID))
		body := readBody(t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `<h4 id="sidebar-username">@testuser</h4>`)
		assert.Contains(t, body, "<p>@user2</p>")
	})

	t.Run("anonymous", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateUser(t, env.db, "testuser", "password")

		resp := env.get(fmt.Sprintf("/users/%d/followers", user.ID))
		requireRedirectHome(t, resp)
	})
}

func TestShowLikes(t *testing.T) {
	t.Run("logged in", func(t *testing.T) {
		env := newTestEnv(t)
		user, other := seedUsers(t, env)
		msg := testutil.CreateMessage(t, env.db, other.ID, "liked warble")
		testutil.CreateMessage(t, env.db, other.ID, "ignored warble")
		testutil.CreateLike(t, env.db, user.ID, msg.ID)

		resp := env.get(fmt.Sprintf("/users/%d/likes", user.ID))
		body := readBody(t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `<h4 id="sidebar-username">@testuser</h4>`)
		assert.Contains(t, body, "liked warble")
		assert.NotContains(t, body, "ignored warble")
		assert.Contains(t, body, "btn-primary")
	})

	t.Run("anonymous", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateUser(t, env.db, "testuser", "password")

		resp := env.get(fmt.Sprintf("/users/%d/likes", user.ID))
		requireRedirectHome(t, resp)
	})
}

func TestFollow(t *testing.T) {
	t.Run("logged in", func(t *testing.T) {
		env := newTestEnv(t)
		user, other := seedUsers(t, env)

		resp := env.post(fmt.Sprintf("/users/follow/%d", other.ID), nil)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, fmt.Sprintf("/users/%d/following", user.ID), resp.Header.Get("Location"))

		_, body := env.follow(http.MethodGet, resp.Header.Get("Location"), nil)
		assert.Contains(t, body, "<p>@user2</p>")
	})

	t.Run("self", func(t *testing.T) {
		env := newTestEnv(t)
		user, _ := seedUsers(t, env)

		_, body := env.follow(http.MethodPost, fmt.Sprintf("/users/follow/%d", user.ID), nil)
		assert.Contains(t, body, "You cannot follow yourself")

		var n int64
		require.NoError(t, env.db.Model(&models.Follow{}).Count(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("unknown user", func(t *testing.T) {
		env := newTestEnv(t)
		seedUsers(t, env)

		resp := env.post("/users/follow/9999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("anonymous", func(t *testing.T) {
		env := newTestEnv(t)
		other := testutil.CreateUser(t, env.db, "user2", "password")

		resp := env.post(fmt.Sprintf("/users/follow/%d", other.ID), nil)
		requireRedirectHome(t, resp)
	})
}

func TestStopFollowing(t *testing.T) {
	t.Run("logged in", func(t *testing.T) {
		env := newTestEnv(t)
		user, other := seedUsers(t, env)
		testutil.CreateFollow(t, env.db, user.ID, other.ID)

		resp, body := env.follow(http.MethodPost, fmt.Sprintf("/users/stop-following/%d", other.ID), nil)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotContains(t, body, "<p>@user2</p>")
	})

	t.Run("anonymous", func(t *testing.T) {
		env := newTestEnv(t)
		user := testutil.CreateUser(t, env.db, "testuser", "password")
		other := testutil.CreateUser(t, env.db, "user2", "password")
		testutil.CreateFollow(t, env.db, user.ID, other.ID)

		resp := env.post(fmt.Sprintf("/users/stop-following/%d", other.ID), nil)
		requireRedirectHome(t, resp)

		var n int64
		require.NoError(t, env.db.Model(&models.Follow{}).Count(&n).Error)
		assert.EqualValues(t, 1, n)
	})
}

func TestEditProfileForm(t *testing.T) {
	t.Run("logged in", func(t *testing.T) {
		env := newTestEnv(t)
		seedUsers(t, env)

		resp := env.get("/users/profile")
		body := readBody(t, resp)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Edit Your Profile.")
		assert.Contains(t, body, `value="testuser@test.com"`)
	})

	t.Run("anonymous", func(t *testing.T) {
		env := newTestEnv(t)

		requireRedirectHome(t, env.get("/users/profile"))
		requireRedirectHome(t, env.post("/users/profile", url.Values{"bio": {"x"}}))
	})
}

func profileValues(user *models.User, password string) url.Values {
	return url.Values{
		"username":         {user.Username},
		"email":            {user.Email},
		"image_url":        {user.ImageURL},
		"header_image_url": {user.HeaderImageURL},
		"bio":              {"This is a new bio"},
		"location":         {"Somewhere"},
		"password":         {password},
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	user, _ := seedUsers(t, env)

	resp, body := env.follow(http.MethodPost, "/users/profile", profileValues(user, "password"))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "This is a new bio")
	assert.Contains(t, body, "Profile updated.")

	var saved models.User
	require.NoError(t, env.db.First(&saved, user.ID).Error)
	assert.Equal(t, "Somewhere", saved.Location)
	assert.Equal(t, user.Password, saved.Password)
}

func TestUpdateProfile_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(url.Values)
		message string
	}{
		{
			name:    "empty email",
			mutate:  func(v url.Values) { v.Set("email", "") },
			message: "email is required",
		},
		{
			name:    "wrong password",
			mutate:  func(v url.Values) { v.Set("password", "nope") },
			message: "Wrong password, please try again.",
		},
		{
			name:    "username taken",
			mutate:  func(v url.Values) { v.Set("username", "user2") },
			message: "already taken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			user, _ := seedUsers(t, env)

			form := profileValues(user, "password")
			tt.mutate(form)
			resp := env.post("/users/profile", form)
			body := readBody(t, resp)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "Edit Your Profile.")
			assert.Contains(t, body, tt.message)

			var saved models.User
			require.NoError(t, env.db.First(&saved, user.ID).Error)
			assert.Empty(t, saved.Bio)
		})
	}
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	user, other := seedUsers(t, env)
	testutil.CreateMessage(t, env.db, user.ID, "bye")
	testutil.CreateFollow(t, env.db, other.ID, user.ID)

	resp := env.post("/users/delete", nil)

	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/signup", resp.Header.Get("Location"))
	assert.Empty(t, env.cookies[middleware.SessionCookieName])

	var n int64
	require.NoError(t, env.db.Model(&models.User{}).Where("id = ?", user.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, env.db.Model(&models.Message{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeleteUser_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "testuser", "password")

	requireRedirectHome(t, env.post("/users/delete", nil))

	var n int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}
