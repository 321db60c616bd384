package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/utulivu/core/user"
	inmemdb "github.com/trezcool/utulivu/storage/database/inmem"
	"github.com/trezcool/utulivu/testutil"
)

func TestUpdateUser_Validate(t *testing.T) {
	ctx := context.Background()
	conf := testutil.NewConfig()
	validate, _ := testutil.NewValidator()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	svc := user.NewService(repo, nil, conf)

	// students log in with their lower-cased student number
	studentUsr := testutil.CreateUser(t, repo, "Amani Njeri", "s001", "", []string{user.RoleStudent}, "", true)
	testutil.CreateUser(t, repo, "Baraka", "baraka1", "baraka@utulivu.test", nil, "", true)

	t.Run("name only keeps a short username", func(t *testing.T) {
		uu := user.UpdateUser{Name: "Amani W. Njeri"}
		require.NoError(t, uu.Validate(ctx, studentUsr, validate, svc))
		assert.Equal(t, "Amani W. Njeri", uu.Name)
		assert.Equal(t, "s001", uu.Username)
	})

	t.Run("unchanged username is not re-validated", func(t *testing.T) {
		uu := user.UpdateUser{Username: "S001", Email: "amani@utulivu.test"}
		require.NoError(t, uu.Validate(ctx, studentUsr, validate, svc))
		assert.Equal(t, "s001", uu.Username)
		assert.Equal(t, "amani@utulivu.test", uu.Email)
		assert.Equal(t, studentUsr.Name, uu.Name)
	})

	t.Run("new username follows the rules", func(t *testing.T) {
		for _, uname := range []string{"abc", "amani njeri", "amani-n"} {
			uu := user.UpdateUser{Username: uname}
			err := uu.Validate(ctx, studentUsr, validate, svc)
			verrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "%q: got %v", uname, err)
			assert.Equal(t, "username", verrs[0].Field())
		}
	})

	t.Run("new username must be free", func(t *testing.T) {
		uu := user.UpdateUser{Username: "Baraka1"}
		assert.Error(t, uu.Validate(ctx, studentUsr, validate, svc))
	})
}
