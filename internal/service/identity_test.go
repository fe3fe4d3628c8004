package service

import (
	"context"
	"testing"

	"ravencube/internal/models"
	"ravencube/internal/repository"
	"ravencube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityResolver(t *testing.T) {
	db := testutil.NewTestDB(t)
	r := NewIdentityResolver(repository.NewUserRepository(db))
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	id, err := r.ResolveID(ctx, alice.AuthSubject)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, id)

	_, err = r.ResolveID(ctx, "sub|unknown")
	assertCode(t, err, models.CodeNotFound)
	assert.Equal(t, "User not found", err.Error())

	_, err = r.Resolve(ctx, "")
	assertCode(t, err, models.CodeNotFound)
}
