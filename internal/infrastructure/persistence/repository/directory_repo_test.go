package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minhtran/claimflow/internal/domain/claim"
)

func TestStaffDirectory_GetByID(t *testing.T) {
	db := setupTestDB(t)
	dir := NewStaffDirectory(db, zap.NewNop())
	ctx := context.Background()

	s, err := dir.GetByID(ctx, "finance-1")
	require.NoError(t, err)
	assert.Equal(t, "Thao", s.Name)
	assert.Equal(t, "thao@example.com", s.Email)
	assert.Equal(t, claim.RoleFinance, s.Role)

	_, err = dir.GetByID(ctx, "ghost")
	assert.True(t, errors.Is(err, claim.ErrNotFound), "err = %v", err)
}

func TestStaffDirectory_RoleOf(t *testing.T) {
	db := setupTestDB(t)
	dir := NewStaffDirectory(db, zap.NewNop())
	ctx := context.Background()

	role, err := dir.RoleOf(ctx, "approver-1")
	require.NoError(t, err)
	assert.Equal(t, claim.RoleApprover, role)
}

func TestStaffDirectory_ListByRole(t *testing.T) {
	db := setupTestDB(t)
	dir := NewStaffDirectory(db, zap.NewNop())
	ctx := context.Background()

	approvers, err := dir.ListByRole(ctx, claim.RoleApprover)
	require.NoError(t, err)
	require.Len(t, approvers, 2)
	assert.Equal(t, "approver-1", approvers[0].ID)

	none, err := dir.ListByRole(ctx, claim.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProjectDirectory_GetByID(t *testing.T) {
	db := setupTestDB(t)
	dir := NewProjectDirectory(db, zap.NewNop())
	ctx := context.Background()

	p, err := dir.GetByID(ctx, "proj-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Platform", p.Name)
	assert.True(t, p.Active)

	missing, err := dir.GetByID(ctx, "proj-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProjectDirectory_ResolveApprovers(t *testing.T) {
	db := setupTestDB(t)
	dir := NewProjectDirectory(db, zap.NewNop())
	ctx := context.Background()

	chain, err := dir.ResolveApprovers(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"approver-1", "approver-2"}, chain)

	empty, err := dir.ResolveApprovers(ctx, "proj-empty")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
