package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-helpdesk/internal/repository/memory"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

func TestDepartmentCRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewDepartmentService(memory.New().Departments(), nil, nil)

	dept, err := svc.Create(ctx, manager, "  Library ", "books")
	require.NoError(t, err)
	assert.Equal(t, "Library", dept.Name)

	_, err = svc.Create(ctx, leadership, "library", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.Create(ctx, itStaff, "Sports", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = svc.Create(ctx, manager, " ", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	renamed := "Main Library"
	updated, err := svc.Update(ctx, manager, dept.ID, DepartmentUpdate{Name: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "Main Library", updated.Name)
	assert.Equal(t, "books", updated.Description)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, manager, dept.ID))
	_, err = svc.Get(ctx, dept.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.True(t, apperrors.HasCode(svc.Delete(ctx, manager, dept.ID), apperrors.CodeNotFound))
}

func TestDepartmentResolveAndSeed(t *testing.T) {
	ctx := context.Background()
	svc := NewDepartmentService(memory.New().Departments(), nil, nil)

	require.NoError(t, svc.Seed(ctx, []string{"IT Department", "", "Finance", "IT Department"}))
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	dept, err := svc.Resolve(ctx, "it department", false)
	require.NoError(t, err)
	assert.Equal(t, "IT Department", dept.Name)

	_, err = svc.Resolve(ctx, "Dormitory", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	created, err := svc.Resolve(ctx, "Dormitory", true)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}
