package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wowsandek/scud-portal/internal/apperr"
	"github.com/wowsandek/scud-portal/internal/model"
)

func TestStaffAddAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewStaffService(db, testLogger())
	tenant := createTenant(t, db, "store-a")
	other := createTenant(t, db, "store-b")
	ctx := context.Background()

	addStaff(t, svc, tenant.ID, "Ivan Petrov", "C1")
	addStaff(t, svc, tenant.ID, "Anna Orlova", "C2")
	addStaff(t, svc, other.ID, "Olga Popova", "C3")

	members, err := svc.ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Ivan Petrov", members[0].FullName)
	assert.Equal(t, "Anna Orlova", members[1].FullName)

	_, err = svc.Add(ctx, tenant.ID, "", "C4")
	var ve *apperr.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.Add(ctx, 9999, "Ivan Petrov", "C1")
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestStaffAddEnforcesCapacity(t *testing.T) {
	db := newTestDB(t)
	svc := NewStaffService(db, testLogger())
	tenant := createTenant(t, db, "store-a")
	require.NoError(t, db.Model(tenant).Update("max_staff", 1).Error)
	ctx := context.Background()

	addStaff(t, svc, tenant.ID, "Ivan Petrov", "C1")

	_, err := svc.Add(ctx, tenant.ID, "Anna Orlova", "C2")
	var sc *apperr.StateConflictError
	require.ErrorAs(t, err, &sc)
	assert.ErrorContains(t, err, "staff limit of 1")

	// Removing a member frees the slot again.
	members, err := svc.ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, members[0].ID))

	addStaff(t, svc, tenant.ID, "Anna Orlova", "C2")
}

func TestStaffRemoveSoftDeletes(t *testing.T) {
	db := newTestDB(t)
	svc := NewStaffService(db, testLogger())
	tenant := createTenant(t, db, "store-a")
	ctx := context.Background()

	member := addStaff(t, svc, tenant.ID, "Ivan Petrov", "C1")
	require.NoError(t, svc.Remove(ctx, member.ID))

	members, err := svc.ListByTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	// The row survives for audit, marked deleted.
	var deleted model.StaffMember
	require.NoError(t, db.Unscoped().First(&deleted, member.ID).Error)
	assert.True(t, deleted.DeletedAt.Valid)

	var nf *apperr.NotFoundError
	assert.ErrorAs(t, svc.Remove(ctx, member.ID), &nf)
}
