package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-tableorder/models"
)

func TestCreateTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	table, err := f.tables.CreateTable(ctx, CreateTableInput{Name: "  A1 ", Zone: "indoor", Type: models.TableTypeVIP, Capacity: 6})
	require.NoError(t, err)
	assert.Equal(t, "A1", table.Name)
	assert.Equal(t, models.TableAvailable, table.Status)
	assert.Nil(t, table.CurrentSessionID)
	assert.NotEmpty(t, table.QRCode)

	plain, err := f.tables.CreateTable(ctx, CreateTableInput{Name: "A2", QRCode: "fixed-token"})
	require.NoError(t, err)
	assert.Equal(t, models.TableTypeRegular, plain.Type)
	assert.Equal(t, 4, plain.Capacity)

	_, err = f.tables.CreateTable(ctx, CreateTableInput{Name: "A3", QRCode: "fixed-token"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.tables.CreateTable(ctx, CreateTableInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.tables.CreateTable(ctx, CreateTableInput{Name: "A4", Type: "ROOFTOP"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	tables, err := f.tables.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "A1", tables[0].Name)
}

func TestGetTableByQR(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table := f.createTable(t, "B1")

	got, err := f.tables.GetTableByQR(ctx, table.QRCode)
	require.NoError(t, err)
	assert.Equal(t, table.ID, got.ID)

	_, err = f.tables.GetTableByQR(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.tables.GetTable(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	busy, sessionID := openSession(t, f, "C1")
	free := f.createTable(t, "C2")

	assert.ErrorIs(t, f.tables.DeleteTable(ctx, busy.ID), ErrInvalidState)
	assert.ErrorIs(t, f.tables.DeleteTable(ctx, 404), ErrNotFound)
	require.NoError(t, f.tables.DeleteTable(ctx, free.ID))
	_, err := f.tables.GetTable(ctx, free.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// history keeps pointing at a deleted table
	_, err = f.sessions.Close(ctx, sessionID)
	require.NoError(t, err)
	require.NoError(t, f.tables.DeleteTable(ctx, busy.ID))
	s, err := f.sessions.GetSession(ctx, sessionID)
	require.NoError(t, err)
	require.NotNil(t, s.Table)
	assert.Equal(t, "C1", s.Table.Name)
}

func TestUpdateTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	table, sessionID := openSession(t, f, "D1")

	name, zone, capacity := " D1 window ", "terrace", 6
	vip := models.TableTypeVIP
	got, err := f.tables.UpdateTable(ctx, table.ID, UpdateTableInput{
		Name: &name, Zone: &zone, Capacity: &capacity, Type: &vip, RegenerateQR: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "D1 window", got.Name)
	assert.Equal(t, "terrace", got.Zone)
	assert.Equal(t, 6, got.Capacity)
	assert.Equal(t, models.TableTypeVIP, got.Type)
	assert.NotEqual(t, table.QRCode, got.QRCode)

	// occupancy is untouched
	assert.Equal(t, models.TableOccupied, got.Status)
	require.NotNil(t, got.CurrentSessionID)
	assert.Equal(t, sessionID, *got.CurrentSessionID)

	_, err = f.tables.GetTableByQR(ctx, table.QRCode)
	assert.ErrorIs(t, err, ErrNotFound)

	blank, zero := "  ", 0
	_, err = f.tables.UpdateTable(ctx, table.ID, UpdateTableInput{Name: &blank})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.tables.UpdateTable(ctx, table.ID, UpdateTableInput{Capacity: &zero})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.tables.UpdateTable(ctx, 404, UpdateTableInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}
