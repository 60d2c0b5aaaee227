package placement

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
)

const testRevisionID = "rev-42"

func newTestReader(t *testing.T) (*Reader, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReader(db, logger.NewTestLogger(t)), mock
}

func expectRevisionExists(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT id FROM area_revisions WHERE id = \$1`).
		WithArgs(testRevisionID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testRevisionID))
}

func TestPlacementsForRevision_Success(t *testing.T) {
	reader, mock := newTestReader(t)
	expectRevisionExists(mock)

	rows := sqlmock.NewRows([]string{
		"id", "project_product_id", "product_id",
		"pos_x", "pos_y", "rotation", "mirror_x", "mirror_y", "symbol",
	}).
		AddRow("sp-1", "ppr-1", "prod-a", 10.5, 20.0, 90.0, false, true, "symbols/a.dwg").
		AddRow("sp-2", "ppr-2", "prod-b", 1.0, 2.0, 0.0, false, false, "")

	mock.ExpectQuery(`SELECT sp.id, sp.project_product_id, pp.product_id`).
		WithArgs(testRevisionID).
		WillReturnRows(rows)

	placements, err := reader.PlacementsForRevision(context.Background(), testRevisionID)
	require.NoError(t, err)
	require.Len(t, placements, 2)

	assert.Equal(t, "prod-a", placements[0].ProductID)
	assert.Equal(t, 10.5, placements[0].X)
	assert.Equal(t, 90.0, placements[0].Rotation)
	assert.True(t, placements[0].MirrorY)
	assert.False(t, placements[1].MirrorX)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlacementsForRevision_RevisionNotFound(t *testing.T) {
	reader, mock := newTestReader(t)

	mock.ExpectQuery(`SELECT id FROM area_revisions WHERE id = \$1`).
		WithArgs(testRevisionID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := reader.PlacementsForRevision(context.Background(), testRevisionID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestPlacementsForRevision_EmptyRevision(t *testing.T) {
	reader, mock := newTestReader(t)
	expectRevisionExists(mock)

	mock.ExpectQuery(`SELECT sp.id, sp.project_product_id, pp.product_id`).
		WithArgs(testRevisionID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "project_product_id", "product_id",
			"pos_x", "pos_y", "rotation", "mirror_x", "mirror_y", "symbol",
		}))

	_, err := reader.PlacementsForRevision(context.Background(), testRevisionID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyInput))
}

func TestFloorPlanForRevision(t *testing.T) {
	reader, mock := newTestReader(t)

	mock.ExpectQuery(`SELECT storage_path, file_name`).
		WithArgs(testRevisionID).
		WillReturnRows(sqlmock.NewRows([]string{"storage_path", "file_name"}).
			AddRow("plans/base.dwg", "base.dwg"))

	fp, err := reader.FloorPlanForRevision(context.Background(), testRevisionID)
	require.NoError(t, err)
	assert.Equal(t, "plans/base.dwg", fp.StorageKey)
	assert.Equal(t, "base.dwg", fp.FileName)
}

func TestFloorPlanForRevision_NotFound(t *testing.T) {
	reader, mock := newTestReader(t)

	mock.ExpectQuery(`SELECT storage_path, file_name`).
		WithArgs(testRevisionID).
		WillReturnRows(sqlmock.NewRows([]string{"storage_path", "file_name"}))

	_, err := reader.FloorPlanForRevision(context.Background(), testRevisionID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestSymbolsForPlacements_FirstAppearanceOrderAndMissing(t *testing.T) {
	reader, mock := newTestReader(t)

	placements := []Placement{
		{ProductID: "prod-b"},
		{ProductID: "prod-a"},
		{ProductID: "prod-b"}, // duplicate, ignored
		{ProductID: ""},       // unresolved, ignored
		{ProductID: "prod-c"},
	}

	// prod-c has no stored drawing and is absent from the result set.
	rows := sqlmock.NewRows([]string{"id", "symbol_dwg_path"}).
		AddRow("prod-a", "symbols/nested/a.dwg").
		AddRow("prod-b", "symbols/b.dwg")

	mock.ExpectQuery(`SELECT id, symbol_dwg_path`).WillReturnRows(rows)

	resources, err := reader.SymbolsForPlacements(context.Background(), placements)
	require.NoError(t, err)
	require.Len(t, resources, 3)

	assert.Equal(t, "prod-b", resources[0].ProductID)
	assert.Equal(t, "prod-a", resources[1].ProductID)
	assert.Equal(t, "prod-c", resources[2].ProductID)

	assert.True(t, resources[0].HasDrawing)
	assert.Equal(t, "b.dwg", resources[0].LocalName)
	assert.Equal(t, "a.dwg", resources[1].LocalName)

	assert.False(t, resources[2].HasDrawing)
	assert.Empty(t, resources[2].LocalName)
}

func TestSymbolsForPlacements_NoResolvedProducts(t *testing.T) {
	reader, _ := newTestReader(t)

	resources, err := reader.SymbolsForPlacements(context.Background(), []Placement{{ProductID: ""}})
	require.NoError(t, err)
	assert.Nil(t, resources)
}
