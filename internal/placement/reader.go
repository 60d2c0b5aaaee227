package placement

import (
	"context"
	"database/sql"
	"fmt"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"

	"github.com/lib/pq"
)

const (
	queryRevisionExists = `SELECT id FROM area_revisions WHERE id = $1`

	queryPlacements = `
		SELECT sp.id, sp.project_product_id, pp.product_id,
		       sp.pos_x, sp.pos_y,
		       COALESCE(sp.rotation, 0),
		       COALESCE(sp.mirror_x, FALSE), COALESCE(sp.mirror_y, FALSE),
		       COALESCE(sp.symbol, '')
		FROM symbol_placements sp
		JOIN project_products pp ON pp.id = sp.project_product_id
		WHERE sp.area_revision_id = $1
		ORDER BY sp.created_at, sp.id`

	queryFloorPlan = `
		SELECT storage_path, file_name
		FROM floor_plans
		WHERE area_revision_id = $1`

	querySymbolPaths = `
		SELECT id, symbol_dwg_path
		FROM products
		WHERE id = ANY($1) AND symbol_dwg_path IS NOT NULL AND symbol_dwg_path <> ''`
)

// Reader loads placement data for one area revision. Read-only.
type Reader struct {
	db     *sql.DB
	logger logger.Logger
}

func NewReader(db *sql.DB, log logger.Logger) *Reader {
	return &Reader{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "placement-reader"}),
	}
}

// PlacementsForRevision returns every placement of the revision, each
// enriched with its catalog product id. Fails with NOT_FOUND when the
// revision does not exist and EMPTY_INPUT when it has no placements.
func (r *Reader) PlacementsForRevision(ctx context.Context, areaRevisionID string) ([]Placement, error) {
	var revID string
	err := r.db.QueryRowContext(ctx, queryRevisionExists, areaRevisionID).Scan(&revID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("Area revision", fmt.Sprintf("areaRevisionId: %s", areaRevisionID))
		}
		return nil, errors.NewExternalServiceError("postgres", err)
	}

	rows, err := r.db.QueryContext(ctx, queryPlacements, areaRevisionID)
	if err != nil {
		return nil, errors.NewExternalServiceError("postgres", err)
	}
	defer rows.Close()

	var placements []Placement
	for rows.Next() {
		var p Placement
		if err := rows.Scan(
			&p.ID, &p.ProjectProductID, &p.ProductID,
			&p.X, &p.Y, &p.Rotation,
			&p.MirrorX, &p.MirrorY, &p.Symbol,
		); err != nil {
			return nil, errors.NewExternalServiceError("postgres", err)
		}
		placements = append(placements, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewExternalServiceError("postgres", err)
	}

	if len(placements) == 0 {
		return nil, errors.NewEmptyInputError(fmt.Sprintf("areaRevisionId: %s", areaRevisionID))
	}

	r.logger.Debug("loaded placements", map[string]interface{}{
		"areaRevisionId": areaRevisionID,
		"count":          len(placements),
	})

	return placements, nil
}

// FloorPlanForRevision returns the base drawing reference for the revision.
func (r *Reader) FloorPlanForRevision(ctx context.Context, areaRevisionID string) (*FloorPlan, error) {
	var fp FloorPlan
	err := r.db.QueryRowContext(ctx, queryFloorPlan, areaRevisionID).Scan(&fp.StorageKey, &fp.FileName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("Floor plan", fmt.Sprintf("areaRevisionId: %s", areaRevisionID))
		}
		return nil, errors.NewExternalServiceError("postgres", err)
	}
	return &fp, nil
}

// SymbolsForPlacements resolves one SymbolResource per distinct product id
// referenced by the placements, in first-appearance order. Products without
// a stored drawing are synthesized as missing rather than dropped, so slot
// derivation downstream stays total over the placement set.
func (r *Reader) SymbolsForPlacements(ctx context.Context, placements []Placement) ([]SymbolResource, error) {
	var productIDs []string
	seen := make(map[string]bool)
	for _, p := range placements {
		if p.ProductID == "" || seen[p.ProductID] {
			continue
		}
		seen[p.ProductID] = true
		productIDs = append(productIDs, p.ProductID)
	}

	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, querySymbolPaths, pq.Array(productIDs))
	if err != nil {
		return nil, errors.NewExternalServiceError("postgres", err)
	}
	defer rows.Close()

	paths := make(map[string]string, len(productIDs))
	for rows.Next() {
		var id, storagePath string
		if err := rows.Scan(&id, &storagePath); err != nil {
			return nil, errors.NewExternalServiceError("postgres", err)
		}
		paths[id] = storagePath
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewExternalServiceError("postgres", err)
	}

	resources := make([]SymbolResource, 0, len(productIDs))
	for _, id := range productIDs {
		res := SymbolResource{ProductID: id}
		if storagePath, ok := paths[id]; ok {
			res.StoragePath = storagePath
			res.LocalName = LocalNameOf(storagePath)
			res.HasDrawing = true
		}
		resources = append(resources, res)
	}

	return resources, nil
}
