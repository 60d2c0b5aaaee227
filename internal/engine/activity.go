package engine

import (
	"context"
	"fmt"

	"casegen/internal/common/errors"
	"casegen/internal/placement"
	"casegen/pkg/engineprofile"
)

// Fixed slot names. Symbol slots are named symbol_0..symbol_{n-1} on top of
// these; the count varies per run with the placement data.
const (
	SlotBaseDrawing = "baseDrawing"
	SlotScript      = "script"
	SlotResult      = "result"
	SlotPlaceholder = "placeholderSymbol"

	AliasProduction = "production"

	scriptLocalName = "casegen.scr"
)

// SymbolSlotName derives the deterministic slot name for the i-th symbol.
func SymbolSlotName(index int) string {
	return fmt.Sprintf("symbol_%d", index)
}

// SymbolSlot pairs a slot name with the local filename the engine stages
// the symbol drawing under.
type SymbolSlot struct {
	Name      string
	LocalName string
}

// SymbolSlots derives the dynamic slot list from the resources that have a
// stored drawing, in input order. Pure; re-derivation from the same ordered
// resource list yields the same names.
func SymbolSlots(resources []placement.SymbolResource) []SymbolSlot {
	var slots []SymbolSlot
	for _, res := range resources {
		if !res.HasDrawing {
			continue
		}
		slots = append(slots, SymbolSlot{
			Name:      SymbolSlotName(len(slots)),
			LocalName: res.LocalName,
		})
	}
	return slots
}

// BuildActivity assembles the per-run job definition: fixed base-drawing,
// script and result slots, one optional input per symbol drawing, and the
// fixed placeholder slot.
func BuildActivity(activityID string, profile *engineprofile.Profile, outputFilename string, symbols []SymbolSlot, placeholderLocalName string) *Activity {
	params := map[string]Parameter{
		SlotBaseDrawing: {
			Verb:        "get",
			LocalName:   "base.dwg",
			Required:    true,
			Description: "Floor plan base drawing",
		},
		SlotScript: {
			Verb:        "get",
			LocalName:   scriptLocalName,
			Required:    true,
			Description: "Generated command script",
		},
		SlotResult: {
			Verb:        "put",
			LocalName:   outputFilename,
			Required:    true,
			Description: "Composite output drawing",
		},
		SlotPlaceholder: {
			Verb:      "get",
			LocalName: placeholderLocalName,
		},
	}

	for _, s := range symbols {
		params[s.Name] = Parameter{
			Verb:      "get",
			LocalName: s.LocalName,
		}
	}

	return &Activity{
		ID:          activityID,
		CommandLine: profile.CommandLine,
		Engine:      profile.Engine,
		Parameters:  params,
		Description: "Case-study XREF composition",
	}
}

// EnsureActivity creates the activity, resolving a stale prior-run
// definition by delete-then-recreate exactly once, then binds the
// production alias. A second conflict is fatal.
func (c *Client) EnsureActivity(ctx context.Context, act *Activity) error {
	err := c.CreateActivity(ctx, act)
	if errors.IsCode(err, errors.ErrCodeDefinitionConflict) {
		c.logger.Warn("stale activity found, recreating", map[string]interface{}{
			"activityId": act.ID,
		})
		if delErr := c.DeleteActivity(ctx, act.ID); delErr != nil {
			return delErr
		}
		err = c.CreateActivity(ctx, act)
	}
	if err != nil {
		return err
	}

	return c.CreateAlias(ctx, act.ID, AliasProduction, 1)
}
