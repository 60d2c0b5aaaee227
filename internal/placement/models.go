package placement

import "path"

// Placement is one product instance positioned on an area revision's drawing.
// Position and rotation are always defined; rotation defaults to 0 and the
// mirror flags to false when the editor left them unset.
type Placement struct {
	ID               string
	ProjectProductID string
	ProductID        string
	X                float64
	Y                float64
	Rotation         float64
	MirrorX          bool
	MirrorY          bool
	Symbol           string
}

// SymbolResource is the plan-view icon drawing for a catalog product. One
// entry exists per distinct product referenced by a placement set; products
// without a stored drawing get HasDrawing=false and resolve to the shared
// placeholder at staging time.
type SymbolResource struct {
	ProductID   string
	StoragePath string
	LocalName   string
	HasDrawing  bool
}

// FloorPlan references the base drawing already resident in the project bucket.
type FloorPlan struct {
	StorageKey string
	FileName   string
}

// LocalNameOf derives the filename-only portion of a symbol storage path,
// which is how the remote script references the staged file.
func LocalNameOf(storagePath string) string {
	return path.Base(storagePath)
}
