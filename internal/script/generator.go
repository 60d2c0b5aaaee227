// Package script renders the command script executed by the remote CAD
// engine. Generation is a pure function of its inputs: identical placement
// lists and metadata produce byte-identical output, so scripts can be
// hashed, diffed, or attached to failure reports as evidence.
package script

import (
	"fmt"
	"strings"

	"casegen/internal/placement"
)

const xrefLayer = "XREF_CASESTUDY"

// XrefPlacement pairs a placement with the file path its attach command
// references. The path is the staged local name of either the product's
// own symbol drawing or the shared placeholder.
type XrefPlacement struct {
	Placement placement.Placement
	Path      string
}

// Metadata carries the run labels baked into the script. No field may be
// time-dependent.
type Metadata struct {
	OutputFilename string
	ProjectLabel   string
	AreaLabel      string
	RevisionLabel  string
	SaveFormat     string // DWG format version for SAVEAS, e.g. "2018"
}

// Generate renders the full command script. Placements without a resolved
// product id are skipped, not errors; zero attach lines still yields a
// valid script and the caller decides whether that is acceptable.
func Generate(placements []XrefPlacement, meta Metadata) string {
	var b strings.Builder

	writeHeader(&b, meta)

	// Suppress file dialogs and command echo so the engine never blocks
	// on interactive prompts.
	b.WriteString("FILEDIA 0\n")
	b.WriteString("CMDDIA 0\n")

	fmt.Fprintf(&b, "-LAYER M %s\n\n", xrefLayer)

	for _, xp := range placements {
		if xp.Placement.ProductID == "" {
			continue
		}
		b.WriteString(attachCommand(xp))
		b.WriteByte('\n')
	}

	b.WriteString("ZOOM E\n")
	b.WriteString("REDRAW\n")
	b.WriteString("-LAYER S 0\n\n")

	format := meta.SaveFormat
	if format == "" {
		format = "2018"
	}
	fmt.Fprintf(&b, "SAVEAS %s \"%s\"\n", format, meta.OutputFilename)

	b.WriteString("FILEDIA 1\n")
	b.WriteString("CMDDIA 1\n")
	b.WriteString("QUIT Y\n")

	return b.String()
}

func writeHeader(b *strings.Builder, meta Metadata) {
	b.WriteString("; case-study xref composition script\n")
	if meta.ProjectLabel != "" || meta.AreaLabel != "" || meta.RevisionLabel != "" {
		fmt.Fprintf(b, "; project %s area %s revision %s\n", meta.ProjectLabel, meta.AreaLabel, meta.RevisionLabel)
	}
	fmt.Fprintf(b, "; output %s\n", meta.OutputFilename)
}

// attachCommand encodes one XREF attach line. Scale is -1 on a mirrored
// axis and +1 otherwise, independently per axis; both flags together give
// a 180-degree flip on top of the stated rotation.
func attachCommand(xp XrefPlacement) string {
	scaleX := 1
	if xp.Placement.MirrorX {
		scaleX = -1
	}
	scaleY := 1
	if xp.Placement.MirrorY {
		scaleY = -1
	}

	return fmt.Sprintf("-XREF A \"%s\" %.1f,%.1f %d %d %.1f",
		normalizePath(xp.Path),
		xp.Placement.X, xp.Placement.Y,
		scaleX, scaleY,
		xp.Placement.Rotation,
	)
}

// normalizePath forces forward slashes; the engine resolves staged inputs
// by forward-slash paths regardless of host platform.
func normalizePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
