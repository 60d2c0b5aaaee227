// cmd/tools/script-preview/main.go
//
// Renders the command script for a placement set without touching the
// database or the engine. Useful for eyeballing attach lines before a run
// and for diffing script output across revisions.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"casegen/internal/generator"
	"casegen/internal/placement"
	"casegen/internal/script"
)

type previewPlacement struct {
	ProductID string  `json:"productId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	MirrorX   bool    `json:"mirrorX"`
	MirrorY   bool    `json:"mirrorY"`
	Symbol    string  `json:"symbol"`
}

type previewInput struct {
	ProjectCode    string             `json:"projectCode"`
	AreaCode       string             `json:"areaCode"`
	RevisionNumber int                `json:"revisionNumber"`
	Placements     []previewPlacement `json:"placements"`
}

func main() {
	inputPath := flag.String("input", "", "Path to a placements JSON file")
	saveFormat := flag.String("saveFormat", "2018", "DWG format version for SAVEAS")
	placeholder := flag.String("placeholder", "placeholder.dwg", "Local name used for products without a symbol")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: script-preview -input placements.json [-saveFormat 2018]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	var in previewInput
	if err := json.Unmarshal(data, &in); err != nil {
		fmt.Fprintf(os.Stderr, "parse input: %v\n", err)
		os.Exit(1)
	}

	xrefs := make([]script.XrefPlacement, 0, len(in.Placements))
	for _, p := range in.Placements {
		path := p.Symbol
		if path == "" {
			path = *placeholder
		} else {
			path = placement.LocalNameOf(path)
		}
		xrefs = append(xrefs, script.XrefPlacement{
			Placement: placement.Placement{
				ProductID: p.ProductID,
				X:         p.X,
				Y:         p.Y,
				Rotation:  p.Rotation,
				MirrorX:   p.MirrorX,
				MirrorY:   p.MirrorY,
				Symbol:    p.Symbol,
			},
			Path: path,
		})
	}

	out := script.Generate(xrefs, script.Metadata{
		OutputFilename: generator.OutputFilename(in.ProjectCode, in.AreaCode, in.RevisionNumber),
		ProjectLabel:   in.ProjectCode,
		AreaLabel:      in.AreaCode,
		RevisionLabel:  fmt.Sprintf("RV%d", in.RevisionNumber),
		SaveFormat:     *saveFormat,
	})

	fmt.Print(out)
}
