package kmlgen

import (
	"fmt"
	"path/filepath"
)

// GenKmlName derives an output file name from an input path: the base
// name with its extension replaced by ext, and .idx inserted when idx > 0.
func GenKmlName(inp string, ext string, idx int) string {
	outfn := filepath.Base(inp)
	oext := filepath.Ext(outfn)
	if len(oext) < len(outfn) {
		outfn = outfn[0 : len(outfn)-len(oext)]
	}
	if idx > 0 {
		ext = fmt.Sprintf(".%d%s", idx, ext)
	}
	return outfn + ext
}
