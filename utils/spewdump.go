package utils

import (
	"github.com/davecgh/go-spew/spew"
)

// scene graphs link parents both ways, depth keeps dumps finite
const dumpDepth = 12

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	MaxDepth:                dumpDepth,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	DisableMethods:          true,
	SortKeys:                true,
}

// SDump renders values for the /dump endpoints. Map keys are sorted so dumps diff cleanly.
func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}
