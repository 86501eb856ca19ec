package lower

import "github.com/oscilla-animator/oscilla-core/compiler/timeroot"

// lowerTimeRoot is the lowering for the patch's single TimeRoot
// marker block. TimeRoot carries no ports of its own; its only job is
// to select the time model compiler/timeroot.Resolve extracts before
// lowering ever runs, so there is nothing left to emit here.
func lowerTimeRoot(ctx *Context) Result {
	return Result{}
}

func init() {
	Register(timeroot.BlockTypeTimeRoot, lowerTimeRoot)
}
