package nurbs

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrArcTooWide is returned by ThreePointArc when the arc through the
// three points subtends half a turn or more.
var ErrArcTooWide = errors.New("arc subtends at least half a turn")

// errMsg returns an error with a message function name and line number.
func errMsg(msg string) error {
	pc, _, line, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("?: %s", msg)
	}
	fn := runtime.FuncForPC(pc)
	return fmt.Errorf("%s line %d: %s", fn.Name(), line, msg)
}
