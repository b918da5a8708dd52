//go:build quickclipdebug

package navigation

import "fmt"

func invalidCursor(c Cursor) {
	panic(fmt.Sprintf("navigation: cursor %s does not denote an item", c))
}
