// Package all imports every store backend so that a single blank import
// wires the whole registry:
//
//	import _ "github.com/SeshatHQ/seshat/lib/store/all"
package all

import (
	_ "github.com/SeshatHQ/seshat/lib/store/bbolt"
	_ "github.com/SeshatHQ/seshat/lib/store/memory"
	_ "github.com/SeshatHQ/seshat/lib/store/mongo"
	_ "github.com/SeshatHQ/seshat/lib/store/valkey"
)
