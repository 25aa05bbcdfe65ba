//go:build tools
// +build tools

// Tool dependencies invoked through go generate (mockgen), pinned in go.mod.
package chat_relay

import (
	_ "go.uber.org/mock/mockgen"
)
