//go:build tools
// +build tools

// Package tools pins the code generators run through go generate (mockgen)
// so they resolve from go.mod on a fresh checkout.
package fanous_live

import (
	_ "go.uber.org/mock/mockgen"
)
