// Package main is the entry point for marketplace-sync.
package main

import (
	"github.com/donaldgifford/marketplace-sync/cmd/marketplace-sync/cmd"
)

func main() {
	cmd.Execute()
}
