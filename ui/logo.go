package ui

import (
	_ "embed"
	"strings"
)

//go:embed logo.txt
var logo string

// Logo is the banner shown while the instance browser loads.
func Logo() string {
	return strings.TrimRight(logo, "\n")
}
