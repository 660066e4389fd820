package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Search builds the CLI and runs an arXiv search, printing the result table.
// Example: mage search "graph neural networks"
func Search(query string) error {
	mg.Deps(Build)
	return sh.RunV("./"+binDir+"/"+binName, "search", query)
}

// Scholar builds the CLI and runs a Google Scholar search.
func Scholar(query string) error {
	mg.Deps(Build)
	return sh.RunV("./"+binDir+"/"+binName, "scholar", query)
}
