package collection

import (
	"os"
)

// Environment runs f with a scratch data folder that is removed afterwards.
func Environment(f func(dir string)) {
	dir, err := os.MkdirTemp("", "hashdb-collection-")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	f(dir)
}
