package main

import (
	"os"

	"github.com/vivaneiona/factextract/internal/cmder"
)

func main() {
	os.Exit(cmder.Execute(cmder.NewFactextractCmd(), os.Stderr))
}
