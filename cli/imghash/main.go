package main

import (
	"os"

	imghashcmder "github.com/s-bear/image-hash/cmd/imghash"
)

func main() {
	cmd := imghashcmder.NewImghashCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
