// Package hashcmder provides the hash command for printing an image's
// perceptual hash without touching the index.
package hashcmder

import (
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/s-bear/image-hash/pkg/hasher"
)

const hashLongDesc string = `Print the perceptual hash of one or more image files.

Uses the 64-bit BlockHash average-hash algorithm by default. Pass --dct N to
use a DCT hash of size 8*N instead (N one of 1, 2, 3, 4, giving 64, 256, 576
or 1024 bits), matching the original imghash CLI's -dN flag.

Examples:
  imghash hash photo.jpg
  imghash hash --dct 2 photo.jpg another.png
  imghash hash -q photo.jpg`

const hashShortDesc string = "Print the perceptual hash of image files"

type hashCommander struct {
	dct   int
	quiet bool
}

// NewHashCmd builds the hash command.
func NewHashCmd() *cobra.Command {
	cmder := &hashCommander{}

	cmd := &cobra.Command{
		Use:   "hash FILE...",
		Short: hashShortDesc,
		Long:  hashLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.run(args)
		},
	}

	cmd.Flags().IntVar(&cmder.dct, "dct", 0, "Use a DCT hash of size 8*N, (8*N)^2 bits, instead of BlockHash (N: 1, 2, 3, or 4)")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only the hex hash, no filename")

	return cmd
}

func (c *hashCommander) run(paths []string) error {
	h, err := c.hasher()
	if err != nil {
		return err
	}

	failed := false
	for _, path := range paths {
		sum, err := hashFile(h, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}

		if c.quiet {
			fmt.Println(sum)
		} else {
			fmt.Printf("%s  %s\n", sum, path)
		}
	}

	if failed {
		return fmt.Errorf("one or more files could not be hashed")
	}
	return nil
}

func (c *hashCommander) hasher() (hasher.Hasher, error) {
	if c.dct == 0 {
		return hasher.BlockHash{}, nil
	}
	return hasher.NewDCTHash(c.dct * 8)
}

func hashFile(h hasher.Hasher, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	sum, err := h.Hash(img)
	if err != nil {
		return "", fmt.Errorf("hashing image: %w", err)
	}

	return hex.EncodeToString(sum), nil
}
