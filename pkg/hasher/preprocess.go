package hasher

import "image"

// grayscale converts img to a height x width matrix of luminance values in
// [0, 1], averaging the red/green/blue channels.
func grayscale(img image.Image) [][]float64 {
	b := img.Bounds()
	h, w := b.Dy(), b.Dx()

	out := make([][]float64, h)
	for y := 0; y < h; y++ {
		out[y] = make([]float64, w)
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out[y][x] = (float64(r) + float64(g) + float64(bl)) / 3 / 65535
		}
	}
	return out
}

// tileSize distributes b groups evenly over a items using Bresenham's
// algorithm, spreading a box filter across unevenly dividing dimensions.
func tileSize(a, b int) []int {
	sizes := make([]int, b)
	j, d := 0, 0
	for i := 0; i < a; i++ {
		sizes[j]++
		d += b
		if d >= a {
			d -= a
			j++
		}
	}
	return sizes
}

// resizeGray box-filters src to outH x outW, handling both down- and
// up-sizing in either dimension via tileSize-distributed averaging.
func resizeGray(src [][]float64, outH, outW int) [][]float64 {
	inH := len(src)

	rows := make([][]float64, inH)
	for y := 0; y < inH; y++ {
		rows[y] = resizeRow(src[y], outW)
	}

	out := make([][]float64, outH)
	for i := range out {
		out[i] = make([]float64, outW)
	}

	switch {
	case outH == inH:
		for y := 0; y < outH; y++ {
			copy(out[y], rows[y])
		}
	case inH < outH:
		tiles := tileSize(outH, inH)
		oy := 0
		for iy := 0; iy < inH; iy++ {
			for t := 0; t < tiles[iy]; t++ {
				copy(out[oy], rows[iy])
				oy++
			}
		}
	default: // outH < inH
		tiles := tileSize(inH, outH)
		iy := 0
		for oy := 0; oy < outH; oy++ {
			th := tiles[oy]
			for t := 0; t < th; t++ {
				for x := 0; x < outW; x++ {
					out[oy][x] += rows[iy][x]
				}
				iy++
			}
			for x := 0; x < outW; x++ {
				out[oy][x] /= float64(th)
			}
		}
	}
	return out
}

// resizeRow box-filters one row to outW samples.
func resizeRow(row []float64, outW int) []float64 {
	inW := len(row)
	out := make([]float64, outW)

	switch {
	case outW == inW:
		copy(out, row)
	case inW < outW:
		tiles := tileSize(outW, inW)
		ox := 0
		for ix := 0; ix < inW; ix++ {
			for t := 0; t < tiles[ix]; t++ {
				out[ox] = row[ix]
				ox++
			}
		}
	default: // outW < inW
		tiles := tileSize(inW, outW)
		ix := 0
		for ox := 0; ox < outW; ox++ {
			tw := tiles[ox]
			var sum float64
			for t := 0; t < tw; t++ {
				sum += row[ix]
				ix++
			}
			out[ox] = sum / float64(tw)
		}
	}
	return out
}
