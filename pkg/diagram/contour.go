package diagram

import (
	"image"
	"image/color"
)

// toGray flattens any image into 8-bit grayscale.
func toGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}

	return gray
}

// adaptiveThreshold produces an inverted binary image: a pixel is foreground
// (true) when it is darker than its local window mean by more than offset.
// Window means are computed with an integral image so the pass stays linear
// in pixel count.
func adaptiveThreshold(gray *image.Gray, window, offset int) [][]bool {
	bounds := gray.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	integral := make([][]int64, height+1)
	for i := range integral {
		integral[i] = make([]int64, width+1)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pixel := int64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			integral[y+1][x+1] = pixel + integral[y][x+1] + integral[y+1][x] - integral[y][x]
		}
	}

	radius := window / 2
	binary := make([][]bool, height)
	for y := 0; y < height; y++ {
		binary[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			x0 := max(0, x-radius)
			y0 := max(0, y-radius)
			x1 := min(width-1, x+radius)
			y1 := min(height-1, y+radius)

			area := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[y1+1][x1+1] - integral[y0][x1+1] - integral[y1+1][x0] + integral[y0][x0]
			mean := sum / area

			pixel := int64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			binary[y][x] = pixel < mean-int64(offset)
		}
	}

	return binary
}

// countContours counts connected foreground regions (8-connectivity) whose
// pixel area exceeds minArea.
func countContours(binary [][]bool, minArea int) int {
	if len(binary) == 0 {
		return 0
	}

	height := len(binary)
	width := len(binary[0])
	visited := make([][]bool, height)
	for i := range visited {
		visited[i] = make([]bool, width)
	}

	contours := 0
	stack := make([]image.Point, 0, 256)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !binary[y][x] || visited[y][x] {
				continue
			}

			area := 0
			stack = append(stack[:0], image.Point{X: x, Y: y})
			visited[y][x] = true

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				area++

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= width || ny >= height {
							continue
						}
						if binary[ny][nx] && !visited[ny][nx] {
							visited[ny][nx] = true
							stack = append(stack, image.Point{X: nx, Y: ny})
						}
					}
				}
			}

			if area > minArea {
				contours++
			}
		}
	}

	return contours
}
