package pilot

import "github.com/aretw0/vehicle/pkg/domain"

// Extract reduces f to the feature vector described by spec.
func Extract(f *domain.Frame, spec FeatureSpec) []float64 {
	out := make([]float64, spec.Len())
	top := int(float64(f.Height) * spec.CropTop)
	rows := f.Height - top
	if rows <= 0 || spec.Len() == 0 {
		return out
	}

	for cy := 0; cy < spec.Height; cy++ {
		y0 := top + cy*rows/spec.Height
		y1 := max(top+(cy+1)*rows/spec.Height, y0+1)
		for cx := 0; cx < spec.Width; cx++ {
			x0 := cx * f.Width / spec.Width
			x1 := max((cx+1)*f.Width/spec.Width, x0+1)

			var sum float64
			var n int
			for y := y0; y < y1 && y < f.Height; y++ {
				for x := x0; x < x1 && x < f.Width; x++ {
					sum += f.Luma(x, y)
					n++
				}
			}
			if n > 0 {
				out[cy*spec.Width+cx] = sum / float64(n) / 255
			}
		}
	}
	return out
}
