package stdlib

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
)

// Default image dimensions and rendering parameters.
const (
	DefaultRows      = 1024
	DefaultCols      = 1024
	DefaultPower     = 0.8
	DefaultMagnifier = 1.0
)

// ImageData is a rows x cols grid of samples stored column-major: the value
// at (row, col) lives at col*Rows + row.
type ImageData struct {
	Rows   int
	Cols   int
	Values []float64
}

// NewImageData returns a zeroed grid.
func NewImageData(rows, cols int) *ImageData {
	return &ImageData{Rows: rows, Cols: cols, Values: make([]float64, rows*cols)}
}

func (d *ImageData) index(row, col int) (int, error) {
	if row < 0 || row >= d.Rows || col < 0 || col >= d.Cols {
		return 0, fmt.Errorf("pixel (%d, %d) out of range for %dx%d image", row, col, d.Rows, d.Cols)
	}
	return col*d.Rows + row, nil
}

// Set stores v at (row, col).
func (d *ImageData) Set(row, col int, v float64) error {
	i, err := d.index(row, col)
	if err != nil {
		return err
	}
	d.Values[i] = v
	return nil
}

// At returns the value at (row, col).
func (d *ImageData) At(row, col int) (float64, error) {
	i, err := d.index(row, col)
	if err != nil {
		return 0, err
	}
	return d.Values[i], nil
}

// Extrema returns the smallest and largest sample. NaN samples are skipped.
func (d *ImageData) Extrema() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range d.Values {
		if math.IsNaN(v) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min > max {
		return 0, 0
	}
	return min, max
}

// Environment is the mutable host state shared by external functions.
type Environment struct {
	Image     *ImageData
	Power     float64
	Magnifier float64
}

// EnvOption configures an Environment.
type EnvOption func(*Environment)

// WithDims sets the initial image dimensions.
func WithDims(rows, cols int) EnvOption {
	return func(e *Environment) {
		e.Image = NewImageData(rows, cols)
	}
}

// WithPower sets the gamma applied when rendering.
func WithPower(p float64) EnvOption {
	return func(e *Environment) {
		e.Power = p
	}
}

// WithMagnifier sets the gain applied before the gamma.
func WithMagnifier(m float64) EnvOption {
	return func(e *Environment) {
		e.Magnifier = m
	}
}

// NewEnvironment creates an environment with a 1024x1024 image, power 0.8
// and magnifier 1.0 unless overridden.
func NewEnvironment(opts ...EnvOption) *Environment {
	env := &Environment{
		Image:     NewImageData(DefaultRows, DefaultCols),
		Power:     DefaultPower,
		Magnifier: DefaultMagnifier,
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// Resize replaces the image with a zeroed rows x cols grid.
func (e *Environment) Resize(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("image dimensions must be positive, got %dx%d", rows, cols)
	}
	e.Image = NewImageData(rows, cols)
	return nil
}

// Render converts the samples to an 8-bit grayscale image. The image is
// Rows pixels wide and Cols pixels tall; each pixel is
// (magnifier*v/range)^power scaled to 0..255, where range is max - min.
func (e *Environment) Render() *image.Gray {
	d := e.Image
	img := image.NewGray(image.Rect(0, 0, d.Rows, d.Cols))
	min, max := d.Extrema()
	span := max - min
	for x := 0; x < d.Rows; x++ {
		for y := 0; y < d.Cols; y++ {
			v := d.Values[y*d.Rows+x]
			img.SetGray(x, y, color.Gray{Y: shade(math.Pow(e.Magnifier*v/span, e.Power))})
		}
	}
	return img
}

func shade(alpha float64) uint8 {
	switch {
	case math.IsNaN(alpha), alpha < 0:
		return 0
	case alpha > 1:
		return 255
	}
	return uint8(alpha * 255)
}

// Encode writes the rendered image as PNG.
func (e *Environment) Encode(w io.Writer) error {
	return png.Encode(w, e.Render())
}

// WriteFile renders the image into the named PNG file.
func (e *Environment) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := e.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
