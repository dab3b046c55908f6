package stdlib

import (
	"fmt"

	"github.com/thomasrohde/piske/pkg/value"
)

// set_image_dims(height: int, width: int) -> void
func stdlibSetImageDims(env *Environment, args []value.Value) (value.Value, error) {
	rows, err := argInt("set_image_dims", args, 0)
	if err != nil {
		return nil, err
	}
	cols, err := argInt("set_image_dims", args, 1)
	if err != nil {
		return nil, err
	}
	if err := env.Resize(int(rows), int(cols)); err != nil {
		return nil, fmt.Errorf("set_image_dims: %w", err)
	}
	return value.Empty{}, nil
}

// get_image_height() -> int
func stdlibGetImageHeight(env *Environment, _ []value.Value) (value.Value, error) {
	return value.Int{Value: int64(env.Image.Rows)}, nil
}

// get_image_width() -> int
func stdlibGetImageWidth(env *Environment, _ []value.Value) (value.Value, error) {
	return value.Int{Value: int64(env.Image.Cols)}, nil
}

// set_pixel_data(row: int, col: int, value: float) -> void
func stdlibSetPixelData(env *Environment, args []value.Value) (value.Value, error) {
	row, err := argInt("set_pixel_data", args, 0)
	if err != nil {
		return nil, err
	}
	col, err := argInt("set_pixel_data", args, 1)
	if err != nil {
		return nil, err
	}
	v, err := argFloat("set_pixel_data", args, 2)
	if err != nil {
		return nil, err
	}
	if err := env.Image.Set(int(row), int(col), v); err != nil {
		return nil, fmt.Errorf("set_pixel_data: %w", err)
	}
	return value.Empty{}, nil
}

// write(file: string) -> void
func stdlibWrite(env *Environment, args []value.Value) (value.Value, error) {
	path, err := argString("write", args, 0)
	if err != nil {
		return nil, err
	}
	if err := env.WriteFile(path); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return value.Empty{}, nil
}

// project(row: int, col: int, center: complex, size: complex) -> complex
//
// Maps a pixel onto the complex plane: the image spans size around center.
func stdlibProject(env *Environment, args []value.Value) (value.Value, error) {
	row, err := argInt("project", args, 0)
	if err != nil {
		return nil, err
	}
	col, err := argInt("project", args, 1)
	if err != nil {
		return nil, err
	}
	center, err := argComplex("project", args, 2)
	if err != nil {
		return nil, err
	}
	size, err := argComplex("project", args, 3)
	if err != nil {
		return nil, err
	}
	rows, cols := float64(env.Image.Rows), float64(env.Image.Cols)
	return value.Complex{
		Re: (float64(row)/rows-0.5)*size.Re + center.Re,
		Im: (float64(col)/cols-0.5)*size.Im + center.Im,
	}, nil
}
