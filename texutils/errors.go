package texutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// InvalidFormatError is returned when a texture format is not part of the closed format set
var InvalidFormatError error = errors.New("texture format is not recognized")

// LayoutMismatchError is returned when a buffer does not have the size its texture layout requires
var LayoutMismatchError error = errors.New("buffer size does not match the texture layout")
