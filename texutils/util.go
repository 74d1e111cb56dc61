package texutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint | ~int32 | ~uint32 | ~uint64
}

func CheckPow2[T Number](number T, name string) error {
	if number&(number-1) != 0 {
		return cerrors.Wrapf(PowerOfTwoError, "%s is %d", name, number)
	}
	return nil
}

func AlignUp(value int, alignment uint) int {
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}

// DivRoundUp divides value by divisor, rounding any remainder up
func DivRoundUp(value int, divisor int) int {
	return (value + divisor - 1) / divisor
}

// LevelSize returns the size of a texture dimension at a given mip level, which is never less than 1
func LevelSize(size int, level int) int {
	return max(1, size>>level)
}
