//go:build !debug_tex_utils

package texutils

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_tex_utils build tag is present
func DebugValidate(validatable Validatable) {
}
