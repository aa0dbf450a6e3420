//go:build !((linux || darwin || freebsd) && cgo)

package plugin

import "fmt"

// NativeLoader is unavailable on this build; every load fails
type NativeLoader struct{}

func NewNativeLoader() *NativeLoader {
	return &NativeLoader{}
}

func (l *NativeLoader) Load(path string) (Handle, error) {
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedPlatform)
}
