//go:build !linux
// +build !linux

package probe

func NewRaw(cfg RawConfig) (Prober, error) {
	return nil, ErrPlatformNotSupported
}
