package debian

import (
	"fmt"
	"strings"
)

// Architecture is a Debian architecture token, e.g. "amd64".
type Architecture string

// Component is a suite sub-category, e.g. "main".
type Component string

// UnsupportedArchError is a fatal misconfiguration: an architecture token
// outside the supported table.
type UnsupportedArchError struct {
	Arch string
}

func (e *UnsupportedArchError) Error() string {
	return fmt.Sprintf("unsupported architecture: %s", e.Arch)
}

// binaryDirs maps architecture tokens to their on-disk pool/dist directory
// names. The table is closed: anything else is a configuration error, never
// silently skipped.
var binaryDirs = map[Architecture]string{
	"amd64":    "binary-amd64",
	"arm64":    "binary-arm64",
	"armel":    "binary-armel",
	"armhf":    "binary-armhf",
	"i386":     "binary-i386",
	"mips":     "binary-mips",
	"mipsel":   "binary-mipsel",
	"mips64el": "binary-mips64el",
	"ppc64el":  "binary-ppc64el",
	"s390x":    "binary-s390x",
	"all":      "binary-all",
}

// BinaryDir returns the binary-<arch> directory name for arch.
func BinaryDir(arch Architecture) (string, error) {
	dir, ok := binaryDirs[arch]
	if !ok {
		return "", &UnsupportedArchError{Arch: string(arch)}
	}
	return dir, nil
}

// ArchFromDir maps a binary-<arch> directory name back to its architecture
// token.
func ArchFromDir(dir string) (Architecture, error) {
	arch := Architecture(strings.TrimPrefix(dir, "binary-"))
	if _, ok := binaryDirs[arch]; !ok || !strings.HasPrefix(dir, "binary-") {
		return "", &UnsupportedArchError{Arch: dir}
	}
	return arch, nil
}

// Architectures returns the supported architecture tokens.
func Architectures() []Architecture {
	archs := make([]Architecture, 0, len(binaryDirs))
	for arch := range binaryDirs {
		archs = append(archs, arch)
	}
	return archs
}
