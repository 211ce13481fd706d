// Package checksum computes the pool file digests recorded in Packages and
// Release indices.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
)

const chunkSize = 8 * 1024

// Sums holds the four hex digests computed for every retained package.
type Sums struct {
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
}

// File computes all four digests of the file at path. Each algorithm reads
// the file independently in a parallel task, overlapping I/O and hashing;
// the file is never loaded into memory at once.
func File(path string) (Sums, error) {
	var sums Sums

	var eg errgroup.Group
	eg.Go(func() (err error) {
		sums.MD5, err = Digest(path, md5.New())
		return
	})
	eg.Go(func() (err error) {
		sums.SHA1, err = Digest(path, sha1.New())
		return
	})
	eg.Go(func() (err error) {
		sums.SHA256, err = Digest(path, sha256.New())
		return
	})
	eg.Go(func() (err error) {
		sums.SHA512, err = Digest(path, sha512.New())
		return
	})
	if err := eg.Wait(); err != nil {
		return Sums{}, err
	}
	return sums, nil
}

// Digest streams the file at path through h in fixed-size chunks and
// returns the hex digest.
func Digest(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	digest, err := Reader(f, h)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return digest, nil
}

// Reader streams r through h in fixed-size chunks and returns the hex
// digest.
func Reader(r io.Reader, h hash.Hash) (string, error) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		} else if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
