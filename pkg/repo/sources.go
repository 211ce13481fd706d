package repo

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pop-os/debrepbuild/pkg/compress"
)

// WriteSources generates the Sources index for one component by running
// apt-ftparchive over the component's pool tree and streaming its stdout
// through the compressor into dir. Source-package stanza rules stay the
// external tool's problem.
func WriteSources(ctx context.Context, dir, poolDir string, formats compress.Formats) error {
	cmd := exec.CommandContext(ctx, "apt-ftparchive", "sources", poolDir)

	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting apt-ftparchive: %w", err)
	}

	compressErr := compress.Compress("Sources", dir, stdout, formats)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("apt-ftparchive sources %s: %w: %s", poolDir, err, strings.TrimSpace(stderr.String()))
	}
	return compressErr
}
