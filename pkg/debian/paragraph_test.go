package debian_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pop-os/debrepbuild/pkg/debian"
)

func TestParseControl(t *testing.T) {
	t.Parallel()
	graph, err := debian.ParseControl(strings.NewReader("Package: foo\nVersion: 1.0\n"))
	require.NoError(t, err)
	assert.Equal(t, debian.Paragraph{
		"Package": "foo",
		"Version": "1.0",
	}, graph)
}

func TestParseControl_DescriptionContinuation(t *testing.T) {
	t.Parallel()
	graph, err := debian.ParseControl(strings.NewReader(
		"Package: foo\nDescription: summary\n extended line one\n  deeper indent\nHomepage: https://example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, "summary\n extended line one\n  deeper indent", graph["Description"])
	assert.Equal(t, "https://example.com", graph["Homepage"])
}

func TestParseControl_ContinuationOutsideDescription(t *testing.T) {
	t.Parallel()
	graph, err := debian.ParseControl(strings.NewReader("Depends: libc6\n libfoo\nPackage: foo\n"))
	require.NoError(t, err)
	assert.Equal(t, "libc6", graph["Depends"])
}

func TestParseControl_StopsAtBlankLine(t *testing.T) {
	t.Parallel()
	graph, err := debian.ParseControl(strings.NewReader("Package: foo\n\nPackage: bar\n"))
	require.NoError(t, err)
	assert.Equal(t, "foo", graph["Package"])
}

func TestParseControl_Empty(t *testing.T) {
	t.Parallel()
	graph, err := debian.ParseControl(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, graph)
}

func TestWriteControl(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := debian.WriteControl(&buf, debian.Paragraph{
		"Package": "foo",
		"Version": "1.0",
		"Extra":   "dropped",
	}, []string{"Package", "Homepage", "Version"})
	require.NoError(t, err)
	assert.Equal(t, "Package: foo\nVersion: 1.0\n", buf.String())
}
