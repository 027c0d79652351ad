package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sema-sh/sema/internal/index"
)

func TestWriter_StatusLines(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Success("done")
	w.Warningf("%d skipped", 2)
	w.Error("broken")
	w.Status("", "indented")

	out := buf.String()
	assert.Contains(t, out, "✓ done")
	assert.Contains(t, out, "⚠ 2 skipped")
	assert.Contains(t, out, "✗ broken")
	assert.Contains(t, out, "   indented")
}

func TestWriter_IndexSummary(t *testing.T) {
	// Given a run that touched every category
	stats := &index.Stats{
		FilesSeen:      10,
		FilesNew:       3,
		FilesChanged:   2,
		FilesUnchanged: 5,
		FilesDeleted:   1,
		ChunksIndexed:  40,
		Errors:         1,
	}

	// When the summary is printed
	var buf bytes.Buffer
	New(&buf).IndexSummary(stats, 1500*time.Millisecond)

	// Then counts appear grouped on the breakdown line
	out := buf.String()
	assert.Contains(t, out, "Indexed 10 files (40 chunks) in 1.5s")
	assert.Contains(t, out, "3 new, 2 changed, 5 unchanged, 1 deleted")
	assert.Contains(t, out, "1 files skipped due to errors")
}

func TestWriter_IndexSummaryQuietRun(t *testing.T) {
	stats := &index.Stats{FilesSeen: 4, FilesUnchanged: 4}

	var buf bytes.Buffer
	New(&buf).IndexSummary(stats, time.Second)

	out := buf.String()
	assert.Contains(t, out, "4 unchanged")
	assert.NotContains(t, out, "new")
	assert.NotContains(t, out, "skipped")
}

func TestByteSize(t *testing.T) {
	assert.Equal(t, "512 B", ByteSize(512))
	assert.Equal(t, "1.0 KB", ByteSize(1024))
	assert.Equal(t, "1.5 MB", ByteSize(1536*1024))
	assert.Equal(t, "2.0 GB", ByteSize(2<<30))
}
