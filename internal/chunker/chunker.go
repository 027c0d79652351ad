// Package chunker splits file content into bounded, overlapping,
// line-aligned chunks. Splitting is pure: no I/O, no shared state.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sema-sh/sema/internal/config"
)

// Overlap between consecutive chunks is carried as whole trailing lines,
// never more than this many.
const maxOverlapLines = 5

// Chunk is a bounded, line-aligned slice of a file's text, the unit of
// indexing and retrieval.
type Chunk struct {
	// ID is derived from the file path and chunk ordinal.
	ID string `json:"id"`

	// FilePath is the path of the source file, relative to the indexed root.
	FilePath string `json:"file_path"`

	// ChunkIndex is the 0-based, dense-per-file ordinal.
	ChunkIndex int `json:"chunk_index"`

	// Content is the chunk text.
	Content string `json:"content"`

	// StartLine and EndLine are 1-based inclusive line numbers.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`

	// FileHash is the content fingerprint of the whole file.
	FileHash string `json:"file_hash"`

	// Language is an optional tag derived from the file extension.
	Language string `json:"language,omitempty"`
}

// ChunkID builds the stable identifier for a chunk ordinal of a file.
func ChunkID(filePath string, index int) string {
	return fmt.Sprintf("%s:%d", filePath, index)
}

// Split divides content into chunks according to cfg.
//
// Content shorter than the minimum viable size yields no chunks. Content
// that fits within the maximum chunk size yields a single whole-file
// chunk. Otherwise lines accumulate into a buffer that is sealed when
// the next line would overflow it; each new buffer is seeded with a few
// trailing lines of the sealed one so cross-boundary context survives.
func Split(filePath, content, fileHash string, cfg config.ChunkConfig) []Chunk {
	if len(content) < cfg.MinChunkSize {
		return nil
	}

	lang := DetectLanguage(filePath)

	if len(content) <= cfg.MaxChunkSize {
		lines := splitLines(content)
		return []Chunk{{
			ID:         ChunkID(filePath, 0),
			FilePath:   filePath,
			ChunkIndex: 0,
			Content:    content,
			StartLine:  1,
			EndLine:    len(lines),
			FileHash:   fileHash,
			Language:   lang,
		}}
	}

	s := splitter{
		filePath: filePath,
		fileHash: fileHash,
		lang:     lang,
		cfg:      cfg,
	}
	return s.run(content)
}

type splitter struct {
	filePath string
	fileHash string
	lang     string
	cfg      config.ChunkConfig

	chunks    []Chunk
	buf       []string
	bufBytes  int
	bufStart  int // 0-based index of the buffer's first line
	prevStart int // 0-based start of the previously sealed chunk
}

func (s *splitter) run(content string) []Chunk {
	lines := splitLines(content)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		// A single line larger than the chunk size is cut by bytes.
		if len(line) > s.cfg.MaxChunkSize {
			s.sealBuffer(i - 1)
			s.emitOversizeLine(line, i)
			s.bufStart = i + 1
			continue
		}

		if s.bufBytes+len(line) > s.cfg.MaxChunkSize && len(s.buf) > 0 {
			sealed := s.buf
			sealedStart := s.bufStart
			s.sealBuffer(i - 1)

			// Seed the next buffer with trailing lines of the sealed
			// chunk; the new start never moves before the sealed one.
			overlap := overlapLines(sealed, s.cfg.OverlapSize)
			newStart := i - overlap
			if newStart <= sealedStart {
				newStart = sealedStart + 1
			}
			if newStart > i {
				newStart = i
			}

			seed := sealed[newStart-sealedStart:]
			s.buf = make([]string, len(seed))
			copy(s.buf, seed)
			s.bufBytes = 0
			for _, l := range s.buf {
				s.bufBytes += len(l)
			}
			s.bufStart = newStart
		}

		s.buf = append(s.buf, line)
		s.bufBytes += len(line)
	}

	// Trailing buffer is always sealed, even below the minimum size, so
	// every line of the file lands in some chunk.
	s.sealBuffer(len(lines) - 1)

	return s.chunks
}

// sealBuffer emits the current buffer as a chunk ending at lastLine
// (0-based). A drained buffer is a no-op.
func (s *splitter) sealBuffer(lastLine int) {
	if len(s.buf) == 0 {
		return
	}

	s.chunks = append(s.chunks, Chunk{
		ID:         ChunkID(s.filePath, len(s.chunks)),
		FilePath:   s.filePath,
		ChunkIndex: len(s.chunks),
		Content:    strings.Join(s.buf, ""),
		StartLine:  s.bufStart + 1,
		EndLine:    lastLine + 1,
		FileHash:   s.fileHash,
		Language:   s.lang,
	})
	s.prevStart = s.bufStart
	s.buf = nil
	s.bufBytes = 0
}

// emitOversizeLine cuts a line longer than the chunk size into byte
// windows. Cuts scan backward to the nearest rune boundary so no
// codepoint is ever split.
func (s *splitter) emitOversizeLine(line string, lineIdx int) {
	for start := 0; start < len(line); {
		end := start + s.cfg.MaxChunkSize
		if end >= len(line) {
			end = len(line)
		} else {
			for end > start && !utf8.RuneStart(line[end]) {
				end--
			}
			if end == start {
				// A single rune cannot exceed the chunk size in
				// practice; bail out rather than loop forever.
				end = len(line)
			}
		}

		s.chunks = append(s.chunks, Chunk{
			ID:         ChunkID(s.filePath, len(s.chunks)),
			FilePath:   s.filePath,
			ChunkIndex: len(s.chunks),
			Content:    line[start:end],
			StartLine:  lineIdx + 1,
			EndLine:    lineIdx + 1,
			FileHash:   s.fileHash,
			Language:   s.lang,
		})
		start = end
	}
	s.prevStart = lineIdx
}

// overlapLines derives the overlap line count from the configured
// overlap byte size: as many whole trailing lines of the sealed chunk
// as fit in overlapSize bytes, clamped to [1, maxOverlapLines].
func overlapLines(sealed []string, overlapSize int) int {
	count := 0
	bytes := 0
	for i := len(sealed) - 1; i >= 0; i-- {
		bytes += len(sealed[i])
		if bytes > overlapSize {
			break
		}
		count++
	}
	if count < 1 {
		count = 1
	}
	if count > maxOverlapLines {
		count = maxOverlapLines
	}
	if count > len(sealed) {
		count = len(sealed)
	}
	return count
}

// splitLines splits content after each newline, keeping the newline on
// the line it terminates. A trailing newline does not open a new line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}

	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i+1])
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}
