//go:build ignore

// Generates a synthetic file tree for exercising the indexer by hand.
// Usage: go run scripts/generate-test-corpus.go -files 500 -output /tmp/corpus
// Then: sema index /tmp/corpus
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 500, "number of files to generate")
	outputDir = flag.String("output", "testdata/corpus", "output directory")
	seed      = flag.Int64("seed", 7, "random seed")
)

var goTemplate = `package %s

import (
	"context"
	"fmt"
)

// %s coordinates %s for the surrounding package.
type %s struct {
	name  string
	ready bool
}

func New%s(name string) *%s {
	return &%s{name: name}
}

func (x *%s) %s(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !x.ready {
		x.ready = true
	}
	return fmt.Sprintf("%%s handled by %%s", input, x.name), nil
}
`

var pyTemplate = `"""%s utilities for %s."""
import logging

logger = logging.getLogger(__name__)


class %s:
    """Implements %s over a shared cache."""

    def __init__(self, name):
        self.name = name
        self._cache = {}

    def process(self, payload):
        logger.debug("processing %%s items", len(payload))
        return {**payload, "handled_by": self.name}

    def reset(self):
        self._cache.clear()
`

var mdTemplate = `# %s

Notes on %s for the %s subsystem.

## Behavior

The %s accepts a request, applies %s, and hands the result downstream.
Retries are capped at three attempts with exponential backoff.

## Configuration

| Key | Default | Notes |
|-----|---------|-------|
| timeout | 30s | per-request deadline |
| workers | 4 | concurrent handlers |

## Known issues

Large payloads bypass the cache. See the %s design notes before
changing the eviction rule.
`

// Word pools keep file contents distinct enough that searches over the
// generated tree return meaningfully different hit sets.
var (
	nouns = []string{
		"Handler", "Resolver", "Scheduler", "Pipeline", "Broker",
		"Ledger", "Registry", "Courier", "Planner", "Archive",
		"Gateway", "Mixer", "Sampler", "Tracker", "Vault",
	}
	verbs = []string{
		"Dispatch", "Collect", "Merge", "Replay", "Drain",
		"Publish", "Rotate", "Flush", "Resolve", "Settle",
	}
	domains = []string{
		"rate limiting", "checkpointing", "deduplication", "fan-out",
		"replication", "compaction", "backpressure", "lease renewal",
		"quota tracking", "snapshot restore",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	for _, dir := range []string{"go", "python", "docs"} {
		if err := os.MkdirAll(filepath.Join(*outputDir, dir), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create %s: %v\n", dir, err)
			os.Exit(1)
		}
	}

	goFiles := *numFiles * 50 / 100
	pyFiles := *numFiles * 30 / 100
	mdFiles := *numFiles - goFiles - pyFiles

	for i := 0; i < goFiles; i++ {
		writeGo(rng, i)
	}
	for i := 0; i < pyFiles; i++ {
		writePy(rng, i)
	}
	for i := 0; i < mdFiles; i++ {
		writeMd(rng, i)
	}

	fmt.Printf("wrote %d files under %s\n", *numFiles, *outputDir)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func writeGo(rng *rand.Rand, i int) {
	noun := pick(rng, nouns)
	verb := pick(rng, verbs)
	domain := pick(rng, domains)
	pkg := fmt.Sprintf("corpus%d", i)

	content := fmt.Sprintf(goTemplate,
		pkg,
		noun, domain, noun,
		noun, noun, noun,
		noun, verb,
	)
	write(filepath.Join(*outputDir, "go", fmt.Sprintf("%s_%d.go", strings.ToLower(noun), i)), content)
}

func writePy(rng *rand.Rand, i int) {
	noun := pick(rng, nouns)
	domain := pick(rng, domains)

	content := fmt.Sprintf(pyTemplate, noun, domain, noun, domain)
	write(filepath.Join(*outputDir, "python", fmt.Sprintf("%s_%d.py", strings.ToLower(noun), i)), content)
}

func writeMd(rng *rand.Rand, i int) {
	noun := pick(rng, nouns)
	verb := pick(rng, verbs)
	domain := pick(rng, domains)

	content := fmt.Sprintf(mdTemplate, noun, domain, strings.ToLower(verb), noun, domain, noun)
	write(filepath.Join(*outputDir, "docs", fmt.Sprintf("%s_%d.md", strings.ToLower(noun), i)), content)
}

func write(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
	}
}
