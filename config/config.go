// Package config defines the explicit engine configuration passed into a
// pdfkit Document. There are no package-level globals: every knob that
// affects parsing, writing or encryption is a field on EngineConfig and is
// threaded through the constructors that need it.
package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Validation selects how strictly a Document enforces ISO 32000 structural
// rules while reading.
type Validation int

const (
	// ValidationStrict rejects any structural deviation from the spec.
	ValidationStrict Validation = iota
	// ValidationRelaxed tolerates the malformations most commonly produced
	// by real-world PDF writers (missing Length, out-of-order xref, etc).
	ValidationRelaxed
)

func (v Validation) String() string {
	if v == ValidationStrict {
		return "strict"
	}
	return "relaxed"
}

// XRefMode selects the on-disk cross-reference representation a Writer
// produces for a freshly-saved (non-incremental) document.
type XRefMode int

const (
	// XRefModeTable emits a classic plain-text xref table (PDF <= 1.4 style).
	XRefModeTable XRefMode = iota
	// XRefModeStream emits a compressed cross-reference stream and packs
	// non-stream objects into object streams (PDF >= 1.5 style).
	XRefModeStream
)

// EngineConfig carries every tunable that affects how a Document reads,
// writes and encrypts a file. Zero value is usable but conservative; use
// Default for the recommended settings.
type EngineConfig struct {
	// AllowObjectStreams permits reading xref streams, object streams and
	// hybrid-reference files (PDF 1.5+ constructs).
	AllowObjectStreams bool

	// DecodeAllStreams eagerly runs every stream through its filter
	// pipeline while loading, instead of decoding lazily on first access.
	DecodeAllStreams bool

	// Validation controls structural strictness while reading.
	Validation Validation

	// EOL is the end-of-line byte sequence a Writer emits between tokens.
	EOL string

	// XRefMode controls what cross-reference representation a full
	// (non-incremental) Save produces.
	XRefMode XRefMode

	// ObjectStreamMaxObjects caps how many objects a Writer packs into a
	// single object stream before starting a new one.
	ObjectStreamMaxObjects int

	// MaxRecursionDepth bounds dereference-chasing so a cyclic Reference
	// graph fails with MaxRecursionReached instead of stack-overflowing.
	MaxRecursionDepth int

	// AllowAES256 opts into the PDF 2.0 / Adobe Extension Level 3 AES-256
	// security handler (R=5/R=6). It is off by default: a reader built
	// only against the classic RC4/AES-128 handlers should not silently
	// accept R6 files it cannot fully validate.
	AllowAES256 bool

	// CollectStats turns on size/object-count bookkeeping during Save,
	// reported through the Stats logger.
	CollectStats bool
}

// Default returns the recommended EngineConfig: permissive reading of
// modern constructs, relaxed validation, LF line endings, xref-stream
// writing, AES-256 left opt-in.
func Default() EngineConfig {
	return EngineConfig{
		AllowObjectStreams:      true,
		DecodeAllStreams:        false,
		Validation:              ValidationRelaxed,
		EOL:                     "\n",
		XRefMode:                XRefModeStream,
		ObjectStreamMaxObjects:  100,
		MaxRecursionDepth:       50,
		AllowAES256:             false,
		CollectStats:            true,
	}
}

// Load reads an EngineConfig from a YAML file, starting from Default and
// overriding only the fields present in the document.
func Load(path string) (EngineConfig, error) {
	cfg := Default()

	b, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "config: read %s", path)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}

	return cfg, nil
}
