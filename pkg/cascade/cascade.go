// Package cascade implements a padded Bloom filter cascade: a compact,
// privacy-preserving representation of a partition of identifiers into a
// valid set and a revoked set. Construction is done by FromSets and
// buildLayers, querying by Has; the design ledger (DESIGN.md) records the
// decisions taken around them.
package cascade

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/flhps/crset-cascade-go/pkg/concurrency"
	"github.com/flhps/crset-cascade-go/pkg/identifiers"
)

// target false-positive rates: p_a for layer 1, p_b for every deeper layer.
const (
	layerOneTargetRate    = 0.35355339059327373 // sqrt(0.5)/2
	deeperLayerTargetRate = 0.5
	defaultMaxLayers      = 64
)

// Set is an unordered collection of hex-encoded 256-bit identifiers.
type Set map[string]struct{}

// NewSet builds a Set from a list of hex identifiers.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) clone() Set {
	out := make(Set, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Logger is the minimal structured-logging surface cascade construction
// reports progress through. *cascadelog.Logger satisfies it; pass nil to
// disable logging entirely.
type Logger interface {
	Info(message string, fields ...map[string]interface{})
	Warn(message string, fields ...map[string]interface{})
}

type buildConfig struct {
	logger    Logger
	maxLayers int
	pool      *concurrency.Pool
}

// Option configures FromSets.
type Option func(*buildConfig)

// WithLogger attaches a logger that receives one Info line per constructed
// layer and a Warn line if the layer-count safety valve is hit.
func WithLogger(logger Logger) Option {
	return func(c *buildConfig) { c.logger = logger }
}

// WithMaxLayers overrides the layering loop's sanity cap (default 64).
func WithMaxLayers(n int) Option {
	return func(c *buildConfig) { c.maxLayers = n }
}

// WithPool runs each layer's Add/Test sweep across the given worker pool
// instead of the package's internal default-sized pool. The pool must
// already be started; FromSets does not call Start or Shutdown on a pool
// supplied this way.
func WithPool(pool *concurrency.Pool) Option {
	return func(c *buildConfig) { c.pool = pool }
}

func newBuildConfig(opts ...Option) *buildConfig {
	c := &buildConfig{maxLayers: defaultMaxLayers}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cascade is an ordered sequence of Bloom filters that together answer
// Has(x) with zero error for every identifier supplied at construction
// time. A Cascade is immutable once FromSets or FromHex returns.
type Cascade struct {
	layers []*BloomFilter
	salt   string
}

// FromSets builds a Cascade from a valid set and a revoked set, padding
// both to privacy-uniform sizes (rHat and 2*rHat) before construction.
//
// Preconditions: len(valid) <= rHat and len(revoked) <= 2*rHat; violating
// either returns a *RangeError.
func FromSets(valid, revoked Set, rHat int, opts ...Option) (*Cascade, error) {
	if len(valid) > rHat || len(revoked) > 2*rHat {
		return nil, &RangeError{RHat: rHat, LenV: len(valid), LenR: len(revoked)}
	}

	cfg := newBuildConfig(opts...)

	paddedValid, err := padSet(valid, revoked, rHat-len(valid))
	if err != nil {
		return nil, err
	}
	paddedRevoked, err := padSet(revoked, paddedValid, 2*rHat-len(revoked))
	if err != nil {
		return nil, err
	}

	salt, err := identifiers.Random256BitHex()
	if err != nil {
		return nil, err
	}

	pool := cfg.pool
	if pool == nil {
		pool = concurrency.NewPool(concurrency.Config{})
		if err := pool.Start(); err != nil {
			return nil, fmt.Errorf("cascade: failed to start worker pool: %w", err)
		}
		defer pool.Shutdown()
	}

	layers, err := buildLayers(pool, paddedValid, paddedRevoked, salt, cfg)
	if err != nil {
		return nil, err
	}

	return &Cascade{layers: layers, salt: salt}, nil
}

// padSet returns a copy of target grown to target's size plus count with
// freshly drawn ids that are absent from both target and other.
func padSet(target, other Set, count int) (Set, error) {
	padded := target.clone()
	for i := 0; i < count; i++ {
		id, err := identifiers.RandomUnique256BitHex(padded, other)
		if err != nil {
			return nil, err
		}
		padded[id] = struct{}{}
	}
	return padded, nil
}

// buildLayers runs the layering loop: §4.2's "maintain an included set I
// and an excluded set E" construction, terminating when I is empty.
func buildLayers(pool *concurrency.Pool, validPadded, revokedPadded Set, salt string, cfg *buildConfig) ([]*BloomFilter, error) {
	ctx := context.Background()

	included, excluded := validPadded, revokedPadded
	var layers []*BloomFilter

	for level := 1; len(included) > 0; level++ {
		if level > cfg.maxLayers {
			if cfg.logger != nil {
				cfg.logger.Warn("cascade construction exceeded layer cap", map[string]interface{}{"maxLayers": cfg.maxLayers})
			}
			panic(fmt.Sprintf("cascade: exceeded maximum layer count %d without the included set becoming empty; this almost certainly indicates a broken random source", cfg.maxLayers))
		}

		rate := deeperLayerTargetRate
		if level == 1 {
			rate = layerOneTargetRate
		}
		m := optimalBits(len(included), rate)
		filter := NewBloomFilter(m, 1)

		if err := addAll(ctx, pool, filter, included, level, salt); err != nil {
			return nil, err
		}
		falsePositives, err := scanFalsePositives(ctx, pool, filter, excluded, level, salt)
		if err != nil {
			return nil, err
		}

		layers = append(layers, filter)
		if cfg.logger != nil {
			cfg.logger.Info("cascade layer constructed", map[string]interface{}{
				"layer": level, "m": m, "included": len(included), "excluded": len(excluded),
			})
		}

		excluded, included = included, falsePositives
	}

	return layers, nil
}

// optimalBits implements m = ceil(-n*ln(p) / (ln 2)^2), the standard
// single-hash Bloom filter sizing formula.
func optimalBits(n int, p float64) uint32 {
	m := math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 1 {
		m = 1
	}
	return uint32(m)
}

// hashInput builds the byte-string concatenation id‖binary8(level)‖salt
// that every hash position in this package is computed over.
func hashInput(id string, level int, salt string) []byte {
	var b strings.Builder
	b.Grow(len(id) + 8 + len(salt))
	b.WriteString(id)
	fmt.Fprintf(&b, "%08b", level)
	b.WriteString(salt)
	return []byte(b.String())
}

type idTask struct {
	id string
	fn func(id string) (interface{}, error)
}

func (t idTask) ID() string { return t.id }
func (t idTask) Execute(context.Context) (interface{}, error) { return t.fn(t.id) }

func addAll(ctx context.Context, pool *concurrency.Pool, filter *BloomFilter, ids Set, level int, salt string) error {
	tasks := make([]concurrency.Task, 0, len(ids))
	for id := range ids {
		tasks = append(tasks, idTask{id: id, fn: func(id string) (interface{}, error) {
			filter.Add(hashInput(id, level, salt))
			return nil, nil
		}})
	}
	_, err := pool.ExecuteAll(ctx, tasks)
	return err
}

func scanFalsePositives(ctx context.Context, pool *concurrency.Pool, filter *BloomFilter, ids Set, level int, salt string) (Set, error) {
	tasks := make([]concurrency.Task, 0, len(ids))
	for id := range ids {
		tasks = append(tasks, idTask{id: id, fn: func(id string) (interface{}, error) {
			return filter.Test(hashInput(id, level, salt)), nil
		}})
	}
	results, err := pool.ExecuteAll(ctx, tasks)
	if err != nil {
		return nil, err
	}
	fp := make(Set)
	for _, r := range results {
		if hit, _ := r.Value.(bool); hit {
			fp[r.TaskID] = struct{}{}
		}
	}
	return fp, nil
}

// Has reports whether x belongs to the cascade's positive class. For x
// supplied to FromSets as part of the (padded) valid set this is always
// true; for x supplied as part of the (padded) revoked set this is always
// false. For any other x the answer is a deterministic function of the
// salt and internal padding and must not be relied upon.
func (c *Cascade) Has(x string) bool {
	n := len(c.layers)
	for level := 1; level <= n; level++ {
		if !c.layers[level-1].Test(hashInput(x, level, c.salt)) {
			return level%2 == 0
		}
	}
	return n%2 == 1
}

// Depth returns the number of layers in the cascade.
func (c *Cascade) Depth() int {
	return len(c.layers)
}

// Layers returns a read-only view over the cascade's layers, ordered from
// layer 1 (valid-containing) onward.
func (c *Cascade) Layers() []*BloomFilter {
	out := make([]*BloomFilter, len(c.layers))
	copy(out, c.layers)
	return out
}

// Salt returns the cascade's 64-character lowercase hex salt.
func (c *Cascade) Salt() string {
	return c.salt
}

// ToHex serializes the cascade to "0x" followed by lowercase hex: the raw
// salt bytes, followed by each layer as a big-endian uint32 bit count and
// its backing words emitted little-endian.
func (c *Cascade) ToHex() string {
	var buf bytes.Buffer

	saltBytes, err := hex.DecodeString(c.salt)
	if err != nil {
		// salt is always produced internally by identifiers.Random256BitHex
		// or validated on the way in by FromHex; this cannot happen.
		panic(fmt.Sprintf("cascade: invalid internal salt %q: %v", c.salt, err))
	}
	buf.Write(saltBytes)

	for _, layer := range c.layers {
		var mBytes [4]byte
		binary.BigEndian.PutUint32(mBytes[:], layer.M())
		buf.Write(mBytes[:])

		for _, w := range layer.Buckets() {
			var wBytes [4]byte
			binary.LittleEndian.PutUint32(wBytes[:], w)
			buf.Write(wBytes[:])
		}
	}

	return "0x" + hex.EncodeToString(buf.Bytes())
}

// FromHex reconstructs a Cascade from its ToHex serialization. Parsing
// stops at the first layer header whose bit count reads as zero, and bytes
// after such a header are not examined; a final run of fewer than four
// bytes is accepted if it is all zero. A missing prefix, invalid hex, a
// payload shorter than the salt, or a layer that runs past the end of the
// input is a *FormatError.
func FromHex(s string) (*Cascade, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, &FormatError{Reason: "missing 0x prefix"}
	}
	payload := s[2:]

	data, err := hex.DecodeString(payload)
	if err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("invalid hex payload: %v", err)}
	}
	if len(data) < 32 {
		return nil, &FormatError{Reason: "payload shorter than the 32-byte salt"}
	}

	salt := hex.EncodeToString(data[:32])
	rest := data[32:]

	var layers []*BloomFilter
	pos := 0
	for pos < len(rest) {
		if pos+4 > len(rest) {
			if allZero(rest[pos:]) {
				break
			}
			return nil, &FormatError{Reason: "truncated layer header"}
		}

		m := binary.BigEndian.Uint32(rest[pos : pos+4])
		if m == 0 {
			break
		}
		pos += 4

		wc := wordCount(m)
		byteLen := wc * 4
		if pos+byteLen > len(rest) {
			return nil, &FormatError{Reason: "layer declares more bytes than remain in the input"}
		}

		words := make([]uint32, wc)
		for i := 0; i < wc; i++ {
			words[i] = binary.LittleEndian.Uint32(rest[pos+i*4 : pos+i*4+4])
		}
		pos += byteLen

		filter := NewBloomFilter(m, 1)
		if err := filter.SetBuckets(words); err != nil {
			return nil, &FormatError{Reason: err.Error()}
		}
		layers = append(layers, filter)
	}

	return &Cascade{layers: layers, salt: salt}, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
