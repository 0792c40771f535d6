// Package cache memoizes validation reports by document content, asserted
// person and reference date.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"path"
	"strings"

	"github.com/JaimeStill/attest/internal/workflow"
	"github.com/JaimeStill/attest/pkg/lifecycle"
	"github.com/JaimeStill/attest/pkg/rules"
)

// ErrMiss is returned by Get when no report is cached under the key.
var ErrMiss = errors.New("cache miss")

// Cache stores completed reports. Only clean runs are cached.
type Cache interface {
	Get(ctx context.Context, key string) (*workflow.Report, error)
	Set(ctx context.Context, key string, r *workflow.Report) error
	Start(lc *lifecycle.Coordinator) error
	Ping(ctx context.Context) error
	Close() error
}

// Key derives the cache key for validating doc against person. The person
// is normalized first, so spelling variants that normalize equally share an
// entry. The filename takes part because issuer identification reads it.
func Key(doc workflow.Document, person string) string {
	h := sha256.New()

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(doc.Data)))
	h.Write(n[:])
	h.Write(doc.Data)

	for _, field := range []string{
		rules.NormalizeName(person),
		strings.ToUpper(strings.TrimSpace(doc.Organization)),
		path.Base(doc.Filename),
		rules.Day(doc.ReferenceDate).Format(rules.DateLayout),
	} {
		h.Write([]byte{0})
		h.Write([]byte(field))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*workflow.Report, error) { return nil, ErrMiss }
func (Noop) Set(context.Context, string, *workflow.Report) error   { return nil }
func (Noop) Start(*lifecycle.Coordinator) error                    { return nil }
func (Noop) Ping(context.Context) error                            { return nil }
func (Noop) Close() error                                          { return nil }
