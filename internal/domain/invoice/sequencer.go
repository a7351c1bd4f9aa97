package invoice

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// NumberSource yields the next value of a strictly increasing sequence.
// Implementations must be atomic: two concurrent calls must never observe
// the same value. The PostgreSQL implementation uses a single-row counter
// updated with an upsert RETURNING.
type NumberSource interface {
	Next(ctx context.Context) (int64, error)
}

// numberWidth is the zero-padded width of the numeric suffix.
const numberWidth = 5

// Sequencer formats sequence values as invoice numbers under a stable
// prefix, e.g. INV-00042. When the underlying source fails it falls back to
// a timestamp-derived number so invoice creation never blocks on the
// sequencer.
type Sequencer struct {
	source NumberSource
	prefix string
	now    func() time.Time
}

// NewSequencer creates a Sequencer over the given source and prefix.
func NewSequencer(source NumberSource, prefix string) *Sequencer {
	return &Sequencer{source: source, prefix: prefix, now: time.Now}
}

// Next returns the next invoice number. The error, when non-nil, reports the
// source failure that triggered the timestamp fallback; the returned number
// is still usable.
func (s *Sequencer) Next(ctx context.Context) (string, error) {
	n, err := s.source.Next(ctx)
	if err != nil {
		return fmt.Sprintf("%s-%d", s.prefix, s.now().UnixNano()), errors.Wrap(err, "number source")
	}
	return FormatNumber(s.prefix, n), nil
}

// FormatNumber renders a sequence value as a zero-padded invoice number.
func FormatNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, numberWidth, n)
}

// ParseNumber extracts the numeric suffix from an invoice number issued
// under the given prefix. Used to seed the counter from the newest invoice
// of installs migrating off the legacy read-latest numbering scheme.
func ParseNumber(prefix, number string) (int64, error) {
	suffix, ok := strings.CutPrefix(number, prefix+"-")
	if !ok {
		return 0, errors.Errorf("invoice number %q does not match prefix %q", number, prefix)
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invoice number %q has a non-numeric suffix", number)
	}
	return n, nil
}
