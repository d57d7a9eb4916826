package store

import (
	"fmt"
	"strings"
)

// Operation is one simulated store mutation.
type Operation struct {
	Kind string // OpWrite or OpVCCommit
	Path string
	Size int64
}

// Ledger accumulates simulated operations while the store runs in dry-run
// mode. One instance lives and dies with its store and is never written to
// disk.
type Ledger struct {
	ops        []Operation
	totalBytes int64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends one simulated operation and grows the running byte total.
func (l *Ledger) Record(kind, path string, size int64) {
	l.ops = append(l.ops, Operation{Kind: kind, Path: path, Size: size})
	l.totalBytes += size
}

// TotalBytes returns the running sum of all recorded operation sizes.
func (l *Ledger) TotalBytes() int64 { return l.totalBytes }

// Operations returns the recorded operations in append order.
func (l *Ledger) Operations() []Operation { return l.ops }

// Summary renders the ledger as a fixed-width report: header, file count,
// human-scaled total size, then one line per operation.
func (l *Ledger) Summary() string {
	var b strings.Builder
	b.WriteString("Dry-run summary\n")
	b.WriteString("---------------\n")
	fmt.Fprintf(&b, "Files:      %d\n", len(l.ops))
	fmt.Fprintf(&b, "Total size: %s", formatSize(l.totalBytes))
	if len(l.ops) > 0 {
		b.WriteString("\n")
		for _, op := range l.ops {
			fmt.Fprintf(&b, "\n  [%s] %s (%s)", op.Kind, op.Path, formatSize(op.Size))
		}
	}
	return b.String()
}

// formatSize scales byte counts at 1024 thresholds, with two-decimal
// precision above 1 KB.
func formatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	}
}
