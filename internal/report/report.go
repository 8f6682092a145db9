// Package report prints per-tick status lines for a running simulator.
// The reporter is an engine observer; simulators themselves never print.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/drivesim/recorder/internal/sim"
)

// Reporter writes one status line per snapshot to out.
type Reporter struct {
	name string
	out  io.Writer
}

// New creates a Reporter for the named simulator writing to out.
func New(name string, out io.Writer) *Reporter {
	return &Reporter{
		name: name,
		out:  out,
	}
}

// Observe formats the snapshot as a single line and writes it. Diagnostics
// are printed on their own lines after the channel values.
func (r *Reporter) Observe(s sim.Snapshot) error {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] tick %d (%.1fh):", r.name, s.Seq, s.Elapsed)
	for _, name := range s.ChannelNames() {
		fmt.Fprintf(&b, " %s=%.2f", name, s.Channels[name])
	}
	b.WriteByte('\n')

	for _, d := range s.Diagnostics {
		fmt.Fprintf(&b, "  %s\n", d.Message)
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}
