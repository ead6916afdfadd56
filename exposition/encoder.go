package exposition

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/devopsext/measured/label"
)

// Encoder accumulates metric blocks in the text exposition format consumed
// by pull-based scrapers. It is a plain buffer with formatting helpers: not
// safe for concurrent use, but cheap to reuse. After Finish the internal
// buffer is retained, so a long-lived Encoder stops allocating once it has
// seen its largest output.
type Encoder struct {
	buf     bytes.Buffer
	scratch []byte
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// WriteHelp emits the descriptive header line for a metric.
func (e *Encoder) WriteHelp(name, help string) {

	e.buf.WriteString("# HELP ")
	e.buf.WriteString(name)
	e.buf.WriteByte(' ')
	e.writeEscapedHelp(help)
	e.buf.WriteByte('\n')
}

// WriteType emits the type header line, kind being "counter" or
// "histogram".
func (e *Encoder) WriteType(name, kind string) {

	e.buf.WriteString("# TYPE ")
	e.buf.WriteString(name)
	e.buf.WriteByte(' ')
	e.buf.WriteString(kind)
	e.buf.WriteByte('\n')
}

// WriteCount emits one integer-valued sample line.
func (e *Encoder) WriteCount(name, suffix string, pairs []label.Pair, value uint64) {

	e.writeSeries(name, suffix, pairs)
	e.scratch = strconv.AppendUint(e.scratch[:0], value, 10)
	e.buf.Write(e.scratch)
	e.buf.WriteByte('\n')
}

// WriteSample emits one float-valued sample line.
func (e *Encoder) WriteSample(name, suffix string, pairs []label.Pair, value float64) {

	e.writeSeries(name, suffix, pairs)
	switch {
	case math.IsInf(value, 1):
		e.buf.WriteString("+Inf")
	case math.IsInf(value, -1):
		e.buf.WriteString("-Inf")
	default:
		e.scratch = strconv.AppendFloat(e.scratch[:0], value, 'g', -1, 64)
		e.buf.Write(e.scratch)
	}
	e.buf.WriteByte('\n')
}

func (e *Encoder) writeSeries(name, suffix string, pairs []label.Pair) {

	e.buf.WriteString(name)
	e.buf.WriteString(suffix)

	if len(pairs) > 0 {
		e.buf.WriteByte('{')
		for i, p := range pairs {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.buf.WriteString(p.Name)
			e.buf.WriteString(`="`)
			e.writeEscapedValue(p.Value)
			e.buf.WriteByte('"')
		}
		e.buf.WriteByte('}')
	}
	e.buf.WriteByte(' ')
}

// Label values escape backslash, double quote and newline.
func (e *Encoder) writeEscapedValue(s string) {

	if !strings.ContainsAny(s, "\\\"\n") {
		e.buf.WriteString(s)
		return
	}
	for _, r := range s {
		switch r {
		case '\\':
			e.buf.WriteString(`\\`)
		case '"':
			e.buf.WriteString(`\"`)
		case '\n':
			e.buf.WriteString(`\n`)
		default:
			e.buf.WriteRune(r)
		}
	}
}

// Help text escapes backslash and newline only.
func (e *Encoder) writeEscapedHelp(s string) {

	if !strings.ContainsAny(s, "\\\n") {
		e.buf.WriteString(s)
		return
	}
	for _, r := range s {
		switch r {
		case '\\':
			e.buf.WriteString(`\\`)
		case '\n':
			e.buf.WriteString(`\n`)
		default:
			e.buf.WriteRune(r)
		}
	}
}

func (e *Encoder) Len() int {
	return e.buf.Len()
}

// Finish returns the accumulated text and resets the encoder for reuse.
// The returned bytes alias the internal buffer and stay valid until the
// next write, so consume or copy them before encoding again.
func (e *Encoder) Finish() []byte {

	b := e.buf.Bytes()
	e.buf.Reset()
	return b
}
