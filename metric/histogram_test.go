package metric

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/devopsext/measured/label"
)

func TestThresholdsValidation(t *testing.T) {

	if _, err := NewThresholds(); err == nil {
		t.Fatal("Empty thresholds should be rejected")
	}
	if _, err := NewThresholds(0.1, 0.1); err == nil {
		t.Fatal("Non increasing thresholds should be rejected")
	}
	if _, err := NewThresholds(0.2, 0.1); err == nil {
		t.Fatal("Descending thresholds should be rejected")
	}

	if _, err := ExponentialThresholds(0, 2, 3); err == nil {
		t.Fatal("Zero start should be rejected")
	}
	if _, err := ExponentialThresholds(0.1, 1, 3); err == nil {
		t.Fatal("Factor 1 should be rejected")
	}
	if _, err := ExponentialThresholds(0.1, 2, 0); err == nil {
		t.Fatal("Zero count should be rejected")
	}

	thresholds, err := ExponentialThresholds(0.1, 2, 6)
	if err != nil {
		t.Fatal(err)
	}
	expected := []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2}
	for i, le := range thresholds.Upper() {
		if math.Abs(le-expected[i]) > 1e-12 {
			t.Fatalf("Invalid threshold %v at %d, expected %v", le, i, expected[i])
		}
	}
}

func TestHistogramSingleObservation(t *testing.T) {

	thresholds, err := NewThresholds(0.1, 0.2, 0.4, 0.8, 1.6, 3.2)
	if err != nil {
		t.Fatal(err)
	}

	h, err := NewHistogramVec(label.MustSchema(), thresholds)
	if err != nil {
		t.Fatal(err)
	}

	h.Observe(0.5)

	lines := sampleLines(collect(h, "latency"))

	expected := []string{
		`latency_bucket{le="0.1"} 0`,
		`latency_bucket{le="0.2"} 0`,
		`latency_bucket{le="0.4"} 1`,
		`latency_bucket{le="0.8"} 1`,
		`latency_bucket{le="1.6"} 1`,
		`latency_bucket{le="3.2"} 1`,
		`latency_bucket{le="+Inf"} 1`,
		`latency_sum 0.5`,
		`latency_count 1`,
	}

	if len(lines) != len(expected) {
		t.Fatalf("Invalid line count %d, expected %d:\n%s", len(lines), len(expected), strings.Join(lines, "\n"))
	}
	for i, line := range lines {
		if line != expected[i] {
			t.Fatalf("Invalid line %q, expected %q", line, expected[i])
		}
	}
}

func TestHistogramBucketBoundary(t *testing.T) {

	thresholds, err := NewThresholds(1, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	h, err := NewHistogramVec(label.MustSchema(), thresholds)
	if err != nil {
		t.Fatal(err)
	}

	// a value equal to a threshold lands in that bucket
	h.Observe(2)

	out := collect(h, "m")
	for _, line := range []string{
		`m_bucket{le="1"} 0`,
		`m_bucket{le="2"} 1`,
		`m_bucket{le="4"} 1`,
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("Expected %q in output:\n%s", line, out)
		}
	}

	// a value above every threshold only counts toward +Inf, sum and count
	h.Observe(100)

	out = collect(h, "m")
	for _, line := range []string{
		`m_bucket{le="4"} 1`,
		`m_bucket{le="+Inf"} 2`,
		`m_sum 102`,
		`m_count 2`,
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("Expected %q in output:\n%s", line, out)
		}
	}
}

func TestHistogramConcurrent(t *testing.T) {

	thresholds, err := ExponentialThresholds(0.001, 2, 10)
	if err != nil {
		t.Fatal(err)
	}

	schema := label.MustSchema(
		label.Fixed("kind", label.MustFixedSet("user", "internal", "network")),
	)
	h, err := NewHistogramVec(schema, thresholds)
	if err != nil {
		t.Fatal(err)
	}

	workers := 8
	loops := 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < loops; i++ {
				h.Observe(0.25, "user")
			}
		}()
	}
	wg.Wait()

	total := workers * loops
	out := collect(h, "latency")

	if !strings.Contains(out, fmt.Sprintf(`latency_count{kind="user"} %d`, total)) {
		t.Fatalf("Invalid count in output:\n%s", out)
	}

	sum := 0.25 * float64(total)
	if !strings.Contains(out, fmt.Sprintf(`latency_sum{kind="user"} %g`, sum)) {
		t.Fatalf("Invalid sum in output:\n%s", out)
	}
}

func TestSparseHistogramPopulatedOnly(t *testing.T) {

	thresholds, err := NewThresholds(0.1, 1)
	if err != nil {
		t.Fatal(err)
	}

	users := label.NewInterner()
	schema := label.MustSchema(
		label.Dynamic("user", users),
	)

	h, err := NewSparseHistogramVec(schema, thresholds)
	if err != nil {
		t.Fatal(err)
	}

	users.Intern("ghost")
	h.Observe(0.5, "alice")

	out := collect(h, "latency")
	if strings.Contains(out, "ghost") {
		t.Fatalf("Interned but never observed value must not appear:\n%s", out)
	}
	if !strings.Contains(out, `latency_count{user="alice"} 1`) {
		t.Fatalf("Observed value missing:\n%s", out)
	}
}

func TestDenseHistogramRejectsDynamic(t *testing.T) {

	thresholds, err := NewThresholds(1)
	if err != nil {
		t.Fatal(err)
	}

	schema := label.MustSchema(label.Dynamic("user", label.NewInterner()))
	if _, err := NewHistogramVec(schema, thresholds); err == nil {
		t.Fatal("Dense histogram with a dynamic dimension should be rejected")
	}
}

func TestHistogramRequiresThresholds(t *testing.T) {

	if _, err := NewHistogramVec(label.MustSchema(), Thresholds{}); err == nil {
		t.Fatal("Histogram without thresholds should be rejected")
	}
}
