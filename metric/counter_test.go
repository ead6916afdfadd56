package metric

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/devopsext/measured/exposition"
	"github.com/devopsext/measured/label"
)

func testSchema() *label.Schema {

	return label.MustSchema(
		label.Fixed("kind", label.MustFixedSet("user", "internal", "network")),
		label.Fixed("route", label.MustFixedSet(
			"/api/v1/users",
			"/api/v1/users/:id",
			"/api/v1/products",
			"/api/v1/products/:id",
			"/api/v1/products/:id/owner",
			"/api/v1/products/:id/purchase",
		)),
	)
}

func collect(c Collector, name string) string {

	enc := exposition.NewEncoder()
	c.CollectInto(name, enc)
	return string(enc.Finish())
}

func sampleLines(out string) []string {

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestCounterConcurrent(t *testing.T) {

	schema := testSchema()

	dense, err := NewCounterVec(schema)
	if err != nil {
		t.Fatal(err)
	}
	sparse := NewSparseCounterVec(schema)

	workers := 8
	loops := 1000

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < loops; i++ {
				dense.Inc("user", "/api/v1/users")
				sparse.Inc("user", "/api/v1/users")
			}
		}()
	}
	wg.Wait()

	expected := `kind="user",route="/api/v1/users"} 8000`
	for _, out := range []string{collect(dense, "c"), collect(sparse, "c")} {
		if !strings.Contains(out, expected) {
			t.Fatalf("Expected %q in output:\n%s", expected, out)
		}
	}
}

func TestCounterIsolation(t *testing.T) {

	c := NewSparseCounterVec(testSchema())

	for i := 0; i < 5; i++ {
		c.Inc("user", "/api/v1/users")
	}

	out := collect(c, "errors")
	if strings.Contains(out, `kind="network"`) {
		t.Fatalf("Untouched combination must not appear in sparse output:\n%s", out)
	}

	d, err := NewCounterVec(testSchema())
	if err != nil {
		t.Fatal(err)
	}
	d.Inc("user", "/api/v1/users")

	for _, line := range sampleLines(collect(d, "errors")) {
		if strings.Contains(line, `kind="user",route="/api/v1/users"`) {
			if !strings.HasSuffix(line, " 1") {
				t.Fatalf("Invalid line %q, expected value 1", line)
			}
		} else if !strings.HasSuffix(line, " 0") {
			t.Fatalf("Invalid line %q, other combinations must stay 0", line)
		}
	}
}

func TestCounterFullScenario(t *testing.T) {

	dense, err := NewCounterVec(testSchema())
	if err != nil {
		t.Fatal(err)
	}
	sparse := NewSparseCounterVec(testSchema())

	kinds := []string{"user", "internal", "network"}
	routes := []string{
		"/api/v1/users",
		"/api/v1/users/:id",
		"/api/v1/products",
		"/api/v1/products/:id",
		"/api/v1/products/:id/owner",
		"/api/v1/products/:id/purchase",
	}

	for _, kind := range kinds {
		for _, route := range routes {
			dense.Inc(kind, route)
			sparse.Inc(kind, route)
		}
	}

	for _, c := range []*CounterVec{dense, sparse} {

		lines := sampleLines(collect(c, "http_request_errors"))
		if len(lines) != 18 {
			t.Fatalf("Invalid line count %d, expected 18:\n%s", len(lines), strings.Join(lines, "\n"))
		}
		for _, line := range lines {
			if !strings.HasPrefix(line, "http_request_errors_total{") || !strings.HasSuffix(line, " 1") {
				t.Fatalf("Invalid line %q", line)
			}
		}
	}
}

func TestCounterIdempotentExport(t *testing.T) {

	c := NewSparseCounterVec(testSchema())
	c.Inc("user", "/api/v1/users")
	c.Inc("network", "/api/v1/products")
	c.Add(3, "internal", "/api/v1/users/:id")

	first := collect(c, "errors")
	second := collect(c, "errors")

	if !bytes.Equal([]byte(first), []byte(second)) {
		t.Fatalf("Export is not idempotent:\n%s\n---\n%s", first, second)
	}
}

func TestCounterZeroLabels(t *testing.T) {

	c, err := NewCounterVec(label.MustSchema())
	if err != nil {
		t.Fatal(err)
	}

	c.Inc()
	c.Add(4)

	out := collect(c, "events")
	if strings.TrimSpace(out) != "events_total 5" {
		t.Fatalf("Invalid output %q", out)
	}
}

func TestDenseCounterRejectsDynamic(t *testing.T) {

	schema := label.MustSchema(
		label.Dynamic("user", label.NewInterner()),
	)

	if _, err := NewCounterVec(schema); err == nil {
		t.Fatal("Dense counter with a dynamic dimension should be rejected")
	}
}

func TestSparseCounterDynamic(t *testing.T) {

	users := label.NewInterner()
	schema := label.MustSchema(
		label.Fixed("kind", label.MustFixedSet("user", "internal", "network")),
		label.Dynamic("user", users),
	)

	c := NewSparseCounterVec(schema)
	c.Inc("user", "alice")
	c.Inc("user", "alice")
	c.Inc("internal", "bob")

	lines := sampleLines(collect(c, "calls"))
	if len(lines) != 2 {
		t.Fatalf("Invalid line count %d, expected 2:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[0] != `calls_total{kind="user",user="alice"} 2` {
		t.Fatalf("Invalid line %q", lines[0])
	}
	if lines[1] != `calls_total{kind="internal",user="bob"} 1` {
		t.Fatalf("Invalid line %q", lines[1])
	}
}
