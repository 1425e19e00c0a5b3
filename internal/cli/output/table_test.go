package output

import (
	"bytes"
	"testing"
)

type fakeTable struct {
	headers []string
	rows    [][]string
}

func (f fakeTable) Headers() []string { return f.headers }
func (f fakeTable) Rows() [][]string  { return f.rows }

func TestPrintTableRendersHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	data := fakeTable{
		headers: []string{"PROTOCOL", "OPERATION"},
		rows:    [][]string{{"mount", "mnt"}, {"nfs3", "getattr"}},
	}

	if err := PrintTable(&buf, data); err != nil {
		t.Fatalf("PrintTable returned error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"PROTOCOL", "OPERATION", "mount", "mnt", "nfs3", "getattr"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestTableDataAccumulatesRows(t *testing.T) {
	td := NewTableData("A", "B")
	td.AddRow("1", "2")
	td.AddRow("3", "4")

	if got := td.Headers(); len(got) != 2 {
		t.Fatalf("Headers() = %v, want 2 entries", got)
	}
	if got := td.Rows(); len(got) != 2 {
		t.Fatalf("Rows() = %v, want 2 entries", got)
	}
}
