package cli

import (
	"bytes"
	"strings"
	"testing"
)

// captureStdout redirects the print helpers for the duration of the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	tests := []struct {
		name  string
		print func()
		want  []string
	}{
		{"success", func() { printSuccess("Loaded %s", "run.json") }, []string{iconSuccess, "Loaded run.json"}},
		{"error", func() { printError("boom") }, []string{iconError, "boom"}},
		{"warning", func() { printWarning("careful") }, []string{iconWarning, "careful"}},
		{"info", func() { printInfo("%d datasets", 3) }, []string{iconInfo, "3 datasets"}},
		{"file", func() { printFile("out/run.png") }, []string{iconArrow, "out/run.png"}},
		{"key value", func() { printKeyValue("Modules", "4") }, []string{"Modules", "4"}},
		{"next step", func() { printNextStep("Explore it", "kudsight view") }, []string{"Explore it:", "kudsight view"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureStdout(t)
			tt.print()
			out := buf.String()
			if !strings.HasSuffix(out, "\n") || strings.Count(out, "\n") != 1 {
				t.Errorf("output %q is not one line", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q lacks %q", out, w)
				}
			}
		})
	}
}

func TestPrintDatasetTable(t *testing.T) {
	buf := captureStdout(t)
	printDatasetTable([]datasetInfo{
		{Name: "20240301.json", Diagram: true},
		{Name: "20240101.json", Layout: true},
	})
	out := buf.String()
	for _, w := range []string{"20240301.json", "20240101.json", "2 datasets"} {
		if !strings.Contains(out, w) {
			t.Errorf("table lacks %q:\n%s", w, out)
		}
	}
	if strings.Index(out, "20240301.json") > strings.Index(out, "20240101.json") {
		t.Error("rows not in list order")
	}
}

func TestPrintDatasetTableEmpty(t *testing.T) {
	buf := captureStdout(t)
	printDatasetTable(nil)
	if !strings.Contains(buf.String(), "No datasets yet") {
		t.Errorf("output = %q", buf.String())
	}
}
