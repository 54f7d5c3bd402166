package groovyc

import (
	"strings"
	"testing"

	"git.home.luguber.info/inful/groovybuild/internal/diag"
)

func feedLines(p *OutputParser, lines ...string) {
	for _, l := range lines {
		p.ProcessLine(l)
	}
}

func TestOutputParser_CompiledItem(t *testing.T) {
	p := NewOutputParser()
	feedLines(p,
		"!compiled!\t/tmp/build/pkg/Foo.class\t/src/main/pkg/Foo.groovy",
		"!compiled!\t/tmp/build/pkg/Foo$Bar.class\t/src/main/pkg/Foo.groovy",
	)

	items := p.CompiledItems()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].OutputPath != "/tmp/build/pkg/Foo.class" {
		t.Errorf("unexpected output path %q", items[0].OutputPath)
	}
	if items[0].SourcePath != "/src/main/pkg/Foo.groovy" {
		t.Errorf("unexpected source path %q", items[0].SourcePath)
	}
	if items[1].OutputPath != "/tmp/build/pkg/Foo$Bar.class" {
		t.Errorf("unexpected inner class path %q", items[1].OutputPath)
	}
}

func TestOutputParser_MalformedCompiledLineIgnored(t *testing.T) {
	p := NewOutputParser()
	feedLines(p,
		"!compiled!\tmissing-source-column",
		"!compiled!no tabs at all",
	)

	if items := p.CompiledItems(); len(items) != 0 {
		t.Fatalf("malformed lines must not produce items, got %v", items)
	}
}

func TestOutputParser_MessageBlock(t *testing.T) {
	p := NewOutputParser()
	feedLines(p,
		"!message-start!",
		"kind: error",
		"file: /src/main/pkg/Foo.groovy",
		"line: 12",
		"column: 5",
		"unable to resolve class Bar",
		" @ line 12, column 5.",
		"!message-end!",
	)

	msgs := p.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Kind != diag.KindError {
		t.Errorf("kind = %v, want error", m.Kind)
	}
	if m.SourcePath != "/src/main/pkg/Foo.groovy" {
		t.Errorf("source path = %q", m.SourcePath)
	}
	if m.Line != 12 || m.Column != 5 {
		t.Errorf("position = %d:%d, want 12:5", m.Line, m.Column)
	}
	want := "unable to resolve class Bar\n @ line 12, column 5."
	if m.Text != want {
		t.Errorf("text = %q, want %q", m.Text, want)
	}
}

func TestOutputParser_MessageKinds(t *testing.T) {
	tests := []struct {
		header string
		want   diag.Kind
	}{
		{"kind: error", diag.KindError},
		{"kind: warning", diag.KindWarning},
		{"kind: WARNING", diag.KindWarning},
		{"kind: progress", diag.KindProgress},
		{"kind: information", diag.KindInfo},
		{"kind: whatever", diag.KindInfo},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			p := NewOutputParser()
			feedLines(p, "!message-start!", tt.header, "text", "!message-end!")
			msgs := p.Messages()
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message, got %d", len(msgs))
			}
			if msgs[0].Kind != tt.want {
				t.Errorf("kind = %v, want %v", msgs[0].Kind, tt.want)
			}
		})
	}
}

func TestOutputParser_ProgressLine(t *testing.T) {
	p := NewOutputParser()
	feedLines(p, "!progress! Compiling module-a")

	msgs := p.Messages()
	if len(msgs) != 1 || msgs[0].Kind != diag.KindProgress {
		t.Fatalf("expected one progress message, got %v", msgs)
	}
	if msgs[0].Text != "Compiling module-a" {
		t.Errorf("text = %q", msgs[0].Text)
	}
}

func TestOutputParser_CarriageReturnStripped(t *testing.T) {
	p := NewOutputParser()
	feedLines(p, "!compiled!\t/out/A.class\t/src/A.groovy\r")

	items := p.CompiledItems()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if strings.HasSuffix(items[0].SourcePath, "\r") {
		t.Errorf("carriage return not stripped: %q", items[0].SourcePath)
	}
}

func TestOutputParser_RetryPatterns(t *testing.T) {
	tests := []struct {
		name string
		line string
		want bool
	}{
		{"no class def", "Caused by: java.lang.NoClassDefFoundError: pkg/Gone", true},
		{"class not found", "java.lang.ClassNotFoundException: pkg.Gone", true},
		{"incompatible change", "java.lang.IncompatibleClassChangeError: x", true},
		{"no such method", "java.lang.NoSuchMethodError: pkg.A.b()", true},
		{"compiler bug banner", "BUG! exception in phase 'class generation'", true},
		{"ordinary chatter", "Recompiling 3 files", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewOutputParser()
			p.ProcessLine(tt.line)
			if got := p.ShouldRetry(); got != tt.want {
				t.Errorf("ShouldRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutputParser_RetryFromErrorMessageText(t *testing.T) {
	p := NewOutputParser()
	feedLines(p,
		"!message-start!",
		"kind: error",
		"java.lang.ClassNotFoundException: org.example.Missing",
		"!message-end!",
	)

	if !p.ShouldRetry() {
		t.Fatal("linkage failure inside an error message must trigger retry")
	}
}

func TestOutputParser_WarningTextDoesNotTriggerRetry(t *testing.T) {
	p := NewOutputParser()
	feedLines(p,
		"!message-start!",
		"kind: warning",
		"mentions java.lang.NoClassDefFoundError in prose",
		"!message-end!",
	)

	if p.ShouldRetry() {
		t.Fatal("retry patterns apply to error messages only")
	}
}

func TestOutputParser_NonZeroExitSynthesizesError(t *testing.T) {
	p := NewOutputParser()
	feedLines(p, "some stack frame", "another stack frame")
	p.NotifyFinished(137)

	msgs := p.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected synthesized error, got %d messages", len(msgs))
	}
	if msgs[0].Kind != diag.KindError {
		t.Errorf("kind = %v, want error", msgs[0].Kind)
	}
	if !strings.Contains(msgs[0].Text, "exit code 137") {
		t.Errorf("text should name the exit code: %q", msgs[0].Text)
	}
	if !strings.Contains(msgs[0].Text, "another stack frame") {
		t.Errorf("text should carry the raw tail: %q", msgs[0].Text)
	}
	if !p.ShouldRetry() {
		t.Error("unexplained death should suggest a retry")
	}
}

func TestOutputParser_NonZeroExitWithReportedErrorAddsNothing(t *testing.T) {
	p := NewOutputParser()
	feedLines(p,
		"!compiled!\t/out/A.class\t/src/A.groovy",
		"!message-start!",
		"kind: error",
		"file: /src/B.groovy",
		"expecting '}', found ''",
		"!message-end!",
	)
	p.NotifyFinished(1)

	if msgs := p.Messages(); len(msgs) != 1 {
		t.Fatalf("reported error suffices, got %d messages", len(msgs))
	}
	if items := p.CompiledItems(); len(items) != 1 {
		t.Fatalf("partial success must keep compiled items, got %d", len(items))
	}
	if p.ShouldRetry() {
		t.Error("a plain syntax error is not a retry condition")
	}
}

func TestOutputParser_ZeroExitNoSynthesizedError(t *testing.T) {
	p := NewOutputParser()
	feedLines(p, "!compiled!\t/out/A.class\t/src/A.groovy")
	p.NotifyFinished(0)

	if msgs := p.Messages(); len(msgs) != 0 {
		t.Fatalf("clean exit must add no messages, got %v", msgs)
	}
	if p.ShouldRetry() {
		t.Error("clean exit must not retry")
	}
}

func TestOutputParser_TruncatedMessageBlockFlushed(t *testing.T) {
	p := NewOutputParser()
	feedLines(p,
		"!message-start!",
		"kind: error",
		"file: /src/C.groovy",
		"compiler crashed mid-message",
	)
	p.NotifyFinished(1)

	msgs := p.Messages()
	if len(msgs) != 1 {
		t.Fatalf("truncated block must still surface, got %d messages", len(msgs))
	}
	if msgs[0].Text != "compiler crashed mid-message" {
		t.Errorf("text = %q", msgs[0].Text)
	}
	if msgs[0].SourcePath != "/src/C.groovy" {
		t.Errorf("source path = %q", msgs[0].SourcePath)
	}
}

func TestOutputParser_ResultSnapshot(t *testing.T) {
	p := NewOutputParser()
	feedLines(p,
		"!compiled!\t/out/A.class\t/src/A.groovy",
		"!message-start!",
		"kind: warning",
		"deprecated method",
		"!message-end!",
	)
	p.NotifyFinished(0)

	res := p.Result()
	if len(res.Items) != 1 || len(res.Messages) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.ExitCode != 0 || res.ShouldRetry {
		t.Errorf("exit=%d retry=%v, want 0/false", res.ExitCode, res.ShouldRetry)
	}
	if res.HasErrors() {
		t.Error("warning alone must not count as error")
	}

	// Mutating the snapshot must not reach the parser.
	res.Items[0].OutputPath = "clobbered"
	if p.CompiledItems()[0].OutputPath != "/out/A.class" {
		t.Error("Result must return copies")
	}
}
