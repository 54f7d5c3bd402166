package groovyc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"git.home.luguber.info/inful/groovybuild/internal/diag"
)

// retryPatterns match output smelling like classpath staleness rather than
// genuine source errors: linkage failures against classes that moved under
// the compiler, and the compiler's own internal error banner. Any of these
// suggests the chunk should be rebuilt from scratch.
var retryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`java\.lang\.NoClassDefFoundError`),
	regexp.MustCompile(`java\.lang\.ClassNotFoundException`),
	regexp.MustCompile(`java\.lang\.IncompatibleClassChangeError`),
	regexp.MustCompile(`java\.lang\.NoSuchMethodError`),
	regexp.MustCompile(`BUG! exception in phase`),
}

// OutputParser turns the runner's line protocol into compiled items and
// diagnostics. Stdout and stderr pumps feed it concurrently, one line per
// call; a mutex keeps the message-block state machine consistent.
type OutputParser struct {
	mu          sync.Mutex
	items       []CompiledItem
	messages    []diag.Message
	raw         []string
	inMessage   bool
	headerPhase bool
	current     diag.Message
	currentText []string
	retry       bool
	finished    bool
	exitCode    int
}

// NewOutputParser creates a parser ready to receive lines.
func NewOutputParser() *OutputParser {
	return &OutputParser{}
}

// ProcessLine consumes one line of process output.
func (p *OutputParser) ProcessLine(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line = strings.TrimSuffix(line, "\r")

	if p.inMessage {
		p.processMessageLine(line)
		return
	}

	switch {
	case line == markMessageStart:
		p.inMessage = true
		p.headerPhase = true
		p.current = diag.Message{Kind: diag.KindInfo}
		p.currentText = nil
	case strings.HasPrefix(line, markCompiled):
		p.processCompiledLine(line)
	case strings.HasPrefix(line, markProgress):
		text := strings.TrimSpace(strings.TrimPrefix(line, markProgress))
		if text != "" {
			p.messages = append(p.messages, diag.Progressf(text))
		}
	default:
		if line != "" {
			p.raw = append(p.raw, line)
			p.checkRetryPattern(line)
		}
	}
}

// processCompiledLine parses "!compiled!\t<output>\t<source>". Malformed
// lines are kept as raw chatter instead of failing the round.
func (p *OutputParser) processCompiledLine(line string) {
	parts := strings.Split(line, "\t")
	if len(parts) != 3 || parts[1] == "" {
		p.raw = append(p.raw, line)
		return
	}
	p.items = append(p.items, CompiledItem{OutputPath: parts[1], SourcePath: parts[2]})
}

// processMessageLine advances the message block state machine: headers
// first, then free text until the end marker.
func (p *OutputParser) processMessageLine(line string) {
	if line == markMessageEnd {
		p.current.Text = strings.Join(p.currentText, "\n")
		p.messages = append(p.messages, p.current)
		if p.current.Kind == diag.KindError {
			p.checkRetryPattern(p.current.Text)
		}
		p.inMessage = false
		return
	}

	if p.headerPhase {
		switch {
		case strings.HasPrefix(line, headerKind):
			p.current.Kind = parseKind(strings.TrimSpace(strings.TrimPrefix(line, headerKind)))
			return
		case strings.HasPrefix(line, headerFile):
			p.current.SourcePath = strings.TrimSpace(strings.TrimPrefix(line, headerFile))
			return
		case strings.HasPrefix(line, headerLine):
			p.current.Line, _ = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, headerLine)))
			return
		case strings.HasPrefix(line, headerColumn):
			p.current.Column, _ = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, headerColumn)))
			return
		}
		p.headerPhase = false
	}
	p.currentText = append(p.currentText, line)
}

func parseKind(s string) diag.Kind {
	switch strings.ToLower(s) {
	case "error":
		return diag.KindError
	case "warning":
		return diag.KindWarning
	case "progress":
		return diag.KindProgress
	default:
		return diag.KindInfo
	}
}

func (p *OutputParser) checkRetryPattern(text string) {
	if p.retry {
		return
	}
	for _, re := range retryPatterns {
		if re.MatchString(text) {
			p.retry = true
			return
		}
	}
}

// NotifyFinished finalizes parsing with the process exit code. A non-zero
// exit without any reported error still keeps the items parsed so far
// (partial success), but synthesizes one error carrying the raw output
// tail and suggests a retry: the process died without explaining itself.
func (p *OutputParser) NotifyFinished(exitCode int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finished = true
	p.exitCode = exitCode

	if p.inMessage {
		// Truncated message block: the process died mid-frame.
		p.current.Text = strings.Join(p.currentText, "\n")
		p.messages = append(p.messages, p.current)
		p.inMessage = false
	}

	if exitCode != 0 && !p.hasErrorsLocked() {
		text := fmt.Sprintf("compiler process terminated with exit code %d", exitCode)
		if tail := p.rawTailLocked(10); tail != "" {
			text += "\n" + tail
		}
		p.messages = append(p.messages, diag.Errorf(text))
		p.retry = true
	}
}

func (p *OutputParser) hasErrorsLocked() bool {
	for _, m := range p.messages {
		if m.Kind.Severe() {
			return true
		}
	}
	return false
}

func (p *OutputParser) rawTailLocked(n int) string {
	if len(p.raw) == 0 {
		return ""
	}
	start := len(p.raw) - n
	if start < 0 {
		start = 0
	}
	return strings.Join(p.raw[start:], "\n")
}

// CompiledItems returns the items parsed so far, usable even after a
// mid-run crash.
func (p *OutputParser) CompiledItems() []CompiledItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompiledItem, len(p.items))
	copy(out, p.items)
	return out
}

// Messages returns the diagnostics parsed so far.
func (p *OutputParser) Messages() []diag.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]diag.Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// ShouldRetry reports whether the output suggested a staleness failure.
func (p *OutputParser) ShouldRetry() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.retry
}

// Result snapshots the parser into an invocation result.
func (p *OutputParser) Result() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	items := make([]CompiledItem, len(p.items))
	copy(items, p.items)
	messages := make([]diag.Message, len(p.messages))
	copy(messages, p.messages)
	return &Result{
		Items:       items,
		Messages:    messages,
		ShouldRetry: p.retry,
		ExitCode:    p.exitCode,
	}
}
