package groovyc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/workpool"
)

// grapeRootEnv names the environment variable carrying the dependency
// cache root forwarded to the forked JVM.
const grapeRootEnv = "GRAPE_ROOT"

// maxOutputLine bounds a single protocol line; compiler stack traces can
// get long but never this long.
const maxOutputLine = 1024 * 1024

// ForkedRunner launches the compiler runner in a child JVM and streams its
// output into an OutputParser while the calling goroutine blocks on exit.
type ForkedRunner struct {
	javaPath  string
	mainClass string
	heapMB    int
	encoding  string
	grapeRoot string
	pool      *workpool.Group
}

// NewForkedRunner creates a runner from compiler configuration. The pool
// hosts the stream pump goroutines.
func NewForkedRunner(cfg *config.CompilerConfig, pool *workpool.Group) *ForkedRunner {
	return &ForkedRunner{
		javaPath:  cfg.JavaPath,
		mainClass: cfg.MainClass,
		heapMB:    cfg.HeapMB,
		encoding:  cfg.Encoding,
		grapeRoot: cfg.GrapeRoot,
		pool:      pool,
	}
}

// Run executes one compilation. The child is killed when ctx is canceled;
// the process handle is always released before returning.
func (r *ForkedRunner) Run(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrBadRequest)
	}

	paramFile, err := CreateParamFile(req)
	if err != nil {
		return nil, err
	}
	defer os.Remove(paramFile)

	cmd := exec.CommandContext(ctx, r.javaPath, r.buildArgs(req, paramFile)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	parser := NewOutputParser()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	// Both pipes must drain before Wait closes them. Each stream gets its
	// own decoder: decoders carry state and must not be shared.
	enc := r.effectiveEncoding(req)
	var pumps sync.WaitGroup
	pumps.Add(2)
	r.startPump(stdout, parser, enc, &pumps)
	r.startPump(stderr, parser, enc, &pumps)
	pumps.Wait()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	parser.NotifyFinished(exitCode)
	return parser.Result(), nil
}

// buildArgs assembles the JVM command line:
//
//	java -Xmx<heap>m -Dfile.encoding=<enc> [-Dgrape.root=<dir>]
//	     -cp <classpath> <main> <optimize> <mode> <paramFile> [--indy]
func (r *ForkedRunner) buildArgs(req *Request, paramFile string) []string {
	args := []string{fmt.Sprintf("-Xmx%dm", r.heapMB)}

	if enc := r.effectiveEncoding(req); enc != "" {
		args = append(args, "-Dfile.encoding="+enc)
	}
	if grape := r.grapeRootValue(); grape != "" {
		args = append(args, "-Dgrape.root="+grape)
	}

	args = append(args, "-cp", strings.Join(req.launchClasspath(), string(os.PathListSeparator)))
	args = append(args, r.mainClass)

	optimize := TokenNoOptimize
	if req.Optimize {
		optimize = TokenOptimize
	}
	args = append(args, optimize, string(req.Mode), paramFile)

	if req.Indy {
		args = append(args, FlagIndy)
	}
	return args
}

// grapeRootValue prefers the configured root and falls back to the host
// environment.
func (r *ForkedRunner) grapeRootValue() string {
	if r.grapeRoot != "" {
		return r.grapeRoot
	}
	return os.Getenv(grapeRootEnv)
}

// effectiveEncoding resolves the charset governing both the child's
// -Dfile.encoding and the decoding of its output streams.
func (r *ForkedRunner) effectiveEncoding(req *Request) string {
	if req.Encoding != "" {
		return req.Encoding
	}
	return r.encoding
}

// startPump reads the stream line by line into the parser on the shared
// pool. During pool shutdown a plain goroutine takes over so an in-flight
// compilation still drains its pipes.
func (r *ForkedRunner) startPump(stream io.Reader, parser *OutputParser, enc string, pumps *sync.WaitGroup) {
	run := func() {
		defer pumps.Done()
		pumpLines(stream, parser, enc)
	}
	if r.pool == nil || !r.pool.Go(run) {
		go run()
	}
}

func pumpLines(stream io.Reader, parser *OutputParser, enc string) {
	if dec := newDecoder(enc); dec != nil {
		stream = transform.NewReader(stream, dec)
	}
	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 0, 64*1024), maxOutputLine)
	for sc.Scan() {
		parser.ProcessLine(sc.Text())
	}
}

// newDecoder resolves a file encoding name through the IANA registry.
// UTF-8 and unknown names need no transformation.
func newDecoder(name string) *encoding.Decoder {
	if name == "" || strings.EqualFold(name, "UTF-8") {
		return nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil
	}
	return enc.NewDecoder()
}
