package groovyc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
)

// WriteParams writes the line-oriented parameter file the runner reads its
// work order from. Single values are "key: value" lines; lists are a
// section header followed by one entry per line and an end marker. The
// class-to-source section is sorted for reproducible files.
func WriteParams(w io.Writer, req *Request) error {
	bw := bufio.NewWriter(w)

	writeValue := func(key, value string) {
		if value != "" {
			fmt.Fprintf(bw, "%s %s\n", key, value)
		}
	}
	writeSection := func(key string, entries []string) {
		if len(entries) == 0 {
			return
		}
		fmt.Fprintln(bw, key)
		for _, e := range entries {
			fmt.Fprintln(bw, e)
		}
		fmt.Fprintln(bw, paramSectionEnd)
	}

	writeValue(paramOutput, req.OutputDir)
	writeValue(paramFinalOutput, req.FinalOutputDir)
	writeValue(paramEncoding, req.Encoding)
	writeValue(paramConfigScript, req.ConfigScript)

	writeSection(paramSources, req.Sources)
	writeSection(paramClasspath, req.Classpath)
	writeSection(paramPatchers, req.Patchers)

	if len(req.ClassToSource) > 0 {
		names := make([]string, 0, len(req.ClassToSource))
		for name := range req.ClassToSource {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(bw, paramClassToSrc)
		for _, name := range names {
			fmt.Fprintf(bw, "%s=%s\n", name, req.ClassToSource[name])
		}
		fmt.Fprintln(bw, paramSectionEnd)
	}

	return bw.Flush()
}

// CreateParamFile materializes the parameter file in the system temp
// directory. The caller removes it after the process exits.
func CreateParamFile(req *Request) (string, error) {
	f, err := os.CreateTemp("", "groovyc-params-*.txt")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParamFile, err)
	}
	if err := WriteParams(f, req); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: %v", ErrParamFile, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: %v", ErrParamFile, err)
	}
	return f.Name(), nil
}
