// nanos - ordered container and SLID text tool
//
// Usage:
//
//	nanos fmt [options] [<file>]        Re-emit SLID (or QJSON) input as SLID
//	nanos to-json [options] [<file>]    Convert SLID to the JSON snapshot shape
//	nanos from-json [options] [<file>]  Convert a JSON snapshot or plain JSON to SLID
//	nanos check [options] [<file>...]   Validate documents
//	nanos hash [options] [<file>]       Print the canonical hash
//	nanos watch [options] <file>...     Stream framed snapshots as files change
//	nanos frames [options] [<file>]     Decode and verify a frame stream
//	nanos schema                        Print the JSON Schema of the snapshot shape
//	nanos version                       Print version info
//
// If no file is given, or the file is "-", input is read from stdin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/Neumenon/nanos/nanos"
	"github.com/Neumenon/nanos/stream"
)

const usage = `nanos - ordered container and SLID text tool.

Usage:
    nanos fmt [options] [<file>]
    nanos to-json [options] [<file>]
    nanos from-json [options] [<file>]
    nanos check [options] [<file>...]
    nanos hash [options] [<file>]
    nanos watch [options] <file>...
    nanos frames [options] [<file>]
    nanos schema
    nanos version
    nanos -h | --help

Options:
    -h --help              Show this screen.
    --compact              Drop optional spaces from SLID output.
    --qjson                Read input as QJSON.
    --redact=<mode>        Treatment of hidden entries: none, omit or comment.
    --hide=<keys>          Comma-separated named keys to hide at every level.
    --object               Emit plain JSON objects and arrays from to-json.
    --crc                  Add CRC-32 to frames written by watch.
    --verify               Check base hash chaining in frames.
    --config=<path>        YAML config file [default: .nanos.yaml].
    --log-level=<level>    Log level: debug, info, warn or error.`

func main() {
	if err := mainImpl(os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "nanos: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl(args []string) error {
	opts, err := docopt.ParseArgs(usage, args, "")
	if err != nil {
		return err
	}

	if v, _ := opts.Bool("version"); v {
		printVersion()
		return nil
	}
	if v, _ := opts.Bool("schema"); v {
		return cmdSchema(os.Stdout)
	}

	configPath, _ := opts.String("--config")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.applyFlags(opts); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	ll := &slog.LevelVar{}
	switch cfg.LogLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info", "":
		ll.Set(slog.LevelInfo)
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)
	slog.DebugContext(ctx, "Config loaded", "path", configPath, "compact", cfg.Compact, "redact", cfg.Redact, "qjson", cfg.QJSON)

	// <file> repeats in check and watch, so docopt collects it as a list.
	files, _ := opts["<file>"].([]string)
	file := ""
	if len(files) > 0 {
		file = files[0]
	}
	if s, ok := opts["<file>"].(string); ok {
		file, files = s, []string{s}
	}

	switch {
	case boolOpt(opts, "fmt"):
		return withInput(file, func(r io.Reader) error { return cmdFmt(r, os.Stdout, cfg) })
	case boolOpt(opts, "to-json"):
		object := boolOpt(opts, "--object")
		return withInput(file, func(r io.Reader) error { return cmdToJSON(r, os.Stdout, cfg, object) })
	case boolOpt(opts, "from-json"):
		return withInput(file, func(r io.Reader) error { return cmdFromJSON(r, os.Stdout, cfg) })
	case boolOpt(opts, "check"):
		return cmdCheck(files, os.Stdout, cfg)
	case boolOpt(opts, "hash"):
		return withInput(file, func(r io.Reader) error { return cmdHash(r, os.Stdout, cfg) })
	case boolOpt(opts, "watch"):
		return cmdWatch(ctx, files, os.Stdout, cfg)
	case boolOpt(opts, "frames"):
		verify := boolOpt(opts, "--verify")
		return withInput(file, func(r io.Reader) error { return cmdFrames(r, os.Stdout, verify) })
	}
	return errors.New("no command given")
}

func boolOpt(opts docopt.Opts, key string) bool {
	v, _ := opts.Bool(key)
	return v
}

// withInput runs fn on the named file, or stdin for "" and "-".
func withInput(path string, fn func(io.Reader) error) error {
	if path == "" || path == "-" {
		return fn(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return fn(f)
}

// readDoc parses all of r as SLID, or QJSON when configured.
func readDoc(r io.Reader, cfg Config) (*nanos.Container, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return parseDoc(data, cfg)
}

func parseDoc(data []byte, cfg Config) (*nanos.Container, error) {
	var (
		c   *nanos.Container
		err error
	)
	if cfg.QJSON {
		c, err = nanos.ParseQJSON(string(data))
	} else {
		c, err = nanos.Parse(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if err := cfg.hide(c); err != nil {
		return nil, err
	}
	return c, nil
}

// cmdFmt: SLID or QJSON -> SLID
func cmdFmt(r io.Reader, w io.Writer, cfg Config) error {
	c, err := readDoc(r, cfg)
	if err != nil {
		return err
	}
	opts, err := cfg.emitOptions()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, c.SLID(opts))
	return err
}

// cmdToJSON: SLID -> JSON snapshot, or plain JSON with object set
func cmdToJSON(r io.Reader, w io.Writer, cfg Config, object bool) error {
	c, err := readDoc(r, cfg)
	if err != nil {
		return err
	}
	var v any = c
	if object {
		v = c.ToObject(nanos.ObjectOptions{})
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("convert to JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// cmdFromJSON: JSON -> SLID. A snapshot object is restored exactly; any
// other JSON is read in document order.
func cmdFromJSON(r io.Reader, w io.Writer, cfg Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var probe struct {
		Type string `json:"type"`
	}
	var c *nanos.Container
	if json.Unmarshal(data, &probe) == nil && probe.Type == nanos.SnapshotType {
		c = nanos.New()
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse snapshot: %w", err)
		}
	} else {
		wrapped, err := nanos.ParseQJSON(string(data))
		if err != nil {
			return fmt.Errorf("parse JSON: %w", err)
		}
		root, ok := wrapped.At(0).(*nanos.Container)
		if !ok {
			root = wrapped
		}
		c = root
	}
	if err := cfg.hide(c); err != nil {
		return err
	}

	opts, err := cfg.emitOptions()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, c.SLID(opts))
	return err
}

// cmdCheck parses every file and reports a one-line summary for each.
func cmdCheck(paths []string, w io.Writer, cfg Config) error {
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	var failed int
	for _, path := range paths {
		name := path
		if name == "-" {
			name = "<stdin>"
		}
		err := withInput(path, func(r io.Reader) error {
			c, err := readDoc(r, cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "%s: ok (%d entries, next %d)\n", name, c.Len(), c.Next())
			return err
		})
		if err != nil {
			failed++
			slog.Error("Invalid document", "file", name, "err", err)
			fmt.Fprintf(w, "%s: %v\n", name, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents invalid", failed, len(paths))
	}
	return nil
}

// cmdHash prints the canonical hash of the input.
func cmdHash(r io.Reader, w io.Writer, cfg Config) error {
	c, err := readDoc(r, cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, nanos.CanonicalHash(c))
	return err
}

func cmdSchema(w io.Writer) error {
	schema, err := nanos.SnapshotSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	_, err = fmt.Fprintln(w, string(schema))
	return err
}

// cmdFrames decodes a frame stream and prints each frame. Decoding stops
// at the first malformed frame.
func cmdFrames(r io.Reader, w io.Writer, verify bool) error {
	var opts []stream.ReaderOption
	if verify {
		opts = append(opts, stream.WithBaseVerification())
	}
	reader := stream.NewReader(r, opts...)

	n := 0
	for {
		frame, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("frame %d: %w", n+1, err)
		}
		n++
		printFrame(w, n, frame)
	}
	slog.Info("Frames decoded", "count", n, "verified", verify)
	return nil
}

func printFrame(w io.Writer, n int, f *stream.Frame) {
	fmt.Fprintf(w, "--- Frame %d ---\n", n)
	fmt.Fprintf(w, "  sid=%d seq=%d kind=%s len=%d\n", f.SID, f.Seq, f.Kind, len(f.Payload))
	if f.CRC != nil {
		fmt.Fprintf(w, "  crc=%08x\n", *f.CRC)
	}
	if f.Base != nil {
		fmt.Fprintf(w, "  base=%s\n", stream.HashToHex(*f.Base))
	}
	if f.Final {
		fmt.Fprintf(w, "  final=true\n")
	}

	payload := strings.TrimSpace(string(f.Payload))
	if len(payload) > 200 {
		payload = payload[:200] + "..."
	}
	if payload != "" {
		fmt.Fprintf(w, "  payload: %s\n", payload)
	}
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("nanos %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}
