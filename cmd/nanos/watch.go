package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Neumenon/nanos/nanos"
	"github.com/Neumenon/nanos/stream"
)

// watchedFile is one source of a watch feed. Its SID is its position on
// the command line.
type watchedFile struct {
	path string
	sid  uint64
	last string // canonical hash or error text of the last frame
}

// cmdWatch writes a doc frame for each file, then another whenever a file
// changes. A file that fails to parse yields an err frame and the feed
// keeps running. On cancellation every source gets a final frame.
func cmdWatch(ctx context.Context, paths []string, w io.Writer, cfg Config) error {
	opts, err := cfg.emitOptions()
	if err != nil {
		return err
	}
	fw := stream.NewWriter(w)
	if cfg.CRC {
		fw = stream.NewWriterWithCRC(w)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Directories are watched rather than files so that editors replacing
	// a file by rename are still seen.
	files := make([]*watchedFile, 0, len(paths))
	byPath := make(map[string]*watchedFile, len(paths))
	dirs := make(map[string]bool)
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		if _, dup := byPath[abs]; dup {
			continue
		}
		f := &watchedFile{path: abs, sid: uint64(i)}
		files = append(files, f)
		byPath[abs] = f
		if dir := filepath.Dir(abs); !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	for _, f := range files {
		if err := emitSnapshot(ctx, fw, f, cfg, opts); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "Watching", "files", len(files))

	for {
		select {
		case <-ctx.Done():
			for _, f := range files {
				if err := fw.WriteFinal(f.sid); err != nil {
					return err
				}
			}
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			f, known := byPath[filepath.Clean(event.Name)]
			if !known || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			slog.DebugContext(ctx, "File event", "file", f.path, "op", event.Op.String())
			if err := emitSnapshot(ctx, fw, f, cfg, opts); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching files", "err", err)
		}
	}
}

// emitSnapshot reads f and writes a frame unless nothing changed since
// the last frame for f.
func emitSnapshot(ctx context.Context, fw *stream.Writer, f *watchedFile, cfg Config, opts nanos.EmitOptions) error {
	data, err := os.ReadFile(f.path)
	var doc *nanos.Container
	if err == nil {
		doc, err = parseDoc(data, cfg)
	}
	if err != nil {
		if f.last == err.Error() {
			return nil
		}
		f.last = err.Error()
		slog.WarnContext(ctx, "Snapshot rejected", "file", f.path, "err", err)
		return fw.WriteErr(f.sid, err)
	}

	hash := nanos.CanonicalHash(doc)
	if f.last == hash {
		slog.DebugContext(ctx, "Snapshot unchanged", "file", f.path)
		return nil
	}
	f.last = hash
	slog.InfoContext(ctx, "Snapshot", "file", f.path, "hash", hash[:12], "entries", doc.Len())
	return fw.WriteDoc(f.sid, doc, opts)
}
