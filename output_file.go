package arbor

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// RotatingFileConfig configures a rotating log file, adapted from the
// teacher's FileWriter: size-based rotation, age/count-bounded cleanup,
// optional gzip compression of rotated backups.
type RotatingFileConfig struct {
	Path string

	// MaxSize is the maximum size in bytes before rotation. Default 100MB.
	MaxSize int64
	// MaxAge is how long to keep rotated files. Zero or negative uses the
	// default of 7 days; there is no setting for an unlimited age.
	MaxAge time.Duration
	// MaxBackups caps the number of rotated files kept. Zero or negative
	// uses the default of 5; there is no setting for an unlimited count.
	MaxBackups int
	// Compress gzips rotated files in the background.
	Compress bool
}

func (c *RotatingFileConfig) maxSize() int64 {
	if c.MaxSize > 0 {
		return c.MaxSize
	}
	return 100 * 1024 * 1024
}

func (c *RotatingFileConfig) maxAge() time.Duration {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return 7 * 24 * time.Hour
}

func (c *RotatingFileConfig) maxBackups() int {
	if c.MaxBackups > 0 {
		return c.MaxBackups
	}
	return 5
}

// RotatingFile implements WriteSyncer with size-based rotation. Every
// pipeline output configured against the same path shares one instance
// (see fileRegistry below), the same arena-by-key approach hierarchy.go
// uses to share Logger instances by dotted name.
type RotatingFile struct {
	cfg  RotatingFileConfig
	mu   sync.Mutex
	file *os.File
	size int64

	rotations atomic.Uint64
	written   atomic.Uint64
}

var _ WriteSyncer = (*RotatingFile)(nil)

// fileRegistry caches one *RotatingFile per path so that two pipelines
// (or two outputs within the same pipeline) pointed at the same file
// share a single os.File and a single rotation cursor, instead of
// racing to rotate the same path out from under each other.
var fileRegistry sync.Map // string (path) -> *RotatingFile

// fileRegistryMu serializes the create-miss path, mirroring
// hierarchyState.createMu: cache hits never take it.
var fileRegistryMu sync.Mutex

// openRotatingFile returns the shared *RotatingFile for cfg.Path,
// creating it on first use. Subsequent calls for the same path ignore
// cfg beyond the path itself, matching GetLogger's "cached instance wins"
// rule for loggers.
func openRotatingFile(cfg RotatingFileConfig) (*RotatingFile, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("arbor: file path is required")
	}
	if v, ok := fileRegistry.Load(cfg.Path); ok {
		return v.(*RotatingFile), nil
	}

	fileRegistryMu.Lock()
	defer fileRegistryMu.Unlock()
	if v, ok := fileRegistry.Load(cfg.Path); ok {
		return v.(*RotatingFile), nil
	}

	fw, err := NewRotatingFile(cfg)
	if err != nil {
		return nil, err
	}
	fileRegistry.Store(cfg.Path, fw)
	return fw, nil
}

// NewRotatingFile opens (creating if needed) a rotating log file. Most
// callers should go through NewFileOutput, which shares one instance per
// path via fileRegistry instead of opening the same file twice.
func NewRotatingFile(cfg RotatingFileConfig) (*RotatingFile, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("arbor: file path is required")
	}
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("arbor: cannot create directory %s: %w", dir, err)
	}
	fw := &RotatingFile{cfg: cfg}
	if err := fw.openFile(); err != nil {
		return nil, err
	}
	return fw, nil
}

// RotationCount reports how many times this file has rotated, for
// Stats()-style observability.
func (fw *RotatingFile) RotationCount() uint64 { return fw.rotations.Load() }

// BytesWritten reports the cumulative number of bytes written across
// every rotation of this file.
func (fw *RotatingFile) BytesWritten() uint64 { return fw.written.Load() }

func (fw *RotatingFile) openFile() error {
	f, err := os.OpenFile(fw.cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("arbor: cannot open file %s: %w", fw.cfg.Path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	fw.file = f
	fw.size = info.Size()
	return nil
}

func (fw *RotatingFile) Write(p []byte) (int, error) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.size+int64(len(p)) > fw.cfg.maxSize() {
		if err := fw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := fw.file.Write(p)
	fw.size += int64(n)
	fw.written.Add(uint64(n))
	return n, err
}

func (fw *RotatingFile) Sync() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file != nil {
		return fw.file.Sync()
	}
	return nil
}

// Close closes the underlying file.
func (fw *RotatingFile) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.file != nil {
		return fw.file.Close()
	}
	return nil
}

func (fw *RotatingFile) rotate() error {
	if fw.file != nil {
		fw.file.Close()
	}
	ts := time.Now().Format("2006-01-02T15-04-05")
	ext := filepath.Ext(fw.cfg.Path)
	base := strings.TrimSuffix(fw.cfg.Path, ext)
	backupPath := fmt.Sprintf("%s-%s%s", base, ts, ext)

	if err := os.Rename(fw.cfg.Path, backupPath); err != nil {
		return err
	}
	fw.rotations.Add(1)
	if fw.cfg.Compress {
		go compressRotatedFile(backupPath)
	}
	go fw.cleanup()
	return fw.openFile()
}

func (fw *RotatingFile) cleanup() {
	ext := filepath.Ext(fw.cfg.Path)
	base := strings.TrimSuffix(fw.cfg.Path, ext)
	pattern := base + "-*" + ext + "*"

	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	nowT := time.Now()
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: m, modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	if fw.cfg.maxAge() > 0 {
		for _, f := range files {
			if nowT.Sub(f.modTime) > fw.cfg.maxAge() {
				if err := os.Remove(f.path); err != nil {
					reportDiagnostic("arbor: failed to remove aged-out rotated file %s: %v", f.path, err)
				}
			}
		}
	}

	matches, _ = filepath.Glob(pattern)
	if maxB := fw.cfg.maxBackups(); maxB > 0 && len(matches) > maxB {
		sort.Strings(matches)
		for _, m := range matches[:len(matches)-maxB] {
			if err := os.Remove(m); err != nil {
				reportDiagnostic("arbor: failed to remove excess rotated file %s: %v", m, err)
			}
		}
	}
}

func compressRotatedFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return
	}
	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		os.Remove(path + ".gz")
		return
	}
	gz.Close()
	dst.Close()
	src.Close()
	os.Remove(path)
}

// NewFileOutput builds an output that appends to a rotating file at
// cfg.Path, following output_console.go's pattern of resolving
// everything from the merged cfg map rather than a constructor argument.
// The underlying *RotatingFile is opened lazily on the first write and
// shared process-wide with every other output pointed at the same path
// (fileRegistry), so rotation bookkeeping never races across pipelines.
func NewFileOutput(cfg RotatingFileConfig) OutputSpec {
	return OutputSpec{
		Name: "file",
		Fn:   writeFile,
		Defaults: map[string]interface{}{
			"path":        cfg.Path,
			"max_size":    cfg.MaxSize,
			"max_age":     cfg.MaxAge,
			"max_backups": cfg.MaxBackups,
			"compress":    cfg.Compress,
		},
	}
}

func writeFile(rec *Record, cfg map[string]interface{}) error {
	path, _ := cfg["path"].(string)
	rfc := RotatingFileConfig{
		Path:       path,
		MaxSize:    int64Opt(cfg, "max_size", 0),
		MaxAge:     durationOpt(cfg, "max_age", 0),
		MaxBackups: intOpt(cfg, "max_backups", 0),
		Compress:   boolOpt(cfg, "compress", false),
	}
	f, err := openRotatingFile(rfc)
	if err != nil {
		return err
	}
	_, err = f.Write(lineBytes(rec.Message))
	return err
}
