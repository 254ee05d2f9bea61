package eqcache

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Options controls one prune run over a rendered-equation image cache.
type Options struct {
	// Dir is the cache root to walk.
	Dir string
	// IndexPath is the companion index mapping equation digests to image
	// paths (relative to Dir). Files still referenced here are never
	// deleted, whatever their age.
	IndexPath string
	// Days is the deletion threshold: files strictly older are candidates.
	Days int
	// From is where the age report starts, in days.
	From int
	// UseAccessTime classifies files by access time instead of modify time.
	UseAccessTime bool
	// Delete actually removes stale files and rewrites the index.
	// Without it the run is a dry inspection.
	Delete bool
	// Report prints an age histogram to the writer passed to Prune.
	Report bool
	// Now anchors age computation; zero means time.Now().
	Now time.Time
}

// Result summarizes a prune run.
type Result struct {
	Scanned      int
	Deleted      int
	Retained     int // stale but still referenced by the index
	IndexDropped int
	// AgeCounts maps age-in-days to file count, for the report.
	AgeCounts map[int]int
}

// Prune walks the cache once, optionally reporting an age histogram and
// optionally deleting files older than Options.Days. Files referenced by the
// index survive any age; after deletions the index is rewritten without the
// entries whose files are gone.
func Prune(opts Options, out io.Writer) (*Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	index, err := readIndex(opts.IndexPath)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool, len(index))
	for _, rel := range index {
		referenced[rel] = true
	}

	res := &Result{AgeCounts: map[int]int{}}
	deleted := map[string]bool{}

	absIndex, _ := filepath.Abs(opts.IndexPath)

	err = filepath.WalkDir(opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == absIndex {
			return nil // never touch the index itself
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		ts := info.ModTime()
		if opts.UseAccessTime {
			ts = accessTime(info)
		}

		age := int(now.Sub(ts).Hours() / 24)
		if age < 0 {
			age = 0
		}

		res.Scanned++
		if age >= opts.From {
			res.AgeCounts[age]++
		}

		if !opts.Delete || age <= opts.Days {
			return nil
		}

		rel, err := filepath.Rel(opts.Dir, path)
		if err != nil {
			return err
		}
		if referenced[rel] {
			res.Retained++
			return nil
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
		deleted[rel] = true
		res.Deleted++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opts.Report {
		writeReport(out, opts, res)
	}

	if opts.Delete && len(deleted) > 0 {
		dropped, err := rewriteIndex(opts.IndexPath, opts.Dir, index, deleted)
		if err != nil {
			return nil, err
		}
		res.IndexDropped = dropped
	}

	return res, nil
}

// readIndex parses the digest→path index. A missing index is treated as
// empty: nothing is protected, nothing needs rewriting.
func readIndex(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	index := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, rel, ok := strings.Cut(line, "\t")
		if !ok {
			continue // malformed line, leave it out
		}
		index[key] = rel
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return index, nil
}

// rewriteIndex writes the index back without entries whose files were
// deleted (or are otherwise gone), via a temp file and rename.
func rewriteIndex(path, dir string, index map[string]string, deleted map[string]bool) (int, error) {
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dropped := 0
	var buf strings.Builder
	for _, k := range keys {
		rel := index[k]
		if deleted[rel] {
			dropped++
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, rel)); os.IsNotExist(err) {
			dropped++
			continue
		}
		buf.WriteString(k)
		buf.WriteByte('\t')
		buf.WriteString(rel)
		buf.WriteByte('\n')
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(buf.String()), 0o644); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("replace index: %w", err)
	}
	return dropped, nil
}

func writeReport(out io.Writer, opts Options, res *Result) {
	kind := "modify"
	if opts.UseAccessTime {
		kind = "access"
	}
	fmt.Fprintf(out, "Age report (%s dates, from day %d):\n", kind, opts.From)

	ages := make([]int, 0, len(res.AgeCounts))
	for age := range res.AgeCounts {
		ages = append(ages, age)
	}
	sort.Ints(ages)
	for _, age := range ages {
		fmt.Fprintf(out, "%4d day(s): %d file(s)\n", age, res.AgeCounts[age])
	}
	fmt.Fprintf(out, "Total scanned: %d\n", res.Scanned)
}
