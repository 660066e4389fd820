// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pdiddy/gscientist/pkg/types"
)

// BatchColumns is the fixed field order of incremental batch files.
var BatchColumns = []string{"title", "url", "authors", "year", "citations", "abstract"}

// BatchAppender appends each batch to a CSV file. The header is written
// once, when the file is created; later batches and later runs only append.
type BatchAppender struct {
	path string
	mu   sync.Mutex
}

// NewBatchAppender returns an appender for path. Nothing is written until
// the first batch.
func NewBatchAppender(path string) *BatchAppender {
	return &BatchAppender{path: path}
}

// Path returns the target file.
func (a *BatchAppender) Path() string { return a.path }

// WriteBatch appends papers to the file.
func (a *BatchAppender) WriteBatch(papers []types.Paper) error {
	if len(papers) == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ensureDir(a.path); err != nil {
		return err
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	fresh := err == nil
	if errors.Is(err, fs.ErrExist) {
		f, err = os.OpenFile(a.path, os.O_APPEND|os.O_WRONLY, 0o644)
	}
	if err != nil {
		return fmt.Errorf("opening %s: %w", a.path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w := csv.NewWriter(bw)
	if fresh {
		if err := w.Write(BatchColumns); err != nil {
			return err
		}
	}
	for _, p := range papers {
		if err := w.Write(batchRow(p)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("appending to %s: %w", a.path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("appending to %s: %w", a.path, err)
	}
	return f.Close()
}

func batchRow(p types.Paper) []string {
	year := ""
	if y := p.Year(); y > 0 {
		year = strconv.Itoa(y)
	}
	return []string{
		p.Title,
		p.URL,
		strings.Join(p.Authors, ListSep),
		year,
		strconv.Itoa(p.Citations),
		p.Abstract,
	}
}
