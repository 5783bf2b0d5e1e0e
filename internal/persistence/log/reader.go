package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"hexplan.ai/internal/sim/runner"
)

// ReadJSONL calls fn with each line of a .jsonl.zst file.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return sc.Err()
}

// ReadEvents decodes every event in the given files, in order.
func ReadEvents(paths ...string) ([]runner.Event, error) {
	var out []runner.Event
	for _, p := range paths {
		err := ReadJSONL(p, func(line []byte) error {
			var e runner.Event
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			out = append(out, e)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
