package internal

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// LoadStationIDs reads the monitored station ids from path, one per line.
func LoadStationIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open station list")
	}
	defer func() {
		_ = f.Close()
	}()

	ids, err := ParseStationIDs(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read station list %s", path)
	}
	return ids, nil
}

// ParseStationIDs trims each line and skips blank ones. Order is preserved.
func ParseStationIDs(r io.Reader) ([]string, error) {
	ids := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
