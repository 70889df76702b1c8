package ingestion

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// LoadPages reads JSON lines of {"url","text"} from r and ingests each one
// with source SourceSeed. Blank lines and lines starting with # are
// skipped. It stops at the first bad line and returns how many pages were
// indexed before it.
func LoadPages(ctx context.Context, svc *Service, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	loaded, line := 0, 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		var req IngestRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return loaded, fmt.Errorf("line %d: decoding page: %w", line, err)
		}
		if _, err := svc.Ingest(ctx, SourceSeed, req); err != nil {
			return loaded, fmt.Errorf("line %d: %w", line, err)
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("reading pages: %w", err)
	}
	return loaded, nil
}
