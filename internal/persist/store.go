package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"scoreboard/internal/blob"
	"scoreboard/internal/core"
)

// Load reads every slot once and decodes them. A slot that cannot be read
// falls back to its default and is reported, like a malformed one.
func Load(ctx context.Context, r blob.Reader) (core.State, []Issue) {
	blobs, readIssues := Read(ctx, r)
	s, issues := Decode(blobs)
	return s, append(readIssues, issues...)
}

// Read returns the raw slots present in r. Slots that could not be read are
// reported and left out.
func Read(ctx context.Context, r blob.Reader) (map[string][]byte, []Issue) {
	blobs := make(map[string][]byte, len(Keys))
	var issues []Issue
	for _, key := range Keys {
		raw, ok, err := r.Get(ctx, key)
		if err != nil {
			issues = append(issues, Issue{Key: key, Err: fmt.Errorf("read slot: %w", err)})
			continue
		}
		if ok {
			blobs[key] = raw
		}
	}
	return blobs, issues
}

// Save rewrites all four slots in full.
func Save(ctx context.Context, w blob.Writer, s core.State) error {
	blobs, err := Encode(s)
	if err != nil {
		return err
	}
	return Write(ctx, w, blobs)
}

// Write stores already encoded slots, in one batch when w supports it.
func Write(ctx context.Context, w blob.Writer, blobs map[string][]byte) error {
	if bw, ok := w.(blob.BatchWriter); ok {
		if err := bw.SetMany(ctx, blobs); err != nil {
			return fmt.Errorf("write slots: %w", err)
		}
		return nil
	}
	for _, key := range Keys {
		if err := w.Set(ctx, key, blobs[key]); err != nil {
			return fmt.Errorf("write slot %s: %w", key, err)
		}
	}
	return nil
}

// SameSlots reports whether a and b hold the same bytes under the same keys.
func SameSlots(a, b map[string][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !bytes.Equal(v, w) {
			return false
		}
	}
	return true
}

// ExportDump renders the four slots as one JSON object, indented for humans.
func ExportDump(s core.State) ([]byte, error) {
	blobs, err := Encode(s)
	if err != nil {
		return nil, err
	}
	dump := make(map[string]json.RawMessage, len(blobs))
	for k, v := range blobs {
		dump[k] = v
	}
	out, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode dump: %w", err)
	}
	return out, nil
}

// ImportDump reads a dump object such as a copy of the browser's
// localStorage. Slot values may be JSON text stored as a string (the way
// localStorage holds them) or plain JSON. Unknown keys are ignored.
func ImportDump(r io.Reader) (core.State, []Issue, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return core.State{}, nil, fmt.Errorf("read dump: %w", err)
	}
	var dump map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &dump); err != nil {
		return core.State{}, nil, fmt.Errorf("%w: dump is not a JSON object: %v", ErrMalformed, err)
	}
	blobs := make(map[string][]byte, len(Keys))
	for _, key := range Keys {
		raw, ok := dump[key]
		if !ok {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(string(raw)), `"`) {
			var text string
			if err := json.Unmarshal(raw, &text); err != nil {
				return core.State{}, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
			}
			raw = json.RawMessage(text)
		}
		blobs[key] = raw
	}
	s, issues := Decode(blobs)
	return s, issues, nil
}
