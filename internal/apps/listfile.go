package apps

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/eliteGoblin/openmime/internal/domain"
)

// mimeapps.list grammar: two INI-like sections whose keys are mime
// strings and whose values are semicolon-terminated handler lists,
// e.g. "video/mp4=mpv.desktop;vlc.desktop;". The codec is explicit
// rather than reflection-driven: the format is an external contract and
// must round-trip exactly (value-list order and trailing semicolons
// preserved; key order is not significant).
const (
	sectionAdded   = "Added Associations"
	sectionDefault = "Default Applications"
)

// decodeAssociations parses the file contents into the two mappings.
// Comment and blank lines are skipped, unknown sections are ignored,
// and handler names rejected by valid are dropped from their list.
// A malformed mime key or a key/value line outside any section is a
// hard error.
func decodeAssociations(data []byte, valid func(name string) bool) (added, defaults map[domain.MimeType]domain.HandlerList, err error) {
	added = make(map[domain.MimeType]domain.HandlerList)
	defaults = make(map[domain.MimeType]domain.HandlerList)

	var target map[domain.MimeType]domain.HandlerList
	skipping := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch strings.TrimSpace(line[1 : len(line)-1]) {
			case sectionAdded:
				target, skipping = added, false
			case sectionDefault:
				target, skipping = defaults, false
			default:
				target, skipping = nil, true
			}
			continue
		}

		if skipping {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, nil, fmt.Errorf("line %d: not a key=value pair", lineNo)
		}
		if target == nil {
			return nil, nil, fmt.Errorf("line %d: entry outside of a section", lineNo)
		}
		mime, err := domain.ParseMime(key)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		target[mime] = domain.ParseHandlerList(strings.TrimSpace(value), valid)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return added, defaults, nil
}

// encodeAssociations serializes both mappings. Section headers are
// always written; keys are sorted so saves are deterministic.
func encodeAssociations(added, defaults map[domain.MimeType]domain.HandlerList) []byte {
	var buf bytes.Buffer
	writeSection(&buf, sectionAdded, added)
	writeSection(&buf, sectionDefault, defaults)
	return buf.Bytes()
}

func writeSection(buf *bytes.Buffer, name string, assoc map[domain.MimeType]domain.HandlerList) {
	fmt.Fprintf(buf, "[%s]\n", name)
	keys := lo.Keys(assoc)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, mime := range keys {
		fmt.Fprintf(buf, "%s=%s\n", mime, assoc[mime])
	}
}
