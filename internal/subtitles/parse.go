package subtitles

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"capgate/internal/cue"
	"capgate/internal/services"
)

// parseResult keeps malformed blocks alongside the cues that parsed so
// validation can report both.
type parseResult struct {
	cues     []cue.Cue
	failures []error
}

func parseBlocks(content string) parseResult {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)
	var result parseResult
	if content == "" {
		return result
	}

	for n, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if n == 0 && strings.HasPrefix(lines[0], vttHeader) {
			continue
		}

		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing < 0 {
			// WebVTT NOTE/STYLE blocks carry no timing line.
			if isVTTMetadata(lines[0]) {
				continue
			}
			result.failures = append(result.failures, fmt.Errorf("block %d: missing timing line", n+1))
			continue
		}

		parts := strings.SplitN(lines[timing], "-->", 2)
		start, err := parseTimestamp(parts[0])
		if err != nil {
			result.failures = append(result.failures, fmt.Errorf("block %d: start: %w", n+1, err))
			continue
		}
		end, err := parseTimestamp(parts[1])
		if err != nil {
			result.failures = append(result.failures, fmt.Errorf("block %d: end: %w", n+1, err))
			continue
		}

		index := len(result.cues) + 1
		if timing > 0 {
			if v, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
				index = v
			}
		}
		result.cues = append(result.cues, cue.Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[timing+1:], "\n"),
		})
	}
	return result
}

func isVTTMetadata(line string) bool {
	for _, prefix := range []string{"NOTE", "STYLE", "REGION"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// ParseSRT parses SRT or WebVTT content. Any malformed block fails the parse
// with ErrInvalidInput.
func ParseSRT(content string) ([]cue.Cue, error) {
	result := parseBlocks(content)
	if len(result.failures) > 0 {
		return nil, services.Wrap(services.ErrInvalidInput, "subtitles", "parse", fmt.Sprintf("%d malformed block(s)", len(result.failures)), errors.Join(result.failures...))
	}
	return result.cues, nil
}

// ParseFile reads and parses a caption file.
func ParseFile(path string) ([]cue.Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "subtitles", "read", path, err)
	}
	return ParseSRT(string(data))
}
