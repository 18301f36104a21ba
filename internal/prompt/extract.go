package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseMetadata is the parsed contents of the metadata JSON block
// (spec §4.4/§4.12: "extract metadata JSON + code block; on parse
// failure -> FAILED").
type ResponseMetadata struct {
	Description string  `json:"description"`
	Rationale   string  `json:"rationale"`
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
}

// ErrNoMetadataBlock and ErrNoCodeBlock report which half of the expected
// response shape was missing, so callers can surface a precise failure.
var (
	ErrNoMetadataBlock = fmt.Errorf("no metadata JSON block found in response")
	ErrNoCodeBlock     = fmt.Errorf("no fenced code block found in response")
)

// ExtractMetadataAndCode parses an LLM response into its metadata JSON
// block and fenced code block, per the contract every prompt tier
// advertises in writeOutputContract.
func ExtractMetadataAndCode(response string) (ResponseMetadata, string, error) {
	meta, err := extractMetadata(response)
	if err != nil {
		return ResponseMetadata{}, "", err
	}
	code, err := extractCodeBlock(response)
	if err != nil {
		return ResponseMetadata{}, "", err
	}
	return meta, code, nil
}

// extractMetadata finds the first ```json fenced block and unmarshals it.
func extractMetadata(response string) (ResponseMetadata, error) {
	block, ok := fencedBlock(response, "json")
	if !ok {
		return ResponseMetadata{}, ErrNoMetadataBlock
	}
	var meta ResponseMetadata
	if err := json.Unmarshal([]byte(block), &meta); err != nil {
		return ResponseMetadata{}, fmt.Errorf("%w: %v", ErrNoMetadataBlock, err)
	}
	return meta, nil
}

// extractCodeBlock finds the first fenced code block that is not the
// json metadata block (any other language tag, including none).
func extractCodeBlock(response string) (string, error) {
	search := response
	for {
		idx := strings.Index(search, "```")
		if idx < 0 {
			return "", ErrNoCodeBlock
		}
		start := idx + 3
		lineEnd := strings.IndexByte(search[start:], '\n')
		if lineEnd < 0 {
			return "", ErrNoCodeBlock
		}
		lang := strings.TrimSpace(search[start : start+lineEnd])
		bodyStart := start + lineEnd + 1
		end := strings.Index(search[bodyStart:], "```")
		if end < 0 {
			return "", ErrNoCodeBlock
		}
		body := search[bodyStart : bodyStart+end]
		if lang != "json" {
			return strings.TrimRight(body, "\n"), nil
		}
		search = search[bodyStart+end+3:]
	}
}

// fencedBlock returns the content of the first ```lang fenced block.
func fencedBlock(response, lang string) (string, bool) {
	marker := "```" + lang
	idx := strings.Index(response, marker)
	if idx < 0 {
		return "", false
	}
	start := idx + len(marker)
	end := strings.Index(response[start:], "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(response[start : start+end]), true
}
