package inference

import (
	"encoding/json"
	"regexp"
	"strings"

	"hesapp/extractor/internal/pipelineerror"
)

// Model completions are supposed to be bare JSON but routinely arrive fenced
// in markdown, with trailing commas, or wrapped in prose. The repair chain
// tries, in order: fence stripping, trailing-comma removal, and extraction of
// the first balanced object/array substring. Exhausting the chain yields a
// typed ParseError.

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	objectRe        = regexp.MustCompile(`(?s)\{.*\}`)
	arrayRe         = regexp.MustCompile(`(?s)\[.*\]`)
)

// StripFences removes a ```json ... ``` (or bare ```) wrapper if present.
func StripFences(raw string) string {
	result := strings.TrimSpace(raw)
	if idx := strings.Index(result, "```json"); idx >= 0 {
		result = result[idx+len("```json"):]
		if end := strings.Index(result, "```"); end >= 0 {
			result = result[:end]
		}
		return strings.TrimSpace(result)
	}
	if idx := strings.Index(result, "```"); idx >= 0 {
		result = result[idx+len("```"):]
		if end := strings.Index(result, "```"); end >= 0 {
			result = result[:end]
		}
		return strings.TrimSpace(result)
	}
	return result
}

// stripTrailingCommas removes commas immediately preceding a closing brace or
// bracket, the most common malformation in model output.
func stripTrailingCommas(raw string) string {
	return trailingCommaRe.ReplaceAllString(raw, "$1")
}

// DecodeObject parses a completion expected to contain a single JSON object.
func DecodeObject[T any](operation, raw string) (T, error) {
	return decode[T](operation, raw, objectRe)
}

// DecodeArray parses a completion expected to contain a JSON array.
func DecodeArray[T any](operation, raw string) ([]T, error) {
	return decode[[]T](operation, raw, arrayRe)
}

func decode[T any](operation, raw string, extractRe *regexp.Regexp) (T, error) {
	var out T

	cleaned := StripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &out); err == nil {
		return out, nil
	}

	repaired := stripTrailingCommas(cleaned)
	if err := json.Unmarshal([]byte(repaired), &out); err == nil {
		return out, nil
	}

	if match := extractRe.FindString(repaired); match != "" {
		if err := json.Unmarshal([]byte(match), &out); err == nil {
			return out, nil
		}
	}

	// Report the error against the repaired text; that is what was last tried.
	err := json.Unmarshal([]byte(repaired), &out)
	return out, &pipelineerror.ParseError{
		Operation: operation,
		Snippet:   pipelineerror.Snippet(repaired, 120),
		Err:       err,
	}
}
