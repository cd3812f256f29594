// Package llmtext cleans up free text returned by LLM providers.
//
// Models often wrap an answer in a markdown code block even when asked for
// plain output. Unfence removes that outer block and leaves everything else
// untouched.
package llmtext

import "strings"

const fence = "```"

// Unfence strips one outer code block from response.
// It handles patterns like ```markdown\n...\n```, ```md\n...\n``` or
// ```\n...\n```. A response that does not both start and end with a fence
// is returned trimmed but otherwise unchanged, so fenced blocks inside a
// document survive.
func Unfence(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, fence) || !strings.HasSuffix(trimmed, fence) || len(trimmed) < 2*len(fence) {
		return trimmed
	}

	body := strings.TrimPrefix(trimmed, fence)
	// Drop the info string (language tag) on the opening line.
	newline := strings.IndexByte(body, '\n')
	if newline == -1 {
		return trimmed
	}
	if info := strings.TrimSpace(body[:newline]); strings.ContainsAny(info, " `") {
		return trimmed
	}
	body = body[newline+1:]

	body = strings.TrimSuffix(body, fence)
	if !balanced(body) {
		return trimmed
	}
	return strings.TrimSpace(body)
}

// balanced reports whether every bare fence line in body closes a block
// that body itself opened. A bare fence with nothing open means the outer
// markers belong to separate blocks.
func balanced(body string) bool {
	open := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, fence) {
			continue
		}
		if line == fence {
			if open == 0 {
				return false
			}
			open--
			continue
		}
		open++
	}
	return open == 0
}
