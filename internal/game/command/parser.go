package command

import (
	"strings"
	"unicode"
)

// ArgSeparator separates arguments after the verb.
const ArgSeparator = "|"

// ParseResult holds the parsed verb and arguments from a text line.
type ParseResult struct {
	// Verb is the first whitespace-delimited token, trimmed. Case is preserved.
	Verb string
	// Args are the pipe-separated, trimmed pieces after the verb. An empty
	// remainder yields a single empty argument.
	Args []string
}

// Parse splits a text line into a verb and arguments. It never fails: any
// input, including the empty string, yields a ParseResult.
//
// Postcondition: len(Args) == strings.Count(rest, "|") + 1, where rest is the
// text after the first whitespace run.
func Parse(line string) ParseResult {
	verb, rest := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		verb = line[:i]
		rest = strings.TrimLeftFunc(line[i:], unicode.IsSpace)
	}

	pieces := strings.Split(rest, ArgSeparator)
	args := make([]string, len(pieces))
	for i, p := range pieces {
		args[i] = strings.TrimSpace(p)
	}

	return ParseResult{
		Verb: strings.TrimSpace(verb),
		Args: args,
	}
}
