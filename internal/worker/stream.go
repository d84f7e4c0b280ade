package worker

import (
	"regexp"
	"strings"
)

// EffectKind identifies which of the four tag pairs produced an Effect.
type EffectKind string

const (
	EffectWriteFile   EffectKind = "write_file"
	EffectRunCommand  EffectKind = "run_command"
	EffectSendMessage EffectKind = "send_message"
	EffectBroadcast   EffectKind = "broadcast"
)

// Effect is one completed side-effect tag extracted from the stream.
type Effect struct {
	Kind      EffectKind
	Path      string // WRITE_FILE only
	To        string // SEND_MESSAGE only
	Payload   string
	Oversized bool
}

type tagSpec struct {
	kind       EffectKind
	openRe     *regexp.Regexp
	endMarker  string
	limitBytes int
}

const (
	writeLimitBytes   = 1 << 20 // 1 MiB
	commandLimitBytes = 1 << 20 // 1 MiB
	messageLimitBytes = 64 << 10
	maxBufferBytes    = 256 << 10
	trimTargetBytes   = 128 << 10
)

var tagSpecs = []tagSpec{
	{EffectWriteFile, regexp.MustCompile(`<<WRITE_FILE path="([^"]*)">>`), "<<END_WRITE>>", writeLimitBytes},
	{EffectRunCommand, regexp.MustCompile(`<<RUN_COMMAND>>`), "<<END_COMMAND>>", commandLimitBytes},
	{EffectSendMessage, regexp.MustCompile(`<<SEND_MESSAGE to="([^"]*)">>`), "<<END_MESSAGE>>", messageLimitBytes},
	{EffectBroadcast, regexp.MustCompile(`<<BROADCAST>>`), "<<END_BROADCAST>>", messageLimitBytes},
}

// openMarkers is used by Flush to detect orphaned opening tags that were
// never closed.
var openMarkers = []struct {
	kind EffectKind
	re   *regexp.Regexp
}{
	{EffectWriteFile, regexp.MustCompile(`<<WRITE_FILE path="[^"]*">>`)},
	{EffectRunCommand, regexp.MustCompile(`<<RUN_COMMAND>>`)},
	{EffectSendMessage, regexp.MustCompile(`<<SEND_MESSAGE to="[^"]*">>`)},
	{EffectBroadcast, regexp.MustCompile(`<<BROADCAST>>`)},
}

// Scanner accumulates streamed lines in a buffer whose size enforceCap
// bounds. After each fed line it runs the tag regexes over the whole
// buffered text, again after every tag it consumes, until no complete tag
// remains; it keeps no scan position between lines and is not an
// incremental lexer.
type Scanner struct {
	buf strings.Builder
	txt string // not read or written by any method
}

// NewScanner returns an empty stream Scanner.
func NewScanner() *Scanner { return &Scanner{} }

// Feed appends one line (with its trailing newline) to the buffer, drains
// every complete tag occurrence, and reports whether the size cap forced a
// trim this call.
func (s *Scanner) Feed(line string) (effects []Effect, trimmed bool) {
	s.buf.WriteString(line)
	s.buf.WriteByte('\n')
	trimmed = s.enforceCap()
	effects = s.drain()
	return effects, trimmed
}

// Flush is called once at final EOF; it reports the kinds of any tags that
// were opened but never closed ("stream_orphan_tags").
func (s *Scanner) Flush() []EffectKind {
	text := s.buf.String()
	var orphans []EffectKind
	for _, m := range openMarkers {
		if m.re.MatchString(text) {
			orphans = append(orphans, m.kind)
		}
	}
	return orphans
}

func (s *Scanner) drain() []Effect {
	var effects []Effect
	for {
		text := s.buf.String()
		bestIdx := -1
		var bestSpec tagSpec
		var bestLoc []int
		for _, spec := range tagSpecs {
			loc := spec.openRe.FindStringSubmatchIndex(text)
			if loc == nil {
				continue
			}
			if bestIdx == -1 || loc[0] < bestIdx {
				bestIdx = loc[0]
				bestSpec = spec
				bestLoc = loc
			}
		}
		if bestIdx == -1 {
			return effects
		}

		openEnd := bestLoc[1]
		rel := strings.Index(text[openEnd:], bestSpec.endMarker)
		if rel == -1 {
			// Partial: the open tag is present but not yet closed. Wait for
			// more lines; leave the buffer untouched.
			return effects
		}

		payloadStart := openEnd
		payloadEnd := openEnd + rel
		payload := text[payloadStart:payloadEnd]
		var attr string
		if len(bestLoc) >= 4 && bestLoc[2] != -1 {
			attr = text[bestLoc[2]:bestLoc[3]]
		}
		consumedEnd := payloadEnd + len(bestSpec.endMarker)

		eff := Effect{Kind: bestSpec.kind, Payload: payload}
		switch bestSpec.kind {
		case EffectWriteFile:
			eff.Path = attr
			eff.Payload = trimSingleNewline(payload)
		case EffectSendMessage:
			eff.To = attr
		}
		if len(payload) > bestSpec.limitBytes {
			eff.Oversized = true
		}
		effects = append(effects, eff)

		newText := text[:bestIdx] + text[consumedEnd:]
		s.buf.Reset()
		s.buf.WriteString(newText)
	}
}

// enforceCap trims the buffer back to at most trimTargetBytes, anchored at
// the last "<<" occurrence within that tail so a partial tag's opening
// marker survives, once the buffer exceeds maxBufferBytes.
func (s *Scanner) enforceCap() bool {
	if s.buf.Len() <= maxBufferBytes {
		return false
	}
	text := s.buf.String()
	newText := text
	if len(newText) > trimTargetBytes {
		newText = newText[len(newText)-trimTargetBytes:]
	}
	if idx := strings.LastIndex(newText, "<<"); idx != -1 {
		newText = newText[idx:]
	}
	s.buf.Reset()
	s.buf.WriteString(newText)
	return true
}

// trimSingleNewline strips exactly one leading and one trailing newline
// from a WRITE_FILE payload, so the line break after the opening tag and
// before the closing tag isn't baked into the file contents.
func trimSingleNewline(s string) string {
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, "\n")
	return s
}
