package parser

import "strings"

// Mode is the parser's position in the output grammar.
type Mode int

const (
	ModeIdle Mode = iota
	ModeToolCall
	ModeToolResult
	ModeThinking
	ModeResponse
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeToolCall:
		return "tool_call"
	case ModeToolResult:
		return "tool_result"
	case ModeThinking:
		return "thinking"
	case ModeResponse:
		return "response"
	default:
		return "unknown"
	}
}

const (
	responseMarker = "⏺"
	resultMarker   = "⎿"
)

// State is everything classification carries from one line to the next.
type State struct {
	Mode  Mode
	Block string
}

// Step is the result of classifying one line. Flush, when set, is the block
// accumulated under the previous mode and precedes Event.
type Step struct {
	Next  State
	Flush *Event
	Event *Event
}

// Events returns the step's output in emission order.
func (s Step) Events() []Event {
	var out []Event
	if s.Flush != nil {
		out = append(out, *s.Flush)
	}
	if s.Event != nil {
		out = append(out, *s.Event)
	}
	return out
}

// Transition classifies one line. Rules are tried in order and the first
// match wins; a rule that matches but cannot extract its payload emits
// nothing rather than falling through.
func Transition(st State, line string) Step {
	t := strings.TrimSpace(line)
	step := Step{Next: st}
	if t == "" {
		return step
	}

	switch {
	case strings.Contains(t, responseMarker):
		step.Next = State{Mode: ModeResponse, Block: st.Block}
		if st.Block != "" && st.Mode != ModeIdle {
			step.Flush = flushBlock(st)
			step.Next.Block = ""
		}
		_, after, _ := strings.Cut(t, responseMarker)
		step.Event = classifyMarked(strings.TrimSpace(after))

	case strings.HasPrefix(t, resultMarker):
		content := strings.TrimSpace(trimLeftAll(t, resultMarker))
		if content != "" {
			step.Event = ptr(ToolResult(content))
		}

	case strings.Contains(t, "Thinking") || strings.HasPrefix(t, "thinking"):
		step.Next = State{Mode: ModeThinking}

	case strings.Contains(t, "Read(") || strings.HasPrefix(t, "Reading"):
		if path, ok := extractPath(t); ok {
			step.Event = ptr(FileRead(path))
		}

	case strings.Contains(t, "Edit(") || strings.HasPrefix(t, "Editing"):
		if path, ok := extractPath(t); ok {
			step.Event = ptr(FileEdit(path))
		}

	case strings.Contains(t, "Bash(") || strings.HasPrefix(t, "Running"):
		if cmd, ok := extractCommand(t); ok {
			step.Event = ptr(CommandExec(cmd))
		}

	default:
		switch st.Mode {
		case ModeResponse:
			if clean, ok := CleanResponse(t); ok {
				step.Event = ptr(Response(clean))
			}
		case ModeThinking:
			step.Event = ptr(Thinking(t))
		case ModeToolCall, ModeToolResult:
			step.Next.Block = st.Block + t + "\n"
		default:
			step.Event = ptr(Text(t))
		}
	}

	return step
}

// classifyMarked handles the text following a response marker.
func classifyMarked(content string) *Event {
	if content == "" {
		return nil
	}

	switch {
	case strings.Contains(content, "Read(") || strings.HasPrefix(content, "Read "):
		if path, ok := extractPath(content); ok {
			return ptr(FileRead(path))
		}
	case strings.Contains(content, "Edit(") || strings.HasPrefix(content, "Edit "):
		if path, ok := extractPath(content); ok {
			return ptr(FileEdit(path))
		}
	case strings.Contains(content, "Bash(") || strings.HasPrefix(content, "Bash "):
		if cmd, ok := extractCommand(content); ok {
			return ptr(CommandExec(cmd))
		}
	default:
		if clean, ok := CleanResponse(content); ok {
			return ptr(Response(clean))
		}
	}
	return nil
}

// flushBlock turns an accumulated block into the event for its mode.
func flushBlock(st State) *Event {
	switch st.Mode {
	case ModeToolCall:
		return ptr(ToolCall("unknown", st.Block))
	case ModeToolResult:
		return ptr(ToolResult(st.Block))
	case ModeThinking:
		return ptr(Thinking(st.Block))
	default:
		return nil
	}
}

func trimLeftAll(s, prefix string) string {
	for strings.HasPrefix(s, prefix) {
		s = s[len(prefix):]
	}
	return s
}

func ptr(e Event) *Event { return &e }
