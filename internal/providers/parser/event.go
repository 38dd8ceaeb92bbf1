package parser

// Kind tags a classified event. The values are the wire names.
type Kind string

const (
	KindText        Kind = "Text"
	KindToolCall    Kind = "ToolCall"
	KindToolResult  Kind = "ToolResult"
	KindThinking    Kind = "Thinking"
	KindFileRead    Kind = "FileRead"
	KindFileEdit    Kind = "FileEdit"
	KindCommandExec Kind = "CommandExec"
	KindResponse    Kind = "Response"
	KindStatus      Kind = "Status"
)

// Event is one classified fragment of terminal output. Only the fields that
// belong to Type are set.
type Event struct {
	Type    Kind   `json:"type"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
	Path    string `json:"path,omitempty"`
	Command string `json:"command,omitempty"`
	Status  string `json:"status,omitempty"`
}

func Text(content string) Event { return Event{Type: KindText, Content: content} }

func ToolCall(name, content string) Event {
	return Event{Type: KindToolCall, Name: name, Content: content}
}

func ToolResult(content string) Event { return Event{Type: KindToolResult, Content: content} }

func Thinking(content string) Event { return Event{Type: KindThinking, Content: content} }

func FileRead(path string) Event { return Event{Type: KindFileRead, Path: path} }

func FileEdit(path string) Event { return Event{Type: KindFileEdit, Path: path} }

func CommandExec(command string) Event { return Event{Type: KindCommandExec, Command: command} }

func Response(content string) Event { return Event{Type: KindResponse, Content: content} }

// Status reports a lifecycle change such as "running" or "exited". The parser
// never produces it; stream routers do.
func Status(status string) Event { return Event{Type: KindStatus, Status: status} }
