package inspect

import (
	"context"
	"time"
)

// Module describes one image mapped into the crashed process.
type Module struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Base    uint64 `json:"baseAddress"`
	Size    uint64 `json:"size,omitempty"`
	Managed bool   `json:"managed"`
}

// ModuleDetail extends Module with managed-runtime metadata.
type ModuleDetail struct {
	Module
	Assembly string `json:"assembly,omitempty"`
}

// Field is one field row of an inspected object.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	Offset      uint64 `json:"offset"`
	MethodTable uint64 `json:"methodTable,omitempty"`
	Static      bool   `json:"static,omitempty"`
}

// ObjectInfo describes a managed object on the dump heap.
type ObjectInfo struct {
	Address     uint64  `json:"address"`
	MethodTable uint64  `json:"methodTable"`
	TypeName    string  `json:"typeName"`
	Size        uint64  `json:"size"`
	StringValue string  `json:"stringValue,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// TypeMatch is one result of a type lookup.
type TypeMatch struct {
	Module      string `json:"module"`
	TypeName    string `json:"typeName"`
	MethodTable uint64 `json:"methodTable"`
}

// Frame is one managed stack frame.
type Frame struct {
	SP       uint64 `json:"sp"`
	IP       uint64 `json:"ip"`
	Function string `json:"function"`
}

// Variable is an argument or local captured with a stack walk.
type Variable struct {
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

// ThreadStack is the managed stack of one thread.
type ThreadStack struct {
	OSThreadID      uint64     `json:"osThreadId"`
	ManagedThreadID int        `json:"managedThreadId"`
	Frames          []Frame    `json:"frames"`
	Args            []Variable `json:"args,omitempty"`
	Locals          []Variable `json:"locals,omitempty"`
	Registers       []Variable `json:"registers,omitempty"`
}

// InspectOptions bounds an object inspection.
type InspectOptions struct {
	// MethodTable overrides type resolution for corrupt headers. Zero
	// resolves from the object header.
	MethodTable uint64

	MaxDepth    int
	ArrayLimit  int
	StringLimit int
}

// StackOptions selects threads and detail for a managed stack walk.
type StackOptions struct {
	// OSThreadID restricts the walk to one thread; zero walks all.
	OSThreadID uint64

	IncludeArgs   bool
	IncludeLocals bool
	IncludeRegs   bool
}

// Inspector answers structured questions about an open dump. Callers
// cannot tell whether an answer came from parsing the dump file directly
// or from driving the debugger.
type Inspector interface {
	ListModules(ctx context.Context) ([]Module, error)
	DumpModule(ctx context.Context, addr uint64) (*ModuleDetail, error)
	InspectObject(ctx context.Context, addr uint64, opts InspectOptions) (*ObjectInfo, error)
	FindType(ctx context.Context, name, moduleGlob string) ([]TypeMatch, error)
	WalkManagedStacks(ctx context.Context, opts StackOptions) ([]ThreadStack, error)
}

// Executor runs one debugger command. Implemented by the debugger driver.
type Executor interface {
	Execute(ctx context.Context, cmd string, timeout time.Duration) (string, error)
}
