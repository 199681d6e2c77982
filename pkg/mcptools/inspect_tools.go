package mcptools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/coredock/coredock/pkg/ident"
	"github.com/coredock/coredock/pkg/inspect"
)

type InspectObjectInput struct {
	SessionRef
	Address     string `json:"address" jsonschema:"Object address as a hex string"`
	MethodTable string `json:"methodTable,omitempty" jsonschema:"Optional method table override for corrupt headers"`
	MaxDepth    int    `json:"maxDepth,omitempty" jsonschema:"Nested field expansion depth, 0 for default"`
	ArrayLimit  int    `json:"arrayLimit,omitempty" jsonschema:"Maximum array elements to expand"`
	StringLimit int    `json:"stringLimit,omitempty" jsonschema:"Maximum string characters to return"`
}

type DumpModuleInput struct {
	SessionRef
	Address string `json:"address" jsonschema:"Module base address as a hex string"`
}

type ListModulesOutput struct {
	Modules []inspect.Module `json:"modules"`
	Count   int              `json:"count"`
}

type FindTypeInput struct {
	SessionRef
	TypeName   string `json:"typeName" jsonschema:"Fully qualified type name to resolve"`
	ModuleGlob string `json:"module,omitempty" jsonschema:"Optional module name glob to narrow the search"`
}

type FindTypeOutput struct {
	Matches []inspect.TypeMatch `json:"matches"`
}

type ClrStackInput struct {
	SessionRef
	OSThreadID    string `json:"osThreadId,omitempty" jsonschema:"Restrict to one OS thread id (hex), empty for all threads"`
	IncludeArgs   bool   `json:"includeArgs,omitempty"`
	IncludeLocals bool   `json:"includeLocals,omitempty"`
	IncludeRegs   bool   `json:"includeRegs,omitempty"`
}

type ClrStackOutput struct {
	Threads []inspect.ThreadStack `json:"threads"`
}

// parseAddr accepts hex with or without the 0x prefix.
func parseAddr(s string) (uint64, error) {
	v := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if v == "" {
		return 0, fmt.Errorf("%w: empty address", ident.ErrInvalid)
	}
	addr, err := strconv.ParseUint(v, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a hex address", ident.ErrInvalid, s)
	}
	return addr, nil
}

func (s *Server) registerInspectTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "inspect_object",
		Description: "Inspect a managed object on the dump heap: type, size, and field values, with bounded expansion of nested objects, arrays, and strings.",
	}, tool(s, "inspect_object", func(ctx context.Context, in InspectObjectInput) (*inspect.ObjectInfo, error) {
		insp, err := s.deps.Sessions.Inspector(in.SessionID, in.UserID)
		if err != nil {
			return nil, err
		}
		addr, err := parseAddr(in.Address)
		if err != nil {
			return nil, err
		}
		opts := inspect.InspectOptions{
			MaxDepth:    in.MaxDepth,
			ArrayLimit:  in.ArrayLimit,
			StringLimit: in.StringLimit,
		}
		if in.MethodTable != "" {
			if opts.MethodTable, err = parseAddr(in.MethodTable); err != nil {
				return nil, err
			}
		}
		return insp.InspectObject(ctx, addr, opts)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "dump_module",
		Description: "Describe the module at a base address, including managed assembly metadata when available.",
	}, tool(s, "dump_module", func(ctx context.Context, in DumpModuleInput) (*inspect.ModuleDetail, error) {
		insp, err := s.deps.Sessions.Inspector(in.SessionID, in.UserID)
		if err != nil {
			return nil, err
		}
		addr, err := parseAddr(in.Address)
		if err != nil {
			return nil, err
		}
		return insp.DumpModule(ctx, addr)
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_modules",
		Description: "List every image mapped into the crashed process, native and managed merged.",
	}, tool(s, "list_modules", func(ctx context.Context, in SessionRef) (ListModulesOutput, error) {
		insp, err := s.deps.Sessions.Inspector(in.SessionID, in.UserID)
		if err != nil {
			return ListModulesOutput{}, err
		}
		modules, err := insp.ListModules(ctx)
		if err != nil {
			return ListModulesOutput{}, err
		}
		if modules == nil {
			modules = []inspect.Module{}
		}
		return ListModulesOutput{Modules: modules, Count: len(modules)}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "name2ee",
		Description: "Resolve a type name to its method table, optionally narrowed to one module.",
	}, tool(s, "name2ee", func(ctx context.Context, in FindTypeInput) (FindTypeOutput, error) {
		insp, err := s.deps.Sessions.Inspector(in.SessionID, in.UserID)
		if err != nil {
			return FindTypeOutput{}, err
		}
		matches, err := insp.FindType(ctx, in.TypeName, in.ModuleGlob)
		if err != nil {
			return FindTypeOutput{}, err
		}
		return FindTypeOutput{Matches: matches}, nil
	}))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "clr_stack",
		Description: "Walk managed stacks, optionally with arguments, locals, and registers, for one thread or all.",
	}, tool(s, "clr_stack", func(ctx context.Context, in ClrStackInput) (ClrStackOutput, error) {
		insp, err := s.deps.Sessions.Inspector(in.SessionID, in.UserID)
		if err != nil {
			return ClrStackOutput{}, err
		}
		opts := inspect.StackOptions{
			IncludeArgs:   in.IncludeArgs,
			IncludeLocals: in.IncludeLocals,
			IncludeRegs:   in.IncludeRegs,
		}
		if in.OSThreadID != "" {
			if opts.OSThreadID, err = parseAddr(in.OSThreadID); err != nil {
				return ClrStackOutput{}, err
			}
		}
		threads, err := insp.WalkManagedStacks(ctx, opts)
		if err != nil {
			return ClrStackOutput{}, err
		}
		return ClrStackOutput{Threads: threads}, nil
	}))
}
