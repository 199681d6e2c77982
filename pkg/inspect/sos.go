package inspect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// sosInspector answers managed-runtime queries by issuing SOS commands
// through the debugger driver and parsing their text output. It sits
// behind the same Inspector contract as the file-backed path, so callers
// never know their answer came from the subprocess.
type sosInspector struct {
	exec Executor
}

func newSOSInspector(exec Executor) *sosInspector {
	return &sosInspector{exec: exec}
}

func (s *sosInspector) run(ctx context.Context, cmd string) (string, error) {
	if s.exec == nil {
		return "", ErrManagedUnavailable
	}
	out, err := s.exec.Execute(ctx, cmd, time.Duration(0))
	if err != nil {
		return "", err
	}
	return out, nil
}

func (s *sosInspector) ListModules(ctx context.Context) ([]Module, error) {
	out, err := s.run(ctx, "clrmodules")
	if err != nil {
		return nil, err
	}
	return parseCLRModules(out), nil
}

func (s *sosInspector) DumpModule(ctx context.Context, addr uint64) (*ModuleDetail, error) {
	out, err := s.run(ctx, fmt.Sprintf("dumpmodule %x", addr))
	if err != nil {
		return nil, err
	}
	kv := parseKeyValues(out)
	name, ok := kv["Name"]
	if !ok {
		return nil, ErrNotFound
	}
	return &ModuleDetail{
		Module: Module{
			Name:    moduleBasename(name),
			Path:    name,
			Base:    addr,
			Managed: true,
		},
		Assembly: kv["Assembly"],
	}, nil
}

func (s *sosInspector) InspectObject(ctx context.Context, addr uint64, opts InspectOptions) (*ObjectInfo, error) {
	cmd := fmt.Sprintf("dumpobj %x", addr)
	if opts.MethodTable != 0 {
		// dumpvc reads a value with an explicit method table, for objects
		// whose header is unreadable
		cmd = fmt.Sprintf("dumpvc %x %x", opts.MethodTable, addr)
	}
	out, err := s.run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if strings.Contains(out, "is not a valid object") {
		return nil, ErrNotFound
	}

	info := parseDumpObj(out)
	if info.TypeName == "" {
		return nil, ErrNotFound
	}
	info.Address = addr
	if opts.StringLimit > 0 && len(info.StringValue) > opts.StringLimit {
		info.StringValue = info.StringValue[:opts.StringLimit]
	}
	return info, nil
}

func (s *sosInspector) FindType(ctx context.Context, name, moduleGlob string) ([]TypeMatch, error) {
	if moduleGlob == "" {
		moduleGlob = "*"
	}
	out, err := s.run(ctx, fmt.Sprintf("name2ee %s!%s", moduleGlob, name))
	if err != nil {
		return nil, err
	}
	return parseName2EE(out), nil
}

func (s *sosInspector) WalkManagedStacks(ctx context.Context, opts StackOptions) ([]ThreadStack, error) {
	cmd := "clrstack -all"
	switch {
	case opts.IncludeArgs && opts.IncludeLocals:
		cmd += " -a"
	case opts.IncludeArgs:
		cmd += " -p"
	case opts.IncludeLocals:
		cmd += " -l"
	}
	if opts.IncludeRegs {
		cmd += " -r"
	}

	out, err := s.run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	stacks := parseCLRStack(out)
	if opts.OSThreadID != 0 {
		filtered := stacks[:0]
		for _, st := range stacks {
			if st.OSThreadID == opts.OSThreadID {
				filtered = append(filtered, st)
			}
		}
		stacks = filtered
	}
	return stacks, nil
}

// ============================================================================
// SOS output parsers
// ============================================================================

var (
	kvLineRE = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*?):\s+(.*?)\s*$`)

	// MT Field Offset Type VT Attr Value Name
	fieldRowRE = regexp.MustCompile(`^\s*([0-9a-fA-F]+)\s+([0-9a-fA-F]+)\s+([0-9a-fA-Fx]+)\s+(\S+)\s+[01]\s+(instance|static|shared)\s+(\S+)\s+(\S+)\s*$`)

	// base size path
	clrModuleRE = regexp.MustCompile(`^([0-9a-fA-F]{8,})\s+([0-9a-fA-F]+)\s+(\S.*)$`)

	osThreadRE = regexp.MustCompile(`^OS Thread Id:\s+0x([0-9a-fA-F]+)\s*(?:\((\d+)\))?`)

	// ChildSP IP CallSite
	frameRowRE = regexp.MustCompile(`^\s*([0-9a-fA-F]{8,})\s+([0-9a-fA-F]{8,})\s+(\S.*)$`)

	varRowRE = regexp.MustCompile(`^\s+(\S+)\s*=\s*(.+?)\s*$`)

	sizeRE = regexp.MustCompile(`^(\d+)`)
)

func parseKeyValues(out string) map[string]string {
	kv := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		if m := kvLineRE.FindStringSubmatch(line); m != nil {
			kv[strings.TrimSpace(m[1])] = m[2]
		}
	}
	return kv
}

func parseHex(s string) uint64 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, _ := strconv.ParseUint(s, 16, 64)
	return v
}

func parseDumpObj(out string) *ObjectInfo {
	info := &ObjectInfo{}
	inFields := false

	for _, line := range strings.Split(out, "\n") {
		if inFields {
			if m := fieldRowRE.FindStringSubmatch(line); m != nil {
				info.Fields = append(info.Fields, Field{
					MethodTable: parseHex(m[1]),
					Offset:      parseHex(m[3]),
					Type:        m[4],
					Static:      m[5] != "instance",
					Value:       m[6],
					Name:        m[7],
				})
			}
			continue
		}

		if strings.HasPrefix(line, "Fields:") {
			inFields = true
			continue
		}
		m := kvLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch strings.TrimSpace(m[1]) {
		case "Name":
			info.TypeName = m[2]
		case "MethodTable":
			info.MethodTable = parseHex(m[2])
		case "Size":
			if sm := sizeRE.FindStringSubmatch(m[2]); sm != nil {
				info.Size, _ = strconv.ParseUint(sm[1], 10, 64)
			}
		case "String":
			info.StringValue = m[2]
		}
	}
	return info
}

func parseCLRModules(out string) []Module {
	var modules []Module
	for _, line := range strings.Split(out, "\n") {
		m := clrModuleRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p := strings.TrimSpace(m[3])
		modules = append(modules, Module{
			Name:    moduleBasename(p),
			Path:    p,
			Base:    parseHex(m[1]),
			Size:    parseHex(m[2]),
			Managed: true,
		})
	}
	return modules
}

func parseName2EE(out string) []TypeMatch {
	var matches []TypeMatch
	var cur *TypeMatch

	for _, line := range strings.Split(out, "\n") {
		m := kvLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch strings.TrimSpace(m[1]) {
		case "Module":
			matches = append(matches, TypeMatch{})
			cur = &matches[len(matches)-1]
		case "Assembly":
			if cur != nil {
				cur.Module = m[2]
			}
		case "Name":
			if cur != nil {
				cur.TypeName = m[2]
			}
		case "MethodTable":
			if cur != nil {
				cur.MethodTable = parseHex(m[2])
			}
		}
	}

	// Drop blocks where the lookup found no method table
	complete := matches[:0]
	for _, tm := range matches {
		if tm.MethodTable != 0 {
			complete = append(complete, tm)
		}
	}
	return complete
}

func parseCLRStack(out string) []ThreadStack {
	var stacks []ThreadStack
	var cur *ThreadStack
	section := "" // "", "params", "locals"

	for _, line := range strings.Split(out, "\n") {
		if m := osThreadRE.FindStringSubmatch(line); m != nil {
			stacks = append(stacks, ThreadStack{OSThreadID: parseHex(m[1])})
			cur = &stacks[len(stacks)-1]
			if m[2] != "" {
				cur.ManagedThreadID, _ = strconv.Atoi(m[2])
			}
			section = ""
			continue
		}
		if cur == nil {
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "PARAMETERS:"):
			section = "params"
			continue
		case strings.HasPrefix(trimmed, "LOCALS:"):
			section = "locals"
			continue
		case strings.HasPrefix(trimmed, "Child SP"):
			section = ""
			continue
		case strings.Contains(trimmed, "Unable to walk the managed stack"):
			continue
		}

		if section != "" {
			if m := varRowRE.FindStringSubmatch(line); m != nil {
				v := Variable{Name: m[1], Value: m[2]}
				if section == "params" {
					cur.Args = append(cur.Args, v)
				} else {
					cur.Locals = append(cur.Locals, v)
				}
				continue
			}
		}

		if m := frameRowRE.FindStringSubmatch(line); m != nil {
			cur.Frames = append(cur.Frames, Frame{
				SP:       parseHex(m[1]),
				IP:       parseHex(m[2]),
				Function: strings.TrimSpace(m[3]),
			})
			section = ""
		}
	}
	return stacks
}
