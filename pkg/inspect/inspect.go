// Package inspect answers structured questions about dumps: module
// lists, object contents, type lookups, managed stack walks.
//
// Two paths serve the same contract. Native-image questions are answered
// by parsing the memory-mapped dump file directly (ELF NT_FILE note,
// minidump ModuleList stream), with no debugger involved. Managed-state
// questions go through SOS commands on the session's debugger driver,
// parsed into the structured types. Callers cannot tell which path
// produced an answer.
package inspect

import (
	"context"
	"errors"

	"github.com/coredock/coredock/pkg/dump"
)

type inspector struct {
	file *fileInspector // nil when the container cannot be parsed
	sos  *sosInspector
}

// New opens an inspector over the dump at path. exec may be nil for
// native-only use; managed queries then fail ErrManagedUnavailable.
func New(path string, format dump.Format, exec Executor) (Inspector, error) {
	fi, err := newFileInspector(path, format)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedDump) {
			return nil, err
		}
		fi = nil
	}
	return &inspector{file: fi, sos: newSOSInspector(exec)}, nil
}

// Close releases the file mapping.
func (in *inspector) Close() error {
	if in.file == nil {
		return nil
	}
	return in.file.Close()
}

// ListModules merges native modules from the dump file with managed
// modules from the runtime, deduplicated by base address. A managed-side
// failure degrades to the native list alone.
func (in *inspector) ListModules(ctx context.Context) ([]Module, error) {
	var native []Module
	if in.file != nil {
		native, _ = in.file.ListModules(ctx)
	}

	managed, err := in.sos.ListModules(ctx)
	if err != nil {
		if len(native) > 0 || errors.Is(err, ErrManagedUnavailable) {
			return native, nil
		}
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(native))
	for _, mod := range native {
		seen[mod.Base] = struct{}{}
	}
	merged := native
	for _, mod := range managed {
		if _, dup := seen[mod.Base]; !dup {
			merged = append(merged, mod)
		}
	}
	return merged, nil
}

func (in *inspector) DumpModule(ctx context.Context, addr uint64) (*ModuleDetail, error) {
	if in.file != nil {
		if detail, err := in.file.DumpModule(ctx, addr); err == nil {
			return detail, nil
		}
	}
	return in.sos.DumpModule(ctx, addr)
}

func (in *inspector) InspectObject(ctx context.Context, addr uint64, opts InspectOptions) (*ObjectInfo, error) {
	return in.sos.InspectObject(ctx, addr, opts)
}

func (in *inspector) FindType(ctx context.Context, name, moduleGlob string) ([]TypeMatch, error) {
	return in.sos.FindType(ctx, name, moduleGlob)
}

func (in *inspector) WalkManagedStacks(ctx context.Context, opts StackOptions) ([]ThreadStack, error) {
	return in.sos.WalkManagedStacks(ctx, opts)
}
