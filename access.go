package rvnmemhistwriter

import "github.com/tetrane/rvnmemhistwriter/internal/store"

// Operation is the storage-level access kind. The bit pattern is stable:
// Read = 0b100, Write = 0b010, Execute = 0b001. Execute is recognized at the
// type level for forward compatibility but rejected at Push.
type Operation = store.Operation

const (
	OperationExecute Operation = store.OperationExecute
	OperationWrite   Operation = store.OperationWrite
	OperationRead    Operation = store.OperationRead
)

// Access is one memory access as the caller observed it: a transition id
// (monotonically non-decreasing across a writer's lifetime; pushing after
// DiscardAfter is undefined), a physical address and byte size, the kind of
// access, and an optional virtual address.
type Access struct {
	Transition        uint64
	Address           uint64
	Size              uint32
	Operation         Operation
	HasVirtualAddress bool
	VirtualAddress    uint64
}
