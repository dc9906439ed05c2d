package store

// Operation is the storage-level operation code. The bit pattern is stable
// across versions: Execute is recognized but never written.
type Operation uint8

const (
	OperationExecute Operation = 0b001
	OperationWrite   Operation = 0b010
	OperationRead    Operation = 0b100
)

// PushEntry is the per-access side data the writer keeps in push order,
// separate from the chunk it ends up in: a chunk reorders by address, but
// accesses table rows must preserve push order, so this list is the thing
// that does.
//
// Handle is the arena index returned by slice.Builder.Insert for this
// access: stable until the arena's owning Slice is consumed by a flush.
type PushEntry struct {
	Handle            int
	Operation         Operation
	HasVirtualAddress bool
	VirtualAddress    uint64
}
