package archway

import (
	"errors"
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// Sentinel error kinds surfaced by the core, per the error-handling design.
// Propagation policy: InvalidEntity and ComponentNotFound are local and
// returned immediately. ChunkFull never escapes the archetype boundary.
// CleanupCycle and CommandBufferAborted stop the operation they occurred
// in and are returned to its caller; steps of that operation already
// applied are not rolled back (a CommandBuffer abort only deletes the
// entities its own Create/Copy ops allocated).
var (
	ErrInvalidEntity      = errors.New("archway: invalid entity")
	ErrComponentNotFound  = errors.New("archway: component not found on entity")
	ErrDuplicateComponent = errors.New("archway: component already registered with a mismatched descriptor")
	ErrChunkFull          = errors.New("archway: chunk is full")
	ErrArchetypeConflict  = errors.New("archway: component combination forbidden by CantCombine/Requires")
	ErrCleanupCycle       = errors.New("archway: cleanup policy recursion detected")
	ErrCommandBufferAbort = errors.New("archway: command buffer replay aborted")
	ErrUnknownQueryID     = errors.New("archway: unknown identifier in query term")
	ErrMalformedQueryText = errors.New("archway: malformed query grammar")
)

// InvalidEntityError wraps ErrInvalidEntity with the offending handle.
type InvalidEntityError struct {
	Entity Entity
}

func (e InvalidEntityError) Error() string {
	return fmt.Sprintf("archway: entity %v is invalid", e.Entity)
}

func (e InvalidEntityError) Unwrap() error { return ErrInvalidEntity }

// ComponentNotFoundError wraps ErrComponentNotFound with the offending pair.
type ComponentNotFoundError struct {
	Entity    Entity
	Component Entity
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("archway: entity %v has no component %v", e.Entity, e.Component)
}

func (e ComponentNotFoundError) Unwrap() error { return ErrComponentNotFound }

// ArchetypeConflictError wraps ErrArchetypeConflict with the entity and
// component id whose add/remove was refused: a CantCombine pair on the id
// being added, or a Requires pair on some other member depending on the
// id being removed.
type ArchetypeConflictError struct {
	Entity    Entity
	Component Entity
}

func (e ArchetypeConflictError) Error() string {
	return fmt.Sprintf("archway: %v refused for entity %v: forbidden by CantCombine/Requires", e.Component, e.Entity)
}

func (e ArchetypeConflictError) Unwrap() error { return ErrArchetypeConflict }

// cleanupCycleError is raised when the cleanup policy engine detects
// recursion through (OnDeleteTarget, ActionDelete) chains; it is traced
// with bark so the originating entity chain survives in logs.
func cleanupCycleError(chain []Entity) error {
	traced := bark.AddTrace(fmt.Errorf("chain=%v", chain))
	return fmt.Errorf("%w: %v", ErrCleanupCycle, traced)
}

// commandBufferAbortError wraps a replay failure at a specific record
// index, traced with bark the same way.
func commandBufferAbortError(index int, cause error) error {
	traced := bark.AddTrace(cause)
	return fmt.Errorf("%w: record %d: %w", ErrCommandBufferAbort, index, traced)
}
