package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Lifecycle operation states. One machine instance tracks a single logical
// create/update/delete from validation through filesystem reconciliation.
const (
	StateValidating    = "validating"
	StateStagingFile   = "staging_file"
	StateInTransaction = "in_transaction"
	StateCommitted     = "committed"
	StateReconciling   = "reconciling"
	StateDone          = "done"
	StateAborting      = "aborting"
)

// OperationFSM enforces the legal progression of a lifecycle operation.
// Aborting is reachable from the staging and transaction phases; once
// committed, only reconciliation remains — a reconciliation failure warns
// but never unwinds the committed state.
type OperationFSM struct {
	fsm *fsm.FSM
}

// NewOperationFSM creates a state machine positioned at validation
func NewOperationFSM() *OperationFSM {
	return &OperationFSM{
		fsm: fsm.NewFSM(
			StateValidating,
			fsm.Events{
				{Name: "stage", Src: []string{StateValidating}, Dst: StateStagingFile},
				{Name: "begin", Src: []string{StateValidating, StateStagingFile}, Dst: StateInTransaction},
				{Name: "commit", Src: []string{StateInTransaction}, Dst: StateCommitted},
				{Name: "reconcile", Src: []string{StateCommitted}, Dst: StateReconciling},
				{Name: "finish", Src: []string{StateCommitted, StateReconciling}, Dst: StateDone},
				{Name: "abort", Src: []string{StateStagingFile, StateInTransaction}, Dst: StateAborting},
			},
			fsm.Callbacks{},
		),
	}
}

// Stage marks the file-staging phase (pre-transaction file writes)
func (o *OperationFSM) Stage(ctx context.Context) error {
	return o.event(ctx, "stage")
}

// Begin marks the relational transaction as open
func (o *OperationFSM) Begin(ctx context.Context) error {
	return o.event(ctx, "begin")
}

// Commit marks a successful transaction commit
func (o *OperationFSM) Commit(ctx context.Context) error {
	return o.event(ctx, "commit")
}

// Reconcile marks the post-commit filesystem cleanup phase
func (o *OperationFSM) Reconcile(ctx context.Context) error {
	return o.event(ctx, "reconcile")
}

// Finish marks the operation complete
func (o *OperationFSM) Finish(ctx context.Context) error {
	return o.event(ctx, "finish")
}

// Abort marks the compensation path. Illegal after commit: a committed
// transaction is never rolled back by a filesystem failure.
func (o *OperationFSM) Abort(ctx context.Context) error {
	return o.event(ctx, "abort")
}

// Current returns the current state
func (o *OperationFSM) Current() string {
	return o.fsm.Current()
}

// Can checks if a transition is possible
func (o *OperationFSM) Can(event string) bool {
	return o.fsm.Can(event)
}

func (o *OperationFSM) event(ctx context.Context, name string) error {
	if err := o.fsm.Event(ctx, name); err != nil {
		return fmt.Errorf("illegal operation transition %q from %s: %w", name, o.fsm.Current(), err)
	}
	return nil
}
