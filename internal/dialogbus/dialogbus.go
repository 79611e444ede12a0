// Package dialogbus holds process-wide staging areas for multi-step UI
// interactions: the chooser, revision, and clone dialogs each prepared
// by internal/protocol but rendered by a separate UI process that
// reads the slot when it loads. A write replaces whatever was there; a
// read returns a copy; cancellation clears the slot.
package dialogbus

import "sync"

// WorkspaceChooserState is staged when a request matches more than one
// workspace and the user must pick one.
type WorkspaceChooserState struct {
	Matches []WorkspaceMatch
	Line    *int
	Column  *int
}

// WorkspaceMatch mirrors resolver.Match without importing it, keeping
// this package free of a dependency on the resolver's settings/MRU
// collaborators.
type WorkspaceMatch struct {
	WorkspaceName string
	WorkspacePath string
	FullFilePath  string
}

// RevisionDialogState is staged when a RevisionPath request resolves to
// a revision that differs from the working tree's current ref.
type RevisionDialogState struct {
	Workspace             string
	WorkspacePath          string
	FilePath               string
	FullFilePath           string
	Rev                    string
	Line                   *int
	Column                 *int
	CurrentRef             string
	IsWorkingTreeClean     bool
	DirtyFileCount         int
	CheckoutAvailable      bool
	CheckoutBlockedReason  string
}

// CloneDialogState is staged when a workspace-scoped request names a
// workspace that isn't configured locally but carries a remote hint.
type CloneDialogState struct {
	WorkspaceName string
	ClonePath     string
	RemoteURL     string
	FilePath      string
	Line          *int
	Column        *int
	GitRef        *GitRefDescriptor
}

// GitRefDescriptor is a plain-data mirror of gitops.GitRef.
type GitRefDescriptor struct {
	Kind  string
	Value string
}

// mailbox is a single-slot, mutex-protected staging area for one T.
type mailbox[T any] struct {
	mu    sync.Mutex
	value *T
}

func (m *mailbox[T]) set(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = &v
}

func (m *mailbox[T]) get() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.value == nil {
		var zero T
		return zero, false
	}
	return *m.value, true
}

func (m *mailbox[T]) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = nil
}

// Bus owns the three named mailboxes. Safe for concurrent use; each
// mailbox has its own lock so operations on different mailboxes never
// contend with one another.
type Bus struct {
	chooser  mailbox[WorkspaceChooserState]
	revision mailbox[RevisionDialogState]
	clone    mailbox[CloneDialogState]
}

// New builds an empty Bus.
func New() *Bus { return &Bus{} }

// SetWorkspaceChooser stages a new chooser state, replacing any prior one.
func (b *Bus) SetWorkspaceChooser(s WorkspaceChooserState) { b.chooser.set(s) }

// WorkspaceChooser returns the staged chooser state, if any.
func (b *Bus) WorkspaceChooser() (WorkspaceChooserState, bool) { return b.chooser.get() }

// ClearWorkspaceChooser empties the chooser mailbox.
func (b *Bus) ClearWorkspaceChooser() { b.chooser.clear() }

// SetRevisionDialog stages a new revision-dialog state.
func (b *Bus) SetRevisionDialog(s RevisionDialogState) { b.revision.set(s) }

// RevisionDialog returns the staged revision-dialog state, if any.
func (b *Bus) RevisionDialog() (RevisionDialogState, bool) { return b.revision.get() }

// ClearRevisionDialog empties the revision-dialog mailbox.
func (b *Bus) ClearRevisionDialog() { b.revision.clear() }

// SetCloneDialog stages a new clone-dialog state.
func (b *Bus) SetCloneDialog(s CloneDialogState) { b.clone.set(s) }

// CloneDialog returns the staged clone-dialog state, if any.
func (b *Bus) CloneDialog() (CloneDialogState, bool) { return b.clone.get() }

// ClearCloneDialog empties the clone-dialog mailbox.
func (b *Bus) ClearCloneDialog() { b.clone.clear() }
