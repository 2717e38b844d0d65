package edifact

// Handler receives the structural events of a parsed stream.
//
// Enter and exit calls are balanced and properly nested. The exit of a leaf
// immediately follows its enter. Returning an error aborts the run.
type Handler interface {
	EnterBranch(branch Branch) error
	ExitBranch(path string) error
	EnterLeaf(leaf *Leaf) error
	ExitLeaf(path string) error
}

// HandlerFuncs adapts plain functions to a Handler. Nil functions are skipped.
type HandlerFuncs struct {
	OnEnterBranch func(Branch) error
	OnExitBranch  func(string) error
	OnEnterLeaf   func(*Leaf) error
	OnExitLeaf    func(string) error
}

func (h HandlerFuncs) EnterBranch(b Branch) error {
	if h.OnEnterBranch == nil {
		return nil
	}
	return h.OnEnterBranch(b)
}

func (h HandlerFuncs) ExitBranch(path string) error {
	if h.OnExitBranch == nil {
		return nil
	}
	return h.OnExitBranch(path)
}

func (h HandlerFuncs) EnterLeaf(l *Leaf) error {
	if h.OnEnterLeaf == nil {
		return nil
	}
	return h.OnEnterLeaf(l)
}

func (h HandlerFuncs) ExitLeaf(path string) error {
	if h.OnExitLeaf == nil {
		return nil
	}
	return h.OnExitLeaf(path)
}

// NopHandler ignores every event. Useful to validate a stream.
type NopHandler struct{ HandlerFuncs }

// MultiHandler forwards each event to every handler in order, stopping at the first error.
type MultiHandler []Handler

func (m MultiHandler) EnterBranch(b Branch) error {
	for _, h := range m {
		if err := h.EnterBranch(b); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiHandler) ExitBranch(path string) error {
	for _, h := range m {
		if err := h.ExitBranch(path); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiHandler) EnterLeaf(l *Leaf) error {
	for _, h := range m {
		if err := h.EnterLeaf(l); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiHandler) ExitLeaf(path string) error {
	for _, h := range m {
		if err := h.ExitLeaf(path); err != nil {
			return err
		}
	}
	return nil
}
