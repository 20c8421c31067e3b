package cdr

import "github.com/hdds-team/hdds/pkg/rtps/types"

// LocatorWireLen is the fixed CDR-encoded size of a Locator: kind(4) +
// port(4) + address(16).
const LocatorWireLen = 24

// WriteLocator appends a Locator in the fixed kind/port/address layout
// used throughout discovery parameter lists and INFO submessages.
func (w *Writer) WriteLocator(l types.Locator) {
	w.WriteI32(int32(l.Kind))
	w.WriteU32(l.Port)
	w.WriteOpaque(l.Address[:])
}

// ReadLocator reads a Locator in the fixed kind/port/address layout.
func (r *Reader) ReadLocator() (types.Locator, error) {
	kind, err := r.ReadI32()
	if err != nil {
		return types.Locator{}, err
	}
	port, err := r.ReadU32()
	if err != nil {
		return types.Locator{}, err
	}
	addr, err := r.ReadOpaque(16)
	if err != nil {
		return types.Locator{}, err
	}
	var l types.Locator
	l.Kind = types.LocatorKind(kind)
	l.Port = port
	copy(l.Address[:], addr)
	return l, nil
}
