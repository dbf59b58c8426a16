package couchbase

import "github.com/couchbase/gocb/v2"

// CasSetter is implemented by documents that remember the CAS they were read with.
type CasSetter interface {
	SetCas(c gocb.Cas)
}

// CasGetter is implemented by documents that carry a CAS to guard a replace.
type CasGetter interface {
	GetCas() gocb.Cas
}

// Cas can be embedded in document structs that need CAS tracking.
type Cas struct {
	c gocb.Cas
}

// GetCas returns the CAS the document was last read or written with.
func (c *Cas) GetCas() gocb.Cas {
	return c.c
}

// SetCas updates the CAS value.
func (c *Cas) SetCas(cas gocb.Cas) {
	c.c = cas
}
