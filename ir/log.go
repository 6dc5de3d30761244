package ir

import (
	"tlog.app/go/tlog/tlwire"
)

func (b *Block) TlogAppend(buf []byte) []byte {
	var e tlwire.Encoder

	if b == nil {
		return e.AppendNil(buf)
	}
	return e.AppendFormat(buf, "block_%d", b.index)
}

func (d *Def) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if d == nil {
		return e.AppendNil(b)
	}

	b = e.AppendMap(b, 3)
	b = e.AppendKeyInt64(b, "idx", int64(d.index))
	b = e.AppendKeyInt64(b, "bits", int64(d.bitSize))
	b = e.AppendKeyInt64(b, "comps", int64(d.numComponents))

	return b
}

func (c ConstValue) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "%#x", uint64(c))
}

func (i *Instr) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if i == nil {
		return e.AppendNil(b)
	}
	return e.AppendFormat(b, "%v#%d", i.Type(), i.index)
}
