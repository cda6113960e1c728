package kvdb

// Op is a single write of a Batch, Value is ignored for deletes.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Batch is an ordered list of writes applied atomically by DB.Write.
type Batch struct {
	ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, Op{Key: key, Value: value})
}

func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, Op{Key: key, Delete: true})
}

func (b *Batch) Len() int {
	return len(b.ops)
}

func (b *Batch) Ops() []Op {
	return b.ops
}
