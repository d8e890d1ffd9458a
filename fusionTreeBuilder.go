package fusiontree

// FusionTreeBuilder collects keys for a FusionTree.
// A user calls PushBack()s followed by Build().
type FusionTreeBuilder struct {
	env  *Environment
	keys []Word
}

// NewBuilder returns a builder for trees on env.
func NewBuilder(env *Environment) *FusionTreeBuilder {
	return &FusionTreeBuilder{env: env}
}

// PushBack adds a key.
func (b *FusionTreeBuilder) PushBack(key Word) {
	b.keys = append(b.keys, key)
}

// PushBackUint64 adds val as a key of the environment's width.
func (b *FusionTreeBuilder) PushBackUint64(val uint64) {
	b.PushBack(b.env.Word(val))
}

// Num returns the number of keys pushed so far.
func (b *FusionTreeBuilder) Num() int {
	return len(b.keys)
}

// Build constructs the tree. The builder may be reused afterwards.
func (b *FusionTreeBuilder) Build() (*FusionTree, error) {
	return New(b.keys, b.env)
}
