package ecs

// Zipper2 enumerates entities matching the signature mask for (A, B) in
// ascending entity-index order, then dereferences both stores — the
// "filtered zipper" from spec: enumerate by signature first, yield refs
// second. Dereferencing panics if a store disagrees with the signature,
// which would indicate a Registry invariant violation.
func Zipper2[A, B any](r *Registry, fn func(Entity, *A, *B)) {
	mask := uint64(1)<<uint(Bit[A](r)) | uint64(1)<<uint(Bit[B](r))
	sa := storeFor[A](r)
	sb := storeFor[B](r)
	for _, e := range r.GetEntitiesWithComponents(mask) {
		fn(e, sa.MustAt(e), sb.MustAt(e))
	}
}

// Zipper3 is Zipper2 for three components.
func Zipper3[A, B, C any](r *Registry, fn func(Entity, *A, *B, *C)) {
	mask := uint64(1)<<uint(Bit[A](r)) | uint64(1)<<uint(Bit[B](r)) | uint64(1)<<uint(Bit[C](r))
	sa := storeFor[A](r)
	sb := storeFor[B](r)
	sc := storeFor[C](r)
	for _, e := range r.GetEntitiesWithComponents(mask) {
		fn(e, sa.MustAt(e), sb.MustAt(e), sc.MustAt(e))
	}
}

// Zipper4 is Zipper2 for four components.
func Zipper4[A, B, C, D any](r *Registry, fn func(Entity, *A, *B, *C, *D)) {
	mask := uint64(1)<<uint(Bit[A](r)) | uint64(1)<<uint(Bit[B](r)) |
		uint64(1)<<uint(Bit[C](r)) | uint64(1)<<uint(Bit[D](r))
	sa := storeFor[A](r)
	sb := storeFor[B](r)
	sc := storeFor[C](r)
	sd := storeFor[D](r)
	for _, e := range r.GetEntitiesWithComponents(mask) {
		fn(e, sa.MustAt(e), sb.MustAt(e), sc.MustAt(e), sd.MustAt(e))
	}
}

// Zipper5 is Zipper2 for five components.
func Zipper5[A, B, C, D, E any](r *Registry, fn func(Entity, *A, *B, *C, *D, *E)) {
	mask := uint64(1)<<uint(Bit[A](r)) | uint64(1)<<uint(Bit[B](r)) |
		uint64(1)<<uint(Bit[C](r)) | uint64(1)<<uint(Bit[D](r)) | uint64(1)<<uint(Bit[E](r))
	sa := storeFor[A](r)
	sb := storeFor[B](r)
	sc := storeFor[C](r)
	sd := storeFor[D](r)
	se := storeFor[E](r)
	for _, e := range r.GetEntitiesWithComponents(mask) {
		fn(e, sa.MustAt(e), sb.MustAt(e), sc.MustAt(e), sd.MustAt(e), se.MustAt(e))
	}
}
