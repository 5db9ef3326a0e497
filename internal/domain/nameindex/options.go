package nameindex

// Option applies a configuration option to the Index.
type Option func(*Index)

// WithMaxDistance caps the search threshold regardless of query length.
func WithMaxDistance(d int) Option {
	return func(idx *Index) {
		if d > 0 {
			idx.maxDistance = d
		}
	}
}
