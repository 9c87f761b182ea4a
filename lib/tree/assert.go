package tree

// assert panics when cond is false. It compiles to nothing unless the
// avldebug build tag is set.
func assert(cond bool, msg string) {
	if assertions && !cond {
		panic( /* debug assertion */ msg)
	}
}
